package threesbot

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/threes-games/threes/internal/cache"
	"github.com/threes-games/threes/internal/database"
	statDatabase "github.com/threes-games/threes/internal/database/stat/database"
	"github.com/threes-games/threes/internal/threesbot/match"
)

const (
	testTable = int64(555000)
	testGuild = int64(42)
	alice     = int64(100)
	bob       = int64(200)
)

type script struct {
	mtx   sync.Mutex
	rolls [][]int
}

func (s *script) push(rolls ...[]int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.rolls = append(s.rolls, rolls...)
}

func (s *script) Roll(n int) []int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.rolls) == 0 {
		panic("script exhausted")
	}
	next := s.rolls[0]
	s.rolls = s.rolls[1:]
	if len(next) != n {
		panic("script roll length mismatch")
	}
	return append([]int(nil), next...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(match.Event) error { return nil }

func newTestManager(t *testing.T) (*Manager, *script) {
	t.Helper()

	sDB, err := database.NewFromEnv(context.Background(), &database.Config{
		FilePath: filepath.Join(t.TempDir(), "threes.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sDB.Close(context.Background())
	})

	c, err := cache.NewLRU(16)
	require.NoError(t, err)

	src := &script{}
	config := &Config{
		ChallengeTimeout: time.Hour,
		ConfirmTimeout:   time.Hour,
		RematchTimeout:   time.Hour,
		BotDelayMin:      time.Millisecond,
		BotDelayMax:      2 * time.Millisecond,
	}

	m := NewManager(config, statDatabase.New(sDB, c), nopNotifier{}, src)
	m.Run(context.Background())
	t.Cleanup(m.Stop)

	return m, src
}

func TestChallengeSingleFlight(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	session, err := m.Challenge(testTable, testGuild, alice, bob)
	require.NoError(t, err)
	require.NotNil(t, session)

	_, err = m.Challenge(testTable, testGuild, alice, bob)
	require.ErrorIs(t, err, ErrTableBusy)

	// another table is free
	other, err := m.Challenge(testTable+1, testGuild, alice, 0)
	require.NoError(t, err)
	require.NotNil(t, other)
	require.Len(t, m.ActiveTables(), 2)
}

func TestSelfChallenge(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	_, err := m.Challenge(testTable, testGuild, alice, alice)
	require.ErrorIs(t, err, ErrSelfChallenge)
}

func TestGameEndRecordsStatsAndFreesTable(t *testing.T) {
	t.Parallel()

	m, src := newTestManager(t)

	session, err := m.Challenge(testTable, testGuild, alice, bob)
	require.NoError(t, err)

	src.push([]int{3, 3, 3, 3, 3})
	_, err = session.Roll(alice)
	require.NoError(t, err)
	require.NoError(t, session.Keep(alice, []int{0, 1, 2, 3, 4}))

	src.push([]int{4, 4, 4, 4, 4})
	_, err = session.Roll(bob)
	require.NoError(t, err)
	require.NoError(t, session.Keep(bob, []int{0, 1, 2, 3, 4}))

	require.Eventually(t, func() bool {
		_, ok := m.Lookup(testTable)
		return !ok
	}, 5*time.Second, 5*time.Millisecond)

	winner, err := m.Stats(testGuild, alice)
	require.NoError(t, err)
	require.Equal(t, 1, winner.Wins)

	loser, err := m.Stats(testGuild, bob)
	require.NoError(t, err)
	require.Equal(t, 1, loser.Losses)

	// the key is reusable after the game concluded
	_, err = m.Challenge(testTable, testGuild, bob, alice)
	require.NoError(t, err)
}

func TestMoonShotRecorded(t *testing.T) {
	t.Parallel()

	m, src := newTestManager(t)

	session, err := m.ChallengeBot(testTable, testGuild, alice, -1)
	require.NoError(t, err)

	src.push([]int{6, 6, 6, 6, 6})
	_, err = session.Roll(alice)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stat, err := m.Stats(testGuild, alice)
		return err == nil && stat.MoonShots == 1 && stat.Wins == 1
	}, 5*time.Second, 5*time.Millisecond)

	// the automated opponent carries no record
	_, err = m.Stats(testGuild, -1)
	require.ErrorIs(t, err, statDatabase.ErrNotFound)
}

func TestEvictAbandonsGame(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	session, err := m.Challenge(testTable, testGuild, alice, bob)
	require.NoError(t, err)

	require.NoError(t, m.Evict(testTable))
	_, ok := m.Lookup(testTable)
	require.False(t, ok)

	require.Eventually(t, func() bool {
		_, err := session.Roll(alice)
		return err == match.ErrSessionClosed
	}, 5*time.Second, 5*time.Millisecond)

	// nothing was recorded for an abandoned game
	_, err = m.Stats(testGuild, alice)
	require.ErrorIs(t, err, statDatabase.ErrNotFound)

	require.ErrorIs(t, m.Evict(testTable), ErrTableNotFound)
}

func TestSetChallengeTimeoutBounds(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t)

	require.ErrorIs(t, m.SetChallengeTimeout(10*time.Second), ErrTimeoutBounds)
	require.ErrorIs(t, m.SetChallengeTimeout(20*time.Minute), ErrTimeoutBounds)

	require.NoError(t, m.SetChallengeTimeout(90*time.Second))
	require.Equal(t, 90*time.Second, m.ChallengeTimeout())
}
