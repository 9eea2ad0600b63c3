package threesbot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	statDb "github.com/threes-games/threes/internal/database/stat/database"
	statModel "github.com/threes-games/threes/internal/database/stat/model"
	"github.com/threes-games/threes/internal/dice"
	"github.com/threes-games/threes/internal/logging"
	"github.com/threes-games/threes/internal/threesbot/game"
	"github.com/threes-games/threes/internal/threesbot/match"
	"golang.org/x/sync/singleflight"
)

const (
	minChallengeTimeout = 30 * time.Second
	maxChallengeTimeout = 900 * time.Second
)

var (
	ErrTableBusy      = fmt.Errorf("a game is already running at this table")
	ErrTableNotFound  = fmt.Errorf("no active game at this table")
	ErrSelfChallenge  = fmt.Errorf("can not challenge yourself")
	ErrTimeoutBounds  = fmt.Errorf("challenge timeout must be between %s and %s", minChallengeTimeout, maxChallengeTimeout)
	ErrManagerStopped = fmt.Errorf("manager is not running")
)

func NewManager(config *Config, statDb *statDb.DB, notifier match.Notifier, src dice.Source) *Manager {
	return &Manager{
		config:           config,
		challengeTimeout: config.ChallengeTimeout,
		sessions:         map[int64]*match.Session{},
		statDb:           statDb,
		notifier:         notifier,
		dice:             src,
	}
}

// Manager owns the session store: one match session per table key, all
// creation single-flighted, eviction on game end or abandonment.
type Manager struct {
	mtx sync.RWMutex

	config           *Config
	challengeTimeout time.Duration

	// key: table code
	sessions map[int64]*match.Session
	group    singleflight.Group

	statDb   *statDb.DB
	notifier match.Notifier
	dice     dice.Source

	ctxSess    context.Context
	cancelSess func()
}

func (m *Manager) Run(ctx context.Context) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.ctxSess, m.cancelSess = context.WithCancel(ctx)
}

func (m *Manager) Stop() {
	m.mtx.Lock()
	cancel := m.cancelSess
	sessions := make([]*match.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = map[int64]*match.Session{}
	m.mtx.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

// Challenge opens a table. A zero opponent is an open challenge that
// anyone but the challenger may accept; a nonzero opponent starts the
// game immediately.
func (m *Manager) Challenge(table, guildID, challenger, opponent int64) (*match.Session, error) {
	if opponent == challenger {
		return nil, ErrSelfChallenge
	}
	return m.createSession(table, guildID, challenger, opponent, 0)
}

// ChallengeBot starts a game against the automated opponent.
func (m *Manager) ChallengeBot(table, guildID, challenger, botID int64) (*match.Session, error) {
	return m.createSession(table, guildID, challenger, botID, botID)
}

func (m *Manager) createSession(table, guildID, challenger, opponent, botID int64) (*match.Session, error) {
	m.mtx.RLock()
	ctxSess := m.ctxSess
	m.mtx.RUnlock()
	if ctxSess == nil {
		return nil, ErrManagerStopped
	}

	// concurrent challenges against one table collapse into a single
	// session; the loser of the race sees ErrTableBusy on its next try
	v, err, _ := m.group.Do(strconv.FormatInt(table, 10), func() (interface{}, error) {
		m.mtx.Lock()
		defer m.mtx.Unlock()

		if _, ok := m.sessions[table]; ok {
			return nil, ErrTableBusy
		}

		session := match.NewSession(m.buildMatchConfig(table, guildID, challenger, opponent, botID))
		session.Run(ctxSess)
		m.sessions[table] = session
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*match.Session), nil
}

// buildMatchConfig is called with m.mtx already held by createSession;
// it must not lock m.mtx itself.
func (m *Manager) buildMatchConfig(table, guildID, challenger, opponent, botID int64) match.Config {
	challengeTimeout := m.challengeTimeout

	return match.Config{
		Code:             table,
		GuildID:          guildID,
		Challenger:       challenger,
		Opponent:         opponent,
		BotID:            botID,
		Dice:             m.dice,
		Notifier:         m.notifier,
		DoneFn:           m.matchDoneFn,
		ChallengeTimeout: challengeTimeout,
		ConfirmTimeout:   m.config.ConfirmTimeout,
		RematchTimeout:   m.config.RematchTimeout,
		BotDelayMin:      m.config.BotDelayMin,
		BotDelayMax:      m.config.BotDelayMax,
	}
}

func (m *Manager) Lookup(table int64) (*match.Session, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	session, ok := m.sessions[table]
	return session, ok
}

// Evict tears a table down, e.g. when its presentation context vanished
// mid-game. The session loop observes cancellation and stops without
// further mutation.
func (m *Manager) Evict(table int64) error {
	m.mtx.Lock()
	session, ok := m.sessions[table]
	delete(m.sessions, table)
	m.mtx.Unlock()

	if !ok {
		return ErrTableNotFound
	}

	session.Stop()
	return nil
}

// matchDoneFn runs in the session loop on conclusion. Recording stats
// is a collaborator concern: a failure is logged and never rolls the
// game outcome back.
func (m *Manager) matchDoneFn(session *match.Session, outcome game.Outcome) error {
	m.mtx.Lock()
	delete(m.sessions, session.Code)
	m.mtx.Unlock()

	if outcome.Winner == 0 {
		return nil
	}

	// only humans carry records; the automated opponent's side of a
	// bot game is not tracked
	guildID, bot := session.Config.GuildID, session.Config.BotID
	var err error
	switch {
	case bot == 0:
		err = m.statDb.Record(guildID, outcome.Winner, outcome.Loser, outcome.MoonShot)
	case outcome.Winner == bot:
		err = m.statDb.RecordLoss(guildID, outcome.Loser)
	default:
		err = m.statDb.RecordWin(guildID, outcome.Winner, outcome.MoonShot)
	}
	if err != nil {
		logging.DefaultLogger().Errorf("record stats, code %d: %v", session.Code, err)
		return fmt.Errorf("stat db record: %w", err)
	}

	return nil
}

func (m *Manager) ActiveTables() []int64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	tables := make([]int64, 0, len(m.sessions))
	for table := range m.sessions {
		tables = append(tables, table)
	}
	return tables
}

// SetChallengeTimeout adjusts the open-challenge window for tables
// opened from now on. Bounds follow the admin command contract.
func (m *Manager) SetChallengeTimeout(d time.Duration) error {
	if d < minChallengeTimeout || d > maxChallengeTimeout {
		return ErrTimeoutBounds
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.challengeTimeout = d
	return nil
}

func (m *Manager) ChallengeTimeout() time.Duration {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.challengeTimeout
}

func (m *Manager) Stats(guildID, userID int64) (statModel.Stat, error) {
	return m.statDb.Fetch(guildID, userID)
}

func (m *Manager) Leaderboard(guildID int64) ([]statModel.Stat, error) {
	return m.statDb.Leaderboard(guildID)
}

func (m *Manager) ResetStats(guildID, userID int64) error {
	return m.statDb.Reset(guildID, userID)
}

func (m *Manager) ResetAllStats(guildID int64) error {
	return m.statDb.ResetAll(guildID)
}
