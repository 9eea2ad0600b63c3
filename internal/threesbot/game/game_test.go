package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/threes-games/threes/internal/dice"
)

const (
	alice = int64(100)
	bob   = int64(200)
)

// script replays canned rolls in order. It panics when the game asks
// for more dice than the next canned roll holds, which would mean the
// test script and the engine disagree about remaining dice.
type script struct {
	rolls [][]int
}

func (s *script) Roll(n int) []int {
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

var _ dice.Source = (*script)(nil)

func requireInvariants(t *testing.T, g *Game) {
	t.Helper()
	for _, p := range g.Players() {
		s := g.State(p)
		require.LessOrEqual(t, len(s.Kept)+len(s.CurrentRoll), NumDice)
		require.LessOrEqual(t, s.RollsUsed, MaxRolls)
		require.Equal(t, s.Finished, len(s.Kept) == NumDice || s.RollsUsed == MaxRolls)
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	s := PlayerState{Kept: []int{3, 3, 1, 5, 6}}
	require.Equal(t, 12, s.Score())
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	g := New(alice, bob, dice.NewSeeded(1))
	require.Equal(t, alice, g.CurrentPlayer())
	require.False(t, g.Finished())
	require.Equal(t, Outcome{}, g.Outcome())
	requireInvariants(t, g)
}

func TestRollThenKeep(t *testing.T) {
	t.Parallel()

	src := &script{rolls: [][]int{{3, 3, 5, 2, 6}}}
	g := New(alice, bob, src)

	values := g.Roll()
	require.Equal(t, []int{3, 3, 5, 2, 6}, values)
	require.Equal(t, 1, g.State(alice).RollsUsed)
	requireInvariants(t, g)

	require.True(t, g.Keep([]int{0, 1}))
	require.Equal(t, []int{3, 3}, g.KeptDice(alice))
	require.Empty(t, g.State(alice).CurrentRoll)
	require.Equal(t, bob, g.CurrentPlayer())
	requireInvariants(t, g)
}

func TestKeepDuplicateIndices(t *testing.T) {
	t.Parallel()

	src := &script{rolls: [][]int{{4, 2, 6, 1, 5}}}
	g := New(alice, bob, src)
	g.Roll()

	require.True(t, g.Keep([]int{3, 1, 1, 3}))
	require.Equal(t, []int{2, 1}, g.KeptDice(alice))
	requireInvariants(t, g)
}

func TestKeepInvalidIndices(t *testing.T) {
	t.Parallel()

	src := &script{rolls: [][]int{{4, 2, 6, 1, 5}}}
	g := New(alice, bob, src)
	g.Roll()

	before := g.State(alice)
	require.False(t, g.Keep([]int{0, 5}))
	require.False(t, g.Keep([]int{-1}))
	require.False(t, g.Keep(nil))

	after := g.State(alice)
	require.Equal(t, before, after)
	require.Equal(t, alice, g.CurrentPlayer())
	requireInvariants(t, g)
}

func TestKeepWithoutRoll(t *testing.T) {
	t.Parallel()

	g := New(alice, bob, dice.NewSeeded(1))
	require.False(t, g.Keep([]int{0}))
}

func TestMoonShot(t *testing.T) {
	t.Parallel()

	src := &script{rolls: [][]int{{6, 6, 6, 6, 6}}}
	g := New(alice, bob, src)

	values := g.Roll()
	require.Nil(t, values)
	require.True(t, g.MoonShot())
	require.True(t, g.Finished())
	require.Equal(t, []int{6, 6, 6, 6, 6}, g.KeptDice(alice))
	require.Equal(t, Outcome{Winner: alice, Loser: bob, MoonShot: true}, g.Outcome())
	requireInvariants(t, g)
}

func TestNoMoonShotAfterFirstRoll(t *testing.T) {
	t.Parallel()

	src := &script{}
	g := New(alice, bob, src)

	// alice keeps the 1, bob keeps one die, turn returns to alice
	src.rolls = [][]int{{1, 2, 4, 5, 6}}
	g.Roll()
	require.True(t, g.Keep([]int{0}))

	src.rolls = [][]int{{2, 2, 2, 2, 2}}
	g.Roll()
	require.True(t, g.Keep([]int{0}))

	// all sixes on a later roll with four dice is just a roll
	src.rolls = [][]int{{6, 6, 6, 6}}
	g.Roll()
	require.False(t, g.MoonShot())
	require.False(t, g.Finished())
}

func TestTurnStaysWithUnfinishedPlayer(t *testing.T) {
	t.Parallel()

	// alice burns all five rolls keeping one die each time, finishing
	// with 5 rolls used but only 5 kept after her last keep; bob keeps
	// his whole first roll and finishes immediately.
	src := &script{}
	g := New(alice, bob, src)

	// round 1: alice keeps one, bob keeps all five
	src.rolls = [][]int{{5, 5, 5, 5, 5}}
	g.Roll()
	require.True(t, g.Keep([]int{0}))
	require.Equal(t, bob, g.CurrentPlayer())

	src.rolls = [][]int{{1, 1, 1, 1, 2}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4}))
	require.True(t, g.PlayerFinished(bob))
	require.False(t, g.Finished())

	// bob is done; every remaining turn belongs to alice
	for i := 0; i < 3; i++ {
		require.Equal(t, alice, g.CurrentPlayer())
		src.rolls = [][]int{make([]int, 4-i)}
		for j := range src.rolls[0] {
			src.rolls[0][j] = 5
		}
		g.Roll()
		require.True(t, g.Keep([]int{0}))
	}

	require.Equal(t, alice, g.CurrentPlayer())
	src.rolls = [][]int{{5}}
	g.Roll()
	require.True(t, g.Keep([]int{0}))

	require.True(t, g.Finished())
	require.Equal(t, bob, g.Outcome().Winner)
	require.Equal(t, alice, g.Outcome().Loser)
	requireInvariants(t, g)
}

func TestFinishedByRollLimit(t *testing.T) {
	t.Parallel()

	src := &script{}
	g := New(alice, bob, src)

	// bob finishes fast so alice gets consecutive turns
	src.rolls = [][]int{{2, 4, 4, 4, 4}}
	g.Roll()
	require.True(t, g.Keep([]int{0}))

	src.rolls = [][]int{{3, 3, 3, 3, 3}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4}))
	require.True(t, g.PlayerFinished(bob))

	// alice keeps a single die per roll until her rolls run out
	for i := 0; i < 4; i++ {
		src.rolls = [][]int{make([]int, 4-i)}
		for j := range src.rolls[0] {
			src.rolls[0][j] = 6
		}
		g.Roll()
		require.True(t, g.Keep([]int{0}))
	}

	require.True(t, g.PlayerFinished(alice))
	require.Equal(t, MaxRolls, g.State(alice).RollsUsed)
	require.True(t, g.Finished())
	requireInvariants(t, g)
}

func TestTie(t *testing.T) {
	t.Parallel()

	src := &script{}
	g := New(alice, bob, src)

	src.rolls = [][]int{{2, 5, 1, 1, 1}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4})) // alice: 10

	src.rolls = [][]int{{5, 5, 3, 3, 3}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4})) // bob: 10

	require.True(t, g.Finished())
	out := g.Outcome()
	require.True(t, out.IsTie)
	require.Zero(t, out.Winner)
	require.Zero(t, out.Loser)
	requireInvariants(t, g)
}

func TestRollAfterFinishIsNoop(t *testing.T) {
	t.Parallel()

	src := &script{rolls: [][]int{{6, 6, 6, 6, 6}}}
	g := New(alice, bob, src)
	g.Roll()
	require.True(t, g.Finished())

	require.Nil(t, g.Roll())
	require.False(t, g.Keep([]int{0}))
}

func TestOutcomeExactlyOneOfTieOrWinner(t *testing.T) {
	t.Parallel()

	src := &script{}
	g := New(alice, bob, src)

	src.rolls = [][]int{{3, 3, 3, 3, 3}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4})) // alice: 0

	src.rolls = [][]int{{4, 4, 4, 4, 4}}
	g.Roll()
	require.True(t, g.Keep([]int{0, 1, 2, 3, 4})) // bob: 20

	out := g.Outcome()
	require.True(t, g.Finished())
	require.False(t, out.IsTie)
	require.Equal(t, alice, out.Winner)
	require.Equal(t, bob, out.Loser)
}
