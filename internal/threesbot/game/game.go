package game

import (
	"sort"

	"github.com/threes-games/threes/internal/dice"
)

const (
	// NumDice is the number of dice each player plays with.
	NumDice = 5
	// MaxRolls is the number of rolls each player gets.
	MaxRolls = 5
)

// PlayerState tracks one player's dice over a single game.
type PlayerState struct {
	Kept        []int `json:"kept"`
	CurrentRoll []int `json:"currentRoll"`
	RollsUsed   int   `json:"rollsUsed"`
	Finished    bool  `json:"finished"`
}

// Score sums the kept dice; a 3 counts as zero.
func (s *PlayerState) Score() int {
	var sum int
	for _, d := range s.Kept {
		if d != 3 {
			sum += d
		}
	}
	return sum
}

func (s *PlayerState) DiceRemaining() int {
	return NumDice - len(s.Kept)
}

func (s *PlayerState) RollsRemaining() int {
	return MaxRolls - s.RollsUsed
}

// Outcome is the terminal result of a game. Winner and Loser are zero
// while the game is running and on a tie.
type Outcome struct {
	Winner   int64
	Loser    int64
	IsTie    bool
	MoonShot bool
}

// Game holds the authoritative state of one two-player match. It is not
// internally synchronized; a game is owned by its table's session loop
// and mutated only there.
type Game struct {
	players    [2]int64
	currentIdx int
	states     map[int64]*PlayerState

	finished bool
	winner   int64
	loser    int64
	isTie    bool
	moonShot bool

	src dice.Source
}

// New creates a game in its initial state. Play order is playerA first.
// Player identifiers must be distinct and nonzero.
func New(playerA, playerB int64, src dice.Source) *Game {
	return &Game{
		players: [2]int64{playerA, playerB},
		states: map[int64]*PlayerState{
			playerA: {},
			playerB: {},
		},
		src: src,
	}
}

func (g *Game) Players() [2]int64 {
	return g.players
}

func (g *Game) CurrentPlayer() int64 {
	return g.players[g.currentIdx]
}

func (g *Game) currentState() *PlayerState {
	return g.states[g.CurrentPlayer()]
}

// State returns a copy of a player's state for rendering. An unknown
// player yields a zero state.
func (g *Game) State(player int64) PlayerState {
	s, ok := g.states[player]
	if !ok {
		return PlayerState{}
	}

	out := PlayerState{RollsUsed: s.RollsUsed, Finished: s.Finished}
	out.Kept = append(out.Kept, s.Kept...)
	out.CurrentRoll = append(out.CurrentRoll, s.CurrentRoll...)
	return out
}

// Roll draws the current player's remaining dice and stores them as the
// pending roll. It returns nil when the player has nothing to roll.
// Rolling five 6s on a player's first roll shoots the moon and ends the
// game on the spot; callers must check MoonShot to tell that apart from
// the no-op case.
func (g *Game) Roll() []int {
	state := g.currentState()
	if state.Finished || state.RollsRemaining() <= 0 {
		return nil
	}

	numDice := state.DiceRemaining()
	if numDice <= 0 {
		return nil
	}

	state.CurrentRoll = g.src.Roll(numDice)
	state.RollsUsed++

	if len(state.Kept) == 0 && numDice == NumDice && allSixes(state.CurrentRoll) {
		state.Kept = state.CurrentRoll
		state.CurrentRoll = nil
		state.Finished = true
		g.moonShot = true
		g.finished = true
		g.winner = g.CurrentPlayer()
		g.loser = g.players[1-g.currentIdx]
		return nil
	}

	return state.CurrentRoll
}

func allSixes(values []int) bool {
	for _, v := range values {
		if v != 6 {
			return false
		}
	}
	return true
}

// Keep moves the dice at the given indices from the pending roll into
// the player's kept dice, then hands the turn over. Duplicate indices
// are collapsed. It reports false, without touching any state, when
// there is no pending roll, no index is given, or an index is out of
// range.
func (g *Game) Keep(indices []int) bool {
	state := g.currentState()
	if len(state.CurrentRoll) == 0 || len(indices) == 0 {
		return false
	}

	for _, i := range indices {
		if i < 0 || i >= len(state.CurrentRoll) {
			return false
		}
	}

	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)

	prev := -1
	for _, i := range sorted {
		if i == prev {
			continue
		}
		state.Kept = append(state.Kept, state.CurrentRoll[i])
		prev = i
	}

	state.CurrentRoll = nil

	if state.DiceRemaining() == 0 || state.RollsRemaining() == 0 {
		state.Finished = true
	}

	g.checkGameEnd()
	if !g.finished {
		g.switchToNextActivePlayer()
	}

	return true
}

// Turn passes to the other player unless they already finished; a
// player who still has rolls left keeps getting turns.
func (g *Game) switchToNextActivePlayer() {
	otherIdx := 1 - g.currentIdx
	if !g.states[g.players[otherIdx]].Finished {
		g.currentIdx = otherIdx
	}
}

func (g *Game) checkGameEnd() {
	for _, state := range g.states {
		if !state.Finished {
			return
		}
	}

	g.finished = true

	p1, p2 := g.players[0], g.players[1]
	s1, s2 := g.states[p1].Score(), g.states[p2].Score()
	switch {
	case s1 < s2:
		g.winner, g.loser = p1, p2
	case s2 < s1:
		g.winner, g.loser = p2, p1
	default:
		g.isTie = true
	}
}

func (g *Game) Score(player int64) int {
	s, ok := g.states[player]
	if !ok {
		return 0
	}
	return s.Score()
}

func (g *Game) KeptDice(player int64) []int {
	s, ok := g.states[player]
	if !ok {
		return nil
	}
	return append([]int(nil), s.Kept...)
}

func (g *Game) PlayerFinished(player int64) bool {
	s, ok := g.states[player]
	return ok && s.Finished
}

func (g *Game) Finished() bool {
	return g.finished
}

func (g *Game) MoonShot() bool {
	return g.moonShot
}

func (g *Game) Outcome() Outcome {
	return Outcome{Winner: g.winner, Loser: g.loser, IsTie: g.isTie, MoonShot: g.moonShot}
}
