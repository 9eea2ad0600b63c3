package match

import "github.com/threes-games/threes/internal/threesbot/game"

type EventKind uint8

const (
	EventChallengeIssued EventKind = iota + 1
	EventChallengeAccepted
	EventChallengeExpired
	EventRolled
	EventKept
	EventAutoKept
	EventTurnPrompt
	EventFinished
	EventRematchOffered
	EventRematchStarted
	EventDrawDeclared
)

// Event is a presentation-layer notification. Actor is the player the
// event is about; Values carries rolled or kept dice where relevant;
// Outcome is set only on EventFinished.
type Event struct {
	Kind    EventKind
	Code    int64
	Actor   int64
	Values  []int
	Score   int
	Outcome game.Outcome
}

// Notifier receives session events for rendering. Failures are logged
// by the session and never affect game state; implementations must not
// call back into the session from Notify.
type Notifier interface {
	Notify(event Event) error
}
