package match

import (
	"time"

	"github.com/threes-games/threes/internal/dice"
	"github.com/threes-games/threes/internal/threesbot/game"
)

type Config struct {
	// Code is the table key the session is bound to.
	Code    int64
	GuildID int64

	Challenger int64
	// Opponent is zero for an open challenge; the session then waits in
	// the challenge stage until someone accepts.
	Opponent int64
	// BotID marks the opponent seat as the automated opponent.
	BotID int64

	Dice     dice.Source
	Notifier Notifier
	DoneFn   func(session *Session, outcome game.Outcome) error

	ChallengeTimeout time.Duration
	ConfirmTimeout   time.Duration
	RematchTimeout   time.Duration
	BotDelayMin      time.Duration
	BotDelayMax      time.Duration
}
