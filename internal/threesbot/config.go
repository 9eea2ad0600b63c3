package threesbot

import (
	"time"

	"github.com/threes-games/threes/internal/database"
)

type Config struct {
	// Logging at debug level with the development encoder
	Debug bool `envconfig:"THREES_DEBUG" default:"false"`

	// Number of items in the stat cache
	CacheSize int `envconfig:"THREES_CACHE_SIZE" default:"1024"`

	// How long an open challenge waits for an opponent
	ChallengeTimeout time.Duration `envconfig:"THREES_CHALLENGE_TIMEOUT" default:"24h"`

	// Grace window before a single remaining die is kept automatically
	ConfirmTimeout time.Duration `envconfig:"THREES_CONFIRM_TIMEOUT" default:"10s"`

	// How long a rematch offer stands after a tie
	RematchTimeout time.Duration `envconfig:"THREES_REMATCH_TIMEOUT" default:"5m"`

	// Simulated thinking time of the automated opponent
	BotDelayMin time.Duration `envconfig:"THREES_BOT_DELAY_MIN" default:"2s"`
	BotDelayMax time.Duration `envconfig:"THREES_BOT_DELAY_MAX" default:"6s"`

	Db database.Config
}
