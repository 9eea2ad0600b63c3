package model

import (
	"time"

	"github.com/google/uuid"
)

func NewStat(guildID, userID int64) Stat {
	return Stat{ID: uuid.New(), GuildID: guildID, UserID: userID, UpdatedAt: time.Now()}
}

// Stat is the cumulative match record for one player inside one guild.
type Stat struct {
	ID      uuid.UUID `json:"id"`
	GuildID int64     `json:"guildID"`
	UserID  int64     `json:"userID"`

	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	MoonShots int `json:"moonShots"`

	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Stat) Games() int {
	return s.Wins + s.Losses
}
