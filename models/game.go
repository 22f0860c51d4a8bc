package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"sweeps-settlement-system/money"
)

type GameKind string

const (
	GameSlot GameKind = "slot"
	GameDice GameKind = "dice"
)

// Game is a playable catalog entry.
type Game struct {
	ID     string       `json:"id" gorm:"primaryKey;type:uuid"`
	Slug   string       `json:"slug" gorm:"uniqueIndex;not null"`
	Name   string       `json:"name" gorm:"not null"`
	Kind   GameKind     `json:"kind" gorm:"type:varchar(16);not null"`
	RTP    float64      `json:"rtp" gorm:"column:rtp;not null;default:96"` // percent, slots only
	MinBet money.Amount `json:"min_bet" gorm:"not null;default:1"`
	MaxBet money.Amount `json:"max_bet" gorm:"not null;default:0"` // 0 = no game cap
	Active bool         `json:"active" gorm:"default:true"`

	Timestamps
}

// GameResult records one settled wager. Rows are never updated.
type GameResult struct {
	ID         string          `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID   string          `json:"player_id" gorm:"type:uuid;not null;index"`
	Player     Player          `json:"-" gorm:"foreignKey:PlayerID"`
	GameID     string          `json:"game_id" gorm:"type:uuid;not null;index"`
	Game       Game            `json:"-" gorm:"foreignKey:GameID"`
	Currency   Currency        `json:"currency" gorm:"type:varchar(2);not null"`
	Bet        money.Amount    `json:"bet" gorm:"not null"`
	Win        money.Amount    `json:"win" gorm:"not null"`
	Multiplier decimal.Decimal `json:"multiplier" gorm:"type:decimal(16,8);not null"`
	Outcome    datatypes.JSON  `json:"outcome"`
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}
