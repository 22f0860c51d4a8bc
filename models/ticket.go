package models

import (
	"time"

	"gorm.io/datatypes"

	"sweeps-settlement-system/money"
)

// TicketType is a scratch/pull-tab product.
type TicketType struct {
	ID             string       `json:"id" gorm:"primaryKey;type:uuid"`
	Slug           string       `json:"slug" gorm:"uniqueIndex;not null"`
	Name           string       `json:"name" gorm:"not null"`
	Currency       Currency     `json:"currency" gorm:"type:varchar(2);not null"`
	Price          money.Amount `json:"price" gorm:"not null"`
	WinProbability float64      `json:"win_probability" gorm:"not null"`
	MinPrize       money.Amount `json:"min_prize" gorm:"not null"`
	MaxPrize       money.Amount `json:"max_prize" gorm:"not null"`
	Active         bool         `json:"active" gorm:"default:true"`

	Timestamps
}

type TicketStatus string

const (
	TicketPurchased TicketStatus = "purchased"
	TicketRevealed  TicketStatus = "revealed"
	TicketClaimed   TicketStatus = "claimed"
	TicketSaved     TicketStatus = "saved"
)

// TicketPurchase carries an outcome fixed at purchase. Win, Prize and Outcome
// are never rewritten.
type TicketPurchase struct {
	ID           string         `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID     string         `json:"player_id" gorm:"type:uuid;not null;index"`
	Player       Player         `json:"-" gorm:"foreignKey:PlayerID"`
	TicketTypeID string         `json:"ticket_type_id" gorm:"type:uuid;not null;index"`
	TicketType   TicketType     `json:"-" gorm:"foreignKey:TicketTypeID"`
	Currency     Currency       `json:"currency" gorm:"type:varchar(2);not null"`
	Price        money.Amount   `json:"price" gorm:"not null"`
	Win          bool           `json:"-" gorm:"not null"`
	Prize        money.Amount   `json:"-" gorm:"not null;default:0"`
	Outcome      datatypes.JSON `json:"-"`
	Status       TicketStatus   `json:"status" gorm:"type:varchar(16);not null;default:'purchased';index"`
	RevealedAt   *time.Time     `json:"revealed_at,omitempty"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty"`

	Timestamps
}
