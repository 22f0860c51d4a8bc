package models

import (
	"time"

	"sweeps-settlement-system/money"
)

type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionPaid     RedemptionStatus = "paid"
	RedemptionRejected RedemptionStatus = "rejected"
)

// RedemptionRequest holds SC in escrow. FeeSC and PayoutAmount are frozen
// when the request is created.
type RedemptionRequest struct {
	ID           string           `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID     string           `json:"player_id" gorm:"type:uuid;not null;index"`
	Player       Player           `json:"-" gorm:"foreignKey:PlayerID"`
	AmountSC     money.Amount     `json:"amount_sc" gorm:"column:amount_sc;not null"`
	FeeSC        money.Amount     `json:"fee_sc" gorm:"column:fee_sc;not null"`
	PayoutAmount money.Amount     `json:"payout_amount" gorm:"not null"`
	Status       RedemptionStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	ReviewedBy   string           `json:"reviewed_by,omitempty"`
	Note         string           `json:"note,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewed_at,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`

	Timestamps
}
