package models

import "sweeps-settlement-system/money"

// Referral links a referee to the player whose code they registered with.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"type:uuid;index;not null" json:"referrer_id"`
	ReferredID string `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"`

	ReferralCodeUsed string       `gorm:"not null" json:"referral_code_used"`
	BonusGC          money.Amount `json:"bonus_gc"`
	BonusSC          money.Amount `json:"bonus_sc"`

	Timestamps
}
