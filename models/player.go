package models

import "sweeps-settlement-system/money"

// Currency selects one of the two wallet balances.
type Currency string

const (
	CurrencyGC Currency = "GC"
	CurrencySC Currency = "SC"
)

func (c Currency) Valid() bool {
	return c == CurrencyGC || c == CurrencySC
}

// BalanceColumn is the players column holding this currency.
func (c Currency) BalanceColumn() string {
	if c == CurrencySC {
		return "sc_balance"
	}
	return "gc_balance"
}

type KYCStatus string

const (
	KYCUnverified KYCStatus = "unverified"
	KYCPending    KYCStatus = "pending"
	KYCVerified   KYCStatus = "verified"
	KYCRejected   KYCStatus = "rejected"
)

func (k KYCStatus) Valid() bool {
	switch k {
	case KYCUnverified, KYCPending, KYCVerified, KYCRejected:
		return true
	}
	return false
}

type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerDisabled PlayerStatus = "disabled"
)

// Player owns the two balances. Rows are never deleted; disabling is a status.
type Player struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string       `gorm:"uniqueIndex;not null" json:"username"`
	GCBalance    money.Amount `gorm:"column:gc_balance;not null;default:0;check:chk_players_gc_balance,gc_balance >= 0" json:"gc_balance"`
	SCBalance    money.Amount `gorm:"column:sc_balance;not null;default:0;check:chk_players_sc_balance,sc_balance >= 0" json:"sc_balance"`
	TotalWagered money.Amount `gorm:"not null;default:0" json:"total_wagered"`
	KYCStatus    KYCStatus    `gorm:"column:kyc_status;type:varchar(16);not null;default:'unverified'" json:"kyc_status"`
	Status       PlayerStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	ReferralCode string       `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredByID *string      `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`

	Timestamps
}

func (p *Player) Balance(c Currency) money.Amount {
	if c == CurrencySC {
		return p.SCBalance
	}
	return p.GCBalance
}
