package models

import (
	"time"

	"sweeps-settlement-system/money"
)

// TxType tags every wallet log entry.
type TxType string

const (
	TxBonus            TxType = "bonus"
	TxPurchase         TxType = "purchase"
	TxWagerResult      TxType = "wager_result"
	TxRedemptionReq    TxType = "redemption_request"
	TxRedemptionRefund TxType = "redemption_refund"
	TxTournamentEntry  TxType = "tournament_entry"
	TxTournamentWin    TxType = "tournament_win"
	TxAdminAdjustment  TxType = "admin_adjustment"
	TxReferral         TxType = "referral"
	TxTicketPurchase   TxType = "ticket_purchase"
	TxTicketWin        TxType = "ticket_win"
	TxRain             TxType = "rain"
)

// WalletTransaction is an append-only ledger row. The sum of a player's
// deltas always equals the player's balances.
type WalletTransaction struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID    string       `gorm:"type:uuid;not null;index" json:"player_id"`
	Player      Player       `gorm:"foreignKey:PlayerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Type        TxType       `gorm:"type:varchar(32);not null;index" json:"type"`
	GCDelta     money.Amount `gorm:"column:gc_delta;not null;default:0" json:"gc_delta"`
	SCDelta     money.Amount `gorm:"column:sc_delta;not null;default:0" json:"sc_delta"`
	Description string       `json:"description"`
	Reference   string       `gorm:"index" json:"reference,omitempty"` // game result, ticket, tournament or request id
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}
