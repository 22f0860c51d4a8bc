package models

import "time"

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// All lists every persisted model for AutoMigrate.
func All() []any {
	return []any{
		&Player{},
		&WalletTransaction{},
		&Referral{},
		&Game{},
		&GameResult{},
		&Tournament{},
		&TournamentParticipant{},
		&TicketType{},
		&TicketPurchase{},
		&RedemptionRequest{},
		&CoinPackage{},
		&CoinPurchase{},
		&SiteSetting{},
		&LedgerExportCursor{},
	}
}
