package models

import (
	"time"

	"sweeps-settlement-system/money"
)

// CoinPackage is a GC bundle sold for real money with bonus SC attached.
type CoinPackage struct {
	ID       string       `json:"id" gorm:"primaryKey;type:uuid"`
	Slug     string       `json:"slug" gorm:"uniqueIndex;not null"`
	Name     string       `json:"name" gorm:"not null"`
	PriceUSD money.Amount `json:"price_usd" gorm:"column:price_usd;not null"`
	GCAmount money.Amount `json:"gc_amount" gorm:"column:gc_amount;not null"`
	BonusSC  money.Amount `json:"bonus_sc" gorm:"column:bonus_sc;not null;default:0"`
	Active   bool         `json:"active" gorm:"default:true"`

	Timestamps
}

// CoinPurchase records a fulfilled package. A payment ref fulfils once.
type CoinPurchase struct {
	ID         string       `json:"id" gorm:"primaryKey;type:uuid"`
	PlayerID   string       `json:"player_id" gorm:"type:uuid;not null;index"`
	PackageID  string       `json:"package_id" gorm:"type:uuid;not null"`
	PaymentRef string       `json:"payment_ref" gorm:"uniqueIndex;not null"`
	GCAmount   money.Amount `json:"gc_amount" gorm:"column:gc_amount"`
	SCAmount   money.Amount `json:"sc_amount" gorm:"column:sc_amount"`
	CreatedAt  time.Time    `json:"created_at" gorm:"autoCreateTime"`
}
