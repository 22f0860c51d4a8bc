package models

import "time"

// SiteSetting persists an admin override of a recognized setting key.
type SiteSetting struct {
	Key       string    `json:"key" gorm:"primaryKey;size:64"`
	Value     string    `json:"value" gorm:"not null"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LedgerExportCursor remembers the last wallet transaction shipped by an exporter.
type LedgerExportCursor struct {
	Name      string    `gorm:"primaryKey;size:64"`
	LastID    uint64    `gorm:"not null;default:0"`
	ObjectKey string
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
