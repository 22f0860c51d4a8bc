package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sweeps-settlement-system/money"
)

// Discrepancy is a player whose balances disagree with their ledger.
type Discrepancy struct {
	PlayerID  string       `json:"player_id"`
	GCBalance money.Amount `json:"gc_balance"`
	GCLedger  money.Amount `json:"gc_ledger"`
	SCBalance money.Amount `json:"sc_balance"`
	SCLedger  money.Amount `json:"sc_ledger"`
}

type AuditService struct {
	DB *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{DB: db}
}

const ledgerTotals = `
SELECT p.id AS player_id,
       p.gc_balance AS gc_balance,
       p.sc_balance AS sc_balance,
       CAST(COALESCE(SUM(w.gc_delta), 0) AS BIGINT) AS gc_ledger,
       CAST(COALESCE(SUM(w.sc_delta), 0) AS BIGINT) AS sc_ledger
FROM players p
LEFT JOIN wallet_transactions w ON w.player_id = p.id
%s
GROUP BY p.id, p.gc_balance, p.sc_balance
HAVING p.gc_balance <> COALESCE(SUM(w.gc_delta), 0)
    OR p.sc_balance <> COALESCE(SUM(w.sc_delta), 0)`

// Reconcile compares every balance with the sum of its ledger rows.
func (s *AuditService) Reconcile(ctx context.Context) ([]Discrepancy, error) {
	var out []Discrepancy
	if err := s.DB.WithContext(ctx).Raw(totalsQuery("")).Scan(&out).Error; err != nil {
		return nil, classify("reconcile", err)
	}
	for _, d := range out {
		log.WithFields(log.Fields{
			"player_id":  d.PlayerID,
			"gc_balance": d.GCBalance.String(),
			"gc_ledger":  d.GCLedger.String(),
			"sc_balance": d.SCBalance.String(),
			"sc_ledger":  d.SCLedger.String(),
		}).Error("🚨 ledger mismatch")
	}
	return out, nil
}

// VerifyPlayer returns nil when the player's balances match the ledger.
func (s *AuditService) VerifyPlayer(ctx context.Context, playerID string) (*Discrepancy, error) {
	var out []Discrepancy
	if err := s.DB.WithContext(ctx).Raw(totalsQuery("WHERE p.id = ?"), playerID).Scan(&out).Error; err != nil {
		return nil, classify("verify player", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func totalsQuery(where string) string {
	return fmt.Sprintf(ledgerTotals, where)
}
