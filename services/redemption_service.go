package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
)

// RedemptionService moves SC out of a player's spendable balance into escrow
// and through admin review.
type RedemptionService struct {
	DB       *gorm.DB
	Engine   *SettlementEngine
	Settings *SettingsService
}

func NewRedemptionService(db *gorm.DB, engine *SettlementEngine, settings *SettingsService) *RedemptionService {
	return &RedemptionService{DB: db, Engine: engine, Settings: settings}
}

// Request debits amountSC immediately. The fee in force now is frozen on the
// request; later fee changes do not touch it.
func (s *RedemptionService) Request(ctx context.Context, playerID string, amountSC money.Amount) (*models.RedemptionRequest, *models.Player, error) {
	settings, err := s.Settings.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	if amountSC <= 0 || amountSC < settings.MinRedemptionSC {
		return nil, nil, validationf("minimum redemption is %s SC", settings.MinRedemptionSC)
	}
	payout := amountSC - settings.RedemptionFeeSC
	if payout <= 0 {
		return nil, nil, validationf("amount does not cover the %s SC fee", settings.RedemptionFeeSC)
	}

	req := models.RedemptionRequest{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		AmountSC:     amountSC,
		FeeSC:        settings.RedemptionFeeSC,
		PayoutAmount: payout,
		Status:       models.RedemptionPending,
	}
	balance, err := s.Engine.Settle(ctx, Settlement{
		PlayerID:    playerID,
		Currency:    models.CurrencySC,
		Debit:       amountSC,
		Type:        models.TxRedemptionReq,
		Description: "redemption request",
		Reference:   req.ID,
		Before: func(l *Ledger, p *models.Player) error {
			if p.KYCStatus != models.KYCVerified {
				return validationf("identity verification is required before redeeming")
			}
			var open int64
			if err := l.Tx().Model(&models.RedemptionRequest{}).
				Where("player_id = ? AND status IN ?", playerID,
					[]models.RedemptionStatus{models.RedemptionPending, models.RedemptionApproved}).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return conflictf("a redemption request is already in progress")
			}
			return nil
		},
		After: func(l *Ledger, _ *models.Player) error {
			return l.Tx().Omit(clause.Associations).Create(&req).Error
		},
	})
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(log.Fields{"player_id": playerID, "request_id": req.ID, "amount_sc": amountSC.String()}).
		Info("💸 redemption requested")
	return &req, balance, nil
}

// Approve marks a pending request approved. No ledger effect.
func (s *RedemptionService) Approve(ctx context.Context, adminID, requestID string) (*models.RedemptionRequest, error) {
	return s.review(ctx, adminID, requestID, "", models.RedemptionApproved,
		models.RedemptionPending)
}

// MarkPaid records the payout. The SC already left the balance at request time.
func (s *RedemptionService) MarkPaid(ctx context.Context, adminID, requestID string) (*models.RedemptionRequest, error) {
	return s.review(ctx, adminID, requestID, "", models.RedemptionPaid,
		models.RedemptionPending, models.RedemptionApproved)
}

// Reject returns the escrowed SC to the player.
func (s *RedemptionService) Reject(ctx context.Context, adminID, requestID, note string) (*models.RedemptionRequest, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	err = s.Engine.Transact(ctx, "redemption_refund", func(l *Ledger) error {
		if _, err := l.Lock(req.PlayerID); err != nil {
			return err
		}
		if err := s.transition(l.Tx(), adminID, requestID, note, l.Now(), models.RedemptionRejected,
			models.RedemptionPending); err != nil {
			return err
		}
		_, err := l.Post(Posting{
			PlayerID:    req.PlayerID,
			Type:        models.TxRedemptionRefund,
			SC:          req.AmountSC,
			Description: "redemption rejected",
			Reference:   req.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"request_id": requestID, "admin_id": adminID}).Info("↩️ redemption rejected, escrow returned")
	return s.Get(ctx, requestID)
}

func (s *RedemptionService) Get(ctx context.Context, requestID string) (*models.RedemptionRequest, error) {
	var req models.RedemptionRequest
	err := s.DB.WithContext(ctx).Where("id = ?", requestID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("redemption request", requestID)
	}
	if err != nil {
		return nil, classify("get redemption", err)
	}
	return &req, nil
}

// List returns requests, oldest first, optionally filtered by status and player.
func (s *RedemptionService) List(ctx context.Context, status models.RedemptionStatus, playerID string) ([]models.RedemptionRequest, error) {
	q := s.DB.WithContext(ctx).Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	var out []models.RedemptionRequest
	return out, classify("list redemptions", q.Find(&out).Error)
}

func (s *RedemptionService) review(ctx context.Context, adminID, requestID, note string, to models.RedemptionStatus, from ...models.RedemptionStatus) (*models.RedemptionRequest, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.transition(tx, adminID, requestID, note, time.Now().UTC(), to, from...)
	})
	if err != nil {
		return nil, classify("review redemption", err)
	}
	log.WithFields(log.Fields{"request_id": requestID, "admin_id": adminID, "status": to}).Info("redemption reviewed")
	return s.Get(ctx, requestID)
}

func (s *RedemptionService) transition(tx *gorm.DB, adminID, requestID, note string, at time.Time, to models.RedemptionStatus, from ...models.RedemptionStatus) error {
	updates := map[string]any{
		"status":      to,
		"reviewed_by": adminID,
		"reviewed_at": at,
	}
	if note != "" {
		updates["note"] = note
	}
	if to == models.RedemptionPaid {
		updates["paid_at"] = at
	}
	res := tx.Model(&models.RedemptionRequest{}).
		Where("id = ? AND status IN ?", requestID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current models.RedemptionRequest
	err := tx.Where("id = ?", requestID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("redemption request", requestID)
	}
	if err != nil {
		return err
	}
	return conflictf("redemption request is %s and cannot become %s", current.Status, to)
}
