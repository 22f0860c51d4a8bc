package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/notify"
)

// Presence reports which players currently hold a push connection.
type Presence interface {
	OnlinePlayers() []string
}

// PaymentVerifier confirms a real-money payment before coins are granted.
type PaymentVerifier interface {
	Verify(ctx context.Context, playerID, paymentRef string, amount money.Amount) error
}

// StubPaymentVerifier accepts any non-empty reference. Real provider
// integration is out of scope for this service.
type StubPaymentVerifier struct{}

func (StubPaymentVerifier) Verify(_ context.Context, _, paymentRef string, _ money.Amount) error {
	if strings.TrimSpace(paymentRef) == "" {
		return validationf("payment_ref is required")
	}
	return nil
}

type PlayerService struct {
	DB       *gorm.DB
	Engine   *SettlementEngine
	Settings *SettingsService
	Presence Presence
	Payments PaymentVerifier
}

func NewPlayerService(db *gorm.DB, engine *SettlementEngine, settings *SettingsService) *PlayerService {
	return &PlayerService{
		DB:       db,
		Engine:   engine,
		Settings: settings,
		Payments: StubPaymentVerifier{},
	}
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Register creates the player for a gateway-issued id, credits the signup
// bonus, and rewards the referrer when a valid code is given.
func (s *PlayerService) Register(ctx context.Context, playerID, username, referralCode string) (*models.Player, error) {
	if _, err := uuid.Parse(playerID); err != nil {
		return nil, validationf("player id must be a uuid")
	}
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, validationf("username must be 3 to 32 characters")
	}
	settings, err := s.Settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	referralCode = strings.ToUpper(strings.TrimSpace(referralCode))

	var out models.Player
	err = s.Engine.Transact(ctx, "register", func(l *Ledger) error {
		tx := l.Tx()

		var taken int64
		if err := tx.Model(&models.Player{}).
			Where("id = ? OR LOWER(username) = ?", playerID, strings.ToLower(username)).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return conflictf("player or username already registered")
		}

		var referrer *models.Player
		if referralCode != "" {
			var r models.Player
			err := tx.Where("referral_code = ?", referralCode).First(&r).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("referral code", referralCode)
			}
			if err != nil {
				return err
			}
			referrer = &r
		}

		p := models.Player{
			ID:           playerID,
			Username:     username,
			KYCStatus:    models.KYCUnverified,
			Status:       models.PlayerActive,
			ReferralCode: newReferralCode(),
		}
		if referrer != nil {
			p.ReferredByID = &referrer.ID
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}

		if settings.SignupBonusGC > 0 || settings.SignupBonusSC > 0 {
			if _, err := l.Post(Posting{
				PlayerID:    playerID,
				Type:        models.TxBonus,
				GC:          settings.SignupBonusGC,
				SC:          settings.SignupBonusSC,
				Description: "signup bonus",
			}); err != nil {
				return err
			}
		}

		if referrer != nil {
			ref := models.Referral{
				ID:               uuid.NewString(),
				ReferrerID:       referrer.ID,
				ReferredID:       playerID,
				ReferralCodeUsed: referralCode,
				BonusGC:          settings.ReferralBonusGC,
				BonusSC:          settings.ReferralBonusSC,
			}
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
			if settings.ReferralBonusGC > 0 || settings.ReferralBonusSC > 0 {
				if _, err := l.Post(Posting{
					PlayerID:    referrer.ID,
					Type:        models.TxReferral,
					GC:          settings.ReferralBonusGC,
					SC:          settings.ReferralBonusSC,
					Description: "referral bonus for " + username,
					Reference:   ref.ID,
				}); err != nil {
					return err
				}
			}
		}

		locked, err := l.Lock(playerID)
		if err != nil {
			return err
		}
		out = *locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"player_id": playerID, "referred": referralCode != ""}).Info("✅ player registered")
	return &out, nil
}

func (s *PlayerService) Get(ctx context.Context, playerID string) (*models.Player, error) {
	var p models.Player
	err := s.DB.WithContext(ctx).Where("id = ?", playerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("player", playerID)
	}
	if err != nil {
		return nil, classify("get player", err)
	}
	return &p, nil
}

// History lists the player's ledger newest first.
func (s *PlayerService) History(ctx context.Context, playerID string, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var rows []models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, classify("history", err)
}

func (s *PlayerService) SetKYCStatus(ctx context.Context, playerID string, status models.KYCStatus) (*models.Player, error) {
	if !status.Valid() {
		return nil, validationf("unknown kyc status %q", status)
	}
	return s.updateField(ctx, playerID, "kyc_status", status)
}

func (s *PlayerService) SetStatus(ctx context.Context, playerID string, status models.PlayerStatus) (*models.Player, error) {
	if status != models.PlayerActive && status != models.PlayerDisabled {
		return nil, validationf("unknown player status %q", status)
	}
	return s.updateField(ctx, playerID, "status", status)
}

func (s *PlayerService) updateField(ctx context.Context, playerID, column string, value any) (*models.Player, error) {
	res := s.DB.WithContext(ctx).Model(&models.Player{}).Where("id = ?", playerID).Update(column, value)
	if res.Error != nil {
		return nil, classify("update player", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("player", playerID)
	}
	return s.Get(ctx, playerID)
}

// AdminAdjust applies a signed correction. It cannot take a balance below zero.
func (s *PlayerService) AdminAdjust(ctx context.Context, adminID, playerID string, gc, sc money.Amount, reason string) (*models.Player, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationf("reason is required")
	}
	if gc == 0 && sc == 0 {
		return nil, validationf("adjustment must change at least one balance")
	}
	var out models.Player
	err := s.Engine.Transact(ctx, "admin_adjustment", func(l *Ledger) error {
		if _, err := l.Post(Posting{
			PlayerID:    playerID,
			Type:        models.TxAdminAdjustment,
			GC:          gc,
			SC:          sc,
			Description: reason,
			Reference:   adminID,
		}); err != nil {
			return err
		}
		out = *l.players[playerID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"player_id": playerID, "admin_id": adminID, "gc": gc.String(), "sc": sc.String()}).
		Info("🛠️ admin adjustment applied")
	return &out, nil
}

type CoinPackageInput struct {
	Name     string       `json:"name"`
	PriceUSD money.Amount `json:"price_usd"`
	GCAmount money.Amount `json:"gc_amount"`
	BonusSC  money.Amount `json:"bonus_sc"`
}

func (s *PlayerService) CreateCoinPackage(ctx context.Context, in CoinPackageInput) (*models.CoinPackage, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationf("name is required")
	}
	if in.PriceUSD <= 0 || in.GCAmount <= 0 || in.BonusSC < 0 {
		return nil, validationf("price and gc amount must be positive, bonus must not be negative")
	}
	id := uuid.NewString()
	pkg := models.CoinPackage{
		ID:       id,
		Slug:     slug.Make(in.Name) + "-" + id[:8],
		Name:     in.Name,
		PriceUSD: in.PriceUSD,
		GCAmount: in.GCAmount,
		BonusSC:  in.BonusSC,
		Active:   true,
	}
	if err := s.DB.WithContext(ctx).Create(&pkg).Error; err != nil {
		return nil, classify("create coin package", err)
	}
	return &pkg, nil
}

func (s *PlayerService) ListCoinPackages(ctx context.Context) ([]models.CoinPackage, error) {
	var pkgs []models.CoinPackage
	err := s.DB.WithContext(ctx).Where("active = ?", true).Order("price_usd ASC").Find(&pkgs).Error
	return pkgs, classify("list coin packages", err)
}

// PurchaseCoins grants a package once per payment reference. Verification
// happens before the transaction opens.
func (s *PlayerService) PurchaseCoins(ctx context.Context, playerID, packageID, paymentRef string) (*models.Player, error) {
	var pkg models.CoinPackage
	err := s.DB.WithContext(ctx).Where("id = ? AND active = ?", packageID, true).First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("coin package", packageID)
	}
	if err != nil {
		return nil, classify("purchase", err)
	}
	if err := s.Payments.Verify(ctx, playerID, paymentRef, pkg.PriceUSD); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, validationf("payment could not be verified")
	}

	var out models.Player
	err = s.Engine.Transact(ctx, "purchase", func(l *Ledger) error {
		p, err := l.Lock(playerID)
		if err != nil {
			return err
		}
		if p.Status == models.PlayerDisabled {
			return ErrPlayerDisabled
		}
		var used int64
		if err := l.Tx().Model(&models.CoinPurchase{}).Where("payment_ref = ?", paymentRef).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return conflictf("payment already used")
		}
		purchase := models.CoinPurchase{
			ID:         uuid.NewString(),
			PlayerID:   playerID,
			PackageID:  pkg.ID,
			PaymentRef: paymentRef,
			GCAmount:   pkg.GCAmount,
			SCAmount:   pkg.BonusSC,
		}
		if err := l.Tx().Create(&purchase).Error; err != nil {
			return err
		}
		if _, err := l.Post(Posting{
			PlayerID:    playerID,
			Type:        models.TxPurchase,
			GC:          pkg.GCAmount,
			SC:          pkg.BonusSC,
			Description: "coin package " + pkg.Name,
			Reference:   purchase.ID,
		}); err != nil {
			return err
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RainResult summarizes a rain drop.
type RainResult struct {
	Recipients []string     `json:"recipients"`
	Share      money.Amount `json:"share"`
	Forfeited  money.Amount `json:"forfeited"`
}

// Rain splits totalSC evenly across recipients, or across every online
// player when none are given. An explicit list must name existing players;
// online ids are filtered down to active players. The indivisible remainder
// is not paid out.
func (s *PlayerService) Rain(ctx context.Context, adminID string, totalSC money.Amount, recipients []string) (*RainResult, error) {
	if totalSC <= 0 {
		return nil, validationf("rain amount must be positive")
	}
	online := len(recipients) == 0
	if online && s.Presence != nil {
		recipients = s.Presence.OnlinePlayers()
	}
	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil, validationf("no recipients for rain")
	}

	var share money.Amount
	err := s.Engine.Transact(ctx, "rain", func(l *Ledger) error {
		if online {
			// ids are uuid columns; anything else cannot be a player
			candidates := make([]string, 0, len(recipients))
			for _, id := range recipients {
				if _, err := uuid.Parse(id); err == nil {
					candidates = append(candidates, id)
				}
			}
			var active []string
			if len(candidates) > 0 {
				if err := l.Tx().Model(&models.Player{}).
					Where("id IN ? AND status = ?", candidates, models.PlayerActive).
					Order("id").
					Pluck("id", &active).Error; err != nil {
					return err
				}
			}
			if len(active) == 0 {
				return validationf("no active players online for rain")
			}
			recipients = active
		}
		share = totalSC / money.Amount(len(recipients))
		if share == 0 {
			return validationf("rain amount too small for %d recipients", len(recipients))
		}
		if err := l.LockAll(recipients); err != nil {
			return err
		}
		for _, id := range recipients {
			if _, err := l.Post(Posting{
				PlayerID:    id,
				Type:        models.TxRain,
				SC:          share,
				Description: "rain",
				Reference:   adminID,
			}); err != nil {
				return err
			}
		}
		l.Announce(notify.Announcement{
			Type:    notify.TypeRain,
			Message: fmt.Sprintf("It's raining! %s SC dropped to %d players", share, len(recipients)),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RainResult{
		Recipients: recipients,
		Share:      share,
		Forfeited:  totalSC - share*money.Amount(len(recipients)),
	}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
