package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/notify"
)

// SettlementEngine is the only writer of player balances. Every mutation runs
// inside Transact, which locks each touched player row for the rest of the
// transaction and publishes notifications only after commit.
type SettlementEngine struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	now      func() time.Time
}

func NewSettlementEngine(db *gorm.DB, notifier notify.Notifier) *SettlementEngine {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &SettlementEngine{DB: db, Notifier: notifier, now: time.Now}
}

// Posting is one signed ledger movement for one player.
type Posting struct {
	PlayerID    string
	Type        models.TxType
	GC          money.Amount
	SC          money.Amount
	Wagered     money.Amount
	Description string
	Reference   string
}

// Ledger is the transaction-scoped handle passed to Transact callbacks.
type Ledger struct {
	tx       *gorm.DB
	now      time.Time
	players  map[string]*models.Player
	posted   []string
	announce []notify.Announcement
}

func (l *Ledger) Tx() *gorm.DB                   { return l.tx }
func (l *Ledger) Now() time.Time                 { return l.now }
func (l *Ledger) Announce(a notify.Announcement) { l.announce = append(l.announce, a) }

// Lock selects the player row FOR UPDATE. Repeated calls return the cached row.
func (l *Ledger) Lock(playerID string) (*models.Player, error) {
	if p, ok := l.players[playerID]; ok {
		return p, nil
	}
	var p models.Player
	err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", playerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("player", playerID)
	}
	if err != nil {
		return nil, err
	}
	l.players[playerID] = &p
	return &p, nil
}

// LockAll locks players in id order so multi-player transactions cannot
// deadlock each other.
func (l *Ledger) LockAll(playerIDs []string) error {
	ids := append([]string(nil), playerIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := l.Lock(id); err != nil {
			return err
		}
	}
	return nil
}

// Post applies a posting and appends its log row. The update is guarded in
// SQL as well, so a balance can never be driven below zero.
func (l *Ledger) Post(p Posting) (*models.WalletTransaction, error) {
	player, err := l.Lock(p.PlayerID)
	if err != nil {
		return nil, err
	}
	if player.GCBalance+p.GC < 0 || player.SCBalance+p.SC < 0 {
		return nil, ErrInsufficientBalance
	}

	res := l.tx.Model(&models.Player{}).
		Where("id = ? AND gc_balance + ? >= 0 AND sc_balance + ? >= 0", p.PlayerID, int64(p.GC), int64(p.SC)).
		Updates(map[string]any{
			"gc_balance":    gorm.Expr("gc_balance + ?", int64(p.GC)),
			"sc_balance":    gorm.Expr("sc_balance + ?", int64(p.SC)),
			"total_wagered": gorm.Expr("total_wagered + ?", int64(p.Wagered)),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, ErrInsufficientBalance
	}

	entry := models.WalletTransaction{
		PlayerID:    p.PlayerID,
		Type:        p.Type,
		GCDelta:     p.GC,
		SCDelta:     p.SC,
		Description: p.Description,
		Reference:   p.Reference,
		CreatedAt:   l.now,
	}
	if err := l.tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	player.GCBalance += p.GC
	player.SCBalance += p.SC
	player.TotalWagered += p.Wagered
	l.markPosted(p.PlayerID)
	return &entry, nil
}

func (l *Ledger) markPosted(playerID string) {
	for _, id := range l.posted {
		if id == playerID {
			return
		}
	}
	l.posted = append(l.posted, playerID)
}

// Transact runs fn in one database transaction. Errors that are not domain
// errors come back as StorageFault; nothing from a failed run is published.
func (e *SettlementEngine) Transact(ctx context.Context, op string, fn func(l *Ledger) error) error {
	l := &Ledger{now: e.now().UTC(), players: make(map[string]*models.Player)}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l.tx = tx
		return fn(l)
	})
	if err != nil {
		err = classify(op, err)
		if _, ok := err.(*StorageFault); ok {
			log.WithError(err).WithField("op", op).Error("❌ settlement rolled back")
		}
		return err
	}
	e.publish(l)
	return nil
}

func (e *SettlementEngine) publish(l *Ledger) {
	for _, id := range l.posted {
		p := l.players[id]
		e.Notifier.BalanceChanged(notify.BalanceUpdate{PlayerID: id, GC: p.GCBalance, SC: p.SCBalance})
	}
	for _, a := range l.announce {
		e.Notifier.Announce(a)
	}
}

// ScoreEvent feeds a settled wager into the player's active tournaments.
type ScoreEvent struct {
	GameID     string
	Bet        money.Amount
	Win        money.Amount
	Multiplier decimal.Decimal
}

// Settlement describes one player-initiated balance change.
type Settlement struct {
	PlayerID    string
	Currency    models.Currency
	Debit       money.Amount
	Credit      money.Amount
	Wagered     money.Amount
	Type        models.TxType
	Description string
	Reference   string

	// Score, when set, updates qualifying tournament scores in the same transaction.
	Score *ScoreEvent
	// Before runs after the player row is locked and before any write.
	Before func(l *Ledger, p *models.Player) error
	// After runs once the balance and log row are written.
	After func(l *Ledger, p *models.Player) error
}

// Settle debits then credits one currency atomically and returns the new
// balances. Debit must be covered by the balance before the credit applies.
func (e *SettlementEngine) Settle(ctx context.Context, s Settlement) (*models.Player, error) {
	if !s.Currency.Valid() {
		return nil, validationf("unknown currency %q", s.Currency)
	}
	if s.Debit < 0 || s.Credit < 0 {
		return nil, validationf("debit and credit must not be negative")
	}

	var out models.Player
	err := e.Transact(ctx, string(s.Type), func(l *Ledger) error {
		p, err := l.Lock(s.PlayerID)
		if err != nil {
			return err
		}
		if p.Status == models.PlayerDisabled {
			return ErrPlayerDisabled
		}
		if s.Before != nil {
			if err := s.Before(l, p); err != nil {
				return err
			}
		}
		if s.Debit > p.Balance(s.Currency) {
			return ErrInsufficientBalance
		}

		net := s.Credit - s.Debit
		posting := Posting{
			PlayerID:    s.PlayerID,
			Type:        s.Type,
			Wagered:     s.Wagered,
			Description: s.Description,
			Reference:   s.Reference,
		}
		if s.Currency == models.CurrencySC {
			posting.SC = net
		} else {
			posting.GC = net
		}
		if _, err := l.Post(posting); err != nil {
			return err
		}

		if s.After != nil {
			if err := s.After(l, p); err != nil {
				return err
			}
		}
		if s.Score != nil {
			if err := recordTournamentScore(l, s.PlayerID, s.Currency, *s.Score); err != nil {
				return err
			}
		}
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
