package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/games"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
)

type TicketService struct {
	DB     *gorm.DB
	Engine *SettlementEngine
	Source games.Source
}

func NewTicketService(db *gorm.DB, engine *SettlementEngine) *TicketService {
	return &TicketService{DB: db, Engine: engine, Source: games.SystemSource()}
}

type TicketTypeInput struct {
	Name           string          `json:"name"`
	Currency       models.Currency `json:"currency"`
	Price          money.Amount    `json:"price"`
	WinProbability float64         `json:"win_probability"`
	MinPrize       money.Amount    `json:"min_prize"`
	MaxPrize       money.Amount    `json:"max_prize"`
}

func (s *TicketService) CreateTicketType(ctx context.Context, in TicketTypeInput) (*models.TicketType, error) {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return nil, validationf("name is required")
	case !in.Currency.Valid():
		return nil, validationf("currency must be GC or SC")
	case in.Price <= 0:
		return nil, validationf("price must be positive")
	case in.WinProbability < 0 || in.WinProbability > 1:
		return nil, validationf("win_probability must be within [0, 1]")
	case in.MinPrize < 0 || in.MaxPrize < in.MinPrize:
		return nil, validationf("prize range must satisfy 0 <= min_prize <= max_prize")
	}
	id := uuid.NewString()
	tt := models.TicketType{
		ID:             id,
		Slug:           slug.Make(in.Name) + "-" + id[:8],
		Name:           in.Name,
		Currency:       in.Currency,
		Price:          in.Price,
		WinProbability: in.WinProbability,
		MinPrize:       in.MinPrize,
		MaxPrize:       in.MaxPrize,
		Active:         true,
	}
	if err := s.DB.WithContext(ctx).Create(&tt).Error; err != nil {
		return nil, classify("create ticket type", err)
	}
	return &tt, nil
}

func (s *TicketService) ListTicketTypes(ctx context.Context) ([]models.TicketType, error) {
	var out []models.TicketType
	err := s.DB.WithContext(ctx).Where("active = ?", true).Order("price ASC").Find(&out).Error
	return out, classify("list ticket types", err)
}

// TicketResult discloses a ticket's fixed outcome once it has been revealed.
type TicketResult struct {
	Ticket models.TicketPurchase `json:"ticket"`
	Win    bool                  `json:"win"`
	Prize  money.Amount          `json:"prize"`
}

// Purchase draws the outcome once and stores it with the debit.
func (s *TicketService) Purchase(ctx context.Context, playerID, ticketTypeID string) (*models.TicketPurchase, *models.Player, error) {
	var tt models.TicketType
	err := s.DB.WithContext(ctx).Where("id = ?", ticketTypeID).First(&tt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, notFound("ticket type", ticketTypeID)
	}
	if err != nil {
		return nil, nil, classify("load ticket type", err)
	}
	if !tt.Active {
		return nil, nil, validationf("ticket type is not on sale")
	}

	out, err := games.DrawTicket(s.Source, tt.WinProbability, tt.MinPrize, tt.MaxPrize)
	if err != nil {
		return nil, nil, &ValidationError{Msg: err.Error()}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, nil, err
	}

	ticket := models.TicketPurchase{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		TicketTypeID: tt.ID,
		Currency:     tt.Currency,
		Price:        tt.Price,
		Win:          out.Win,
		Prize:        out.Prize,
		Outcome:      datatypes.JSON(payload),
		Status:       models.TicketPurchased,
	}
	balance, err := s.Engine.Settle(ctx, Settlement{
		PlayerID:    playerID,
		Currency:    tt.Currency,
		Debit:       tt.Price,
		Type:        models.TxTicketPurchase,
		Description: "ticket " + tt.Name,
		Reference:   ticket.ID,
		After: func(l *Ledger, _ *models.Player) error {
			return l.Tx().Omit(clause.Associations).Create(&ticket).Error
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return &ticket, balance, nil
}

// Reveal moves purchased to revealed and returns the outcome stored at purchase.
func (s *TicketService) Reveal(ctx context.Context, playerID, ticketID string) (*TicketResult, error) {
	var ticket models.TicketPurchase
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transition(tx, playerID, ticketID, models.TicketPurchased, models.TicketRevealed, "revealed_at", false); err != nil {
			return err
		}
		return tx.Where("id = ?", ticketID).First(&ticket).Error
	})
	if err != nil {
		return nil, classify("reveal ticket", err)
	}
	return &TicketResult{Ticket: ticket, Win: ticket.Win, Prize: ticket.Prize}, nil
}

// Claim closes a revealed ticket and credits the prize when it won.
func (s *TicketService) Claim(ctx context.Context, playerID, ticketID string) (*TicketResult, *models.Player, error) {
	var ticket models.TicketPurchase
	var balance models.Player
	err := s.Engine.Transact(ctx, "ticket_win", func(l *Ledger) error {
		p, err := l.Lock(playerID)
		if err != nil {
			return err
		}
		if err := s.transition(l.Tx(), playerID, ticketID, models.TicketRevealed, models.TicketClaimed, "closed_at", false); err != nil {
			return err
		}
		if err := l.Tx().Where("id = ?", ticketID).First(&ticket).Error; err != nil {
			return err
		}
		if ticket.Win && ticket.Prize > 0 {
			posting := Posting{
				PlayerID:    playerID,
				Type:        models.TxTicketWin,
				Description: "ticket prize",
				Reference:   ticket.ID,
			}
			if ticket.Currency == models.CurrencySC {
				posting.SC = ticket.Prize
			} else {
				posting.GC = ticket.Prize
			}
			if _, err := l.Post(posting); err != nil {
				return err
			}
		}
		balance = *p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &TicketResult{Ticket: ticket, Win: ticket.Win, Prize: ticket.Prize}, &balance, nil
}

// Save keeps a revealed winning ticket as a collectible instead of claiming it.
func (s *TicketService) Save(ctx context.Context, playerID, ticketID string) (*TicketResult, error) {
	var ticket models.TicketPurchase
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transition(tx, playerID, ticketID, models.TicketRevealed, models.TicketSaved, "closed_at", true); err != nil {
			return err
		}
		return tx.Where("id = ?", ticketID).First(&ticket).Error
	})
	if err != nil {
		return nil, classify("save ticket", err)
	}
	return &TicketResult{Ticket: ticket, Win: ticket.Win, Prize: ticket.Prize}, nil
}

func (s *TicketService) List(ctx context.Context, playerID string) ([]models.TicketPurchase, error) {
	var out []models.TicketPurchase
	err := s.DB.WithContext(ctx).Where("player_id = ?", playerID).Order("created_at DESC").Find(&out).Error
	return out, classify("list tickets", err)
}

// transition performs a guarded status update. When no row matches it
// explains why: unknown ticket, wrong state, or a losing ticket being saved.
func (s *TicketService) transition(tx *gorm.DB, playerID, ticketID string, from, to models.TicketStatus, stampColumn string, winnersOnly bool) error {
	q := tx.Model(&models.TicketPurchase{}).
		Where("id = ? AND player_id = ? AND status = ?", ticketID, playerID, from)
	if winnersOnly {
		q = q.Where("win = ?", true)
	}
	res := q.Updates(map[string]any{"status": to, stampColumn: time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current models.TicketPurchase
	err := tx.Where("id = ? AND player_id = ?", ticketID, playerID).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("ticket", ticketID)
	}
	if err != nil {
		return err
	}
	if current.Status == from && winnersOnly && !current.Win {
		return validationf("only winning tickets can be saved")
	}
	return conflictf("ticket is %s, expected %s", current.Status, from)
}
