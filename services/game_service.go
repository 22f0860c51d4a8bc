package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sweeps-settlement-system/games"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/ratelimit"
)

type GameService struct {
	DB       *gorm.DB
	Engine   *SettlementEngine
	Settings *SettingsService
	Limiter  ratelimit.Limiter
	Source   games.Source
}

func NewGameService(db *gorm.DB, engine *SettlementEngine, settings *SettingsService, limiter ratelimit.Limiter) *GameService {
	return &GameService{
		DB:       db,
		Engine:   engine,
		Settings: settings,
		Limiter:  limiter,
		Source:   games.SystemSource(),
	}
}

type CreateGameInput struct {
	Name   string          `json:"name"`
	Kind   models.GameKind `json:"kind"`
	RTP    float64         `json:"rtp"`
	MinBet money.Amount    `json:"min_bet"`
	MaxBet money.Amount    `json:"max_bet"`
}

func (s *GameService) CreateGame(ctx context.Context, in CreateGameInput) (*models.Game, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationf("name is required")
	}
	switch in.Kind {
	case models.GameSlot:
		if in.RTP <= 0 || in.RTP > 100 {
			return nil, validationf("rtp must be within (0, 100]")
		}
	case models.GameDice:
		in.RTP = 99
	default:
		return nil, validationf("kind must be slot or dice")
	}
	if in.MinBet <= 0 {
		in.MinBet = 1
	}
	if in.MaxBet != 0 && in.MaxBet < in.MinBet {
		return nil, validationf("max_bet must be at least min_bet")
	}

	id := uuid.NewString()
	g := models.Game{
		ID:     id,
		Slug:   slug.Make(in.Name) + "-" + id[:8],
		Name:   in.Name,
		Kind:   in.Kind,
		RTP:    in.RTP,
		MinBet: in.MinBet,
		MaxBet: in.MaxBet,
		Active: true,
	}
	if err := s.DB.WithContext(ctx).Create(&g).Error; err != nil {
		return nil, classify("create game", err)
	}
	log.WithFields(log.Fields{"game_id": g.ID, "kind": g.Kind}).Info("🎰 game created")
	return &g, nil
}

func (s *GameService) ListGames(ctx context.Context) ([]models.Game, error) {
	var out []models.Game
	err := s.DB.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&out).Error
	return out, classify("list games", err)
}

// WagerResult is what a player sees after a spin or roll.
type WagerResult struct {
	Result  models.GameResult `json:"result"`
	Outcome any               `json:"outcome"`
	Balance *models.Player    `json:"balance"`
}

// Spin plays one slot round and settles it.
func (s *GameService) Spin(ctx context.Context, playerID, gameID string, currency models.Currency, bet money.Amount) (*WagerResult, error) {
	game, err := s.prepare(ctx, playerID, gameID, models.GameSlot, currency, bet)
	if err != nil {
		return nil, err
	}
	out, err := games.Spin(s.Source, bet, game.RTP)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	return s.settle(ctx, playerID, game, currency, bet, out, out)
}

// RollDice plays one dice round and settles it.
func (s *GameService) RollDice(ctx context.Context, playerID, gameID string, currency models.Currency, bet money.Amount, target float64, dir games.Direction) (*WagerResult, error) {
	game, err := s.prepare(ctx, playerID, gameID, models.GameDice, currency, bet)
	if err != nil {
		return nil, err
	}
	out, err := games.Roll(s.Source, bet, target, dir)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	return s.settle(ctx, playerID, game, currency, bet, out.Outcome, out)
}

// prepare runs every check that needs no lock: rate limit, game lookup and
// bet bounds.
func (s *GameService) prepare(ctx context.Context, playerID, gameID string, kind models.GameKind, currency models.Currency, bet money.Amount) (*models.Game, error) {
	if s.Limiter != nil {
		ok, err := s.Limiter.Allow(ctx, playerID, string(kind))
		if err != nil {
			log.WithError(err).WithField("player_id", playerID).Warn("⚠️ rate limiter unavailable, allowing wager")
		} else if !ok {
			return nil, ErrRateLimited
		}
	}
	if !currency.Valid() {
		return nil, validationf("currency must be GC or SC")
	}

	var game models.Game
	err := s.DB.WithContext(ctx).Where("id = ?", gameID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("game", gameID)
	}
	if err != nil {
		return nil, classify("load game", err)
	}
	if !game.Active {
		return nil, validationf("game is not available")
	}
	if game.Kind != kind {
		return nil, validationf("game %s is not a %s game", game.Slug, kind)
	}

	if bet <= 0 || bet < game.MinBet {
		return nil, validationf("bet must be at least %s", game.MinBet)
	}
	if game.MaxBet > 0 && bet > game.MaxBet {
		return nil, validationf("bet exceeds the game maximum of %s", game.MaxBet)
	}
	settings, err := s.Settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	limit := settings.MaxBetGC
	if currency == models.CurrencySC {
		limit = settings.MaxBetSC
	}
	if limit > 0 && bet > limit {
		return nil, validationf("bet exceeds the %s maximum of %s", currency, limit)
	}
	return &game, nil
}

func (s *GameService) settle(ctx context.Context, playerID string, game *models.Game, currency models.Currency, bet money.Amount, out games.Outcome, detail any) (*WagerResult, error) {
	payload, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}
	result := models.GameResult{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		GameID:     game.ID,
		Currency:   currency,
		Bet:        bet,
		Win:        out.Payout,
		Multiplier: out.Multiplier,
		Outcome:    datatypes.JSON(payload),
	}

	balance, err := s.Engine.Settle(ctx, Settlement{
		PlayerID:    playerID,
		Currency:    currency,
		Debit:       bet,
		Credit:      out.Payout,
		Wagered:     bet,
		Type:        models.TxWagerResult,
		Description: fmt.Sprintf("%s bet %s won %s", game.Name, bet, out.Payout),
		Reference:   result.ID,
		Score: &ScoreEvent{
			GameID:     game.ID,
			Bet:        bet,
			Win:        out.Payout,
			Multiplier: out.Multiplier,
		},
		After: func(l *Ledger, _ *models.Player) error {
			result.CreatedAt = l.Now()
			return l.Tx().Create(&result).Error
		},
	})
	if err != nil {
		return nil, err
	}
	return &WagerResult{Result: result, Outcome: detail, Balance: balance}, nil
}
