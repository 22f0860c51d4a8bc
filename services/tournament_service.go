package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/notify"
)

// prizeShares are the percentages of the pool paid to ranks 1, 2 and 3.
// Lower ranks receive nothing and the pool is not redistributed.
var prizeShares = []int64{50, 30, 20}

// ErrSweepInProgress is returned when a sweep starts while another is running.
var ErrSweepInProgress = &ConflictError{Msg: "a tournament sweep is already running"}

type TournamentService struct {
	DB     *gorm.DB
	Engine *SettlementEngine
	now    func() time.Time

	// sweeping serializes scheduled and manual sweeps
	sweeping sync.Mutex
}

func NewTournamentService(db *gorm.DB, engine *SettlementEngine) *TournamentService {
	return &TournamentService{DB: db, Engine: engine, now: time.Now}
}

type CreateTournamentInput struct {
	Name            string             `json:"name"`
	GameID          string             `json:"game_id"`
	Currency        models.Currency    `json:"currency"`
	EntryFee        money.Amount       `json:"entry_fee"`
	PrizePool       money.Amount       `json:"prize_pool"`
	ScoringRule     models.ScoringRule `json:"scoring_rule"`
	MaxParticipants int                `json:"max_participants"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	switch {
	case strings.TrimSpace(in.Name) == "" || in.GameID == "":
		return nil, validationf("name and game_id are required")
	case !in.Currency.Valid():
		return nil, validationf("currency must be GC or SC")
	case !in.ScoringRule.Valid():
		return nil, validationf("unknown scoring rule %q", in.ScoringRule)
	case in.EntryFee < 0 || in.PrizePool < 0:
		return nil, validationf("entry_fee and prize_pool must not be negative")
	case in.MaxParticipants < 0:
		return nil, validationf("max_participants must not be negative")
	case in.StartTime.IsZero() || !in.EndTime.After(in.StartTime):
		return nil, validationf("end_time must be after start_time")
	}

	var game models.Game
	err := s.DB.WithContext(ctx).Where("id = ?", in.GameID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("game", in.GameID)
	}
	if err != nil {
		return nil, classify("create tournament", err)
	}

	id := uuid.NewString()
	t := models.Tournament{
		ID:              id,
		Slug:            slug.Make(in.Name) + "-" + id[:8],
		Name:            in.Name,
		GameID:          game.ID,
		Currency:        in.Currency,
		EntryFee:        in.EntryFee,
		PrizePool:       in.PrizePool,
		ScoringRule:     in.ScoringRule,
		MaxParticipants: in.MaxParticipants,
		Status:          models.TournamentUpcoming,
		StartTime:       in.StartTime.UTC(),
		EndTime:         in.EndTime.UTC(),
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(&t).Error; err != nil {
		return nil, classify("create tournament", err)
	}
	log.WithFields(log.Fields{"tournament_id": t.ID, "start": t.StartTime, "end": t.EndTime}).Info("🏆 tournament created")
	return &t, nil
}

func (s *TournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("tournament", id)
	}
	if err != nil {
		return nil, classify("get tournament", err)
	}
	return &t, nil
}

// List returns tournaments, optionally filtered by status, soonest first.
func (s *TournamentService) List(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	q := s.DB.WithContext(ctx).Order("start_time ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Tournament
	return out, classify("list tournaments", q.Find(&out).Error)
}

// Join registers the player and debits the entry fee in one transaction.
// The tournament row is locked first so capacity checks cannot race.
func (s *TournamentService) Join(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error) {
	var part models.TournamentParticipant
	err := s.Engine.Transact(ctx, "tournament_entry", func(l *Ledger) error {
		tx := l.Tx()
		var t models.Tournament
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", tournamentID).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("tournament", tournamentID)
		}
		if err != nil {
			return err
		}
		if t.Status == models.TournamentCompleted || !l.Now().Before(t.EndTime) {
			return validationf("tournament has ended")
		}

		p, err := l.Lock(playerID)
		if err != nil {
			return err
		}
		if p.Status == models.PlayerDisabled {
			return ErrPlayerDisabled
		}

		var existing int64
		if err := tx.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ? AND player_id = ?", t.ID, playerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return conflictf("already joined this tournament")
		}
		if t.MaxParticipants > 0 {
			var count int64
			if err := tx.Model(&models.TournamentParticipant{}).Where("tournament_id = ?", t.ID).Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(t.MaxParticipants) {
				return conflictf("tournament is full")
			}
		}
		if t.EntryFee > p.Balance(t.Currency) {
			return ErrInsufficientBalance
		}

		part = models.TournamentParticipant{
			ID:           uuid.NewString(),
			TournamentID: t.ID,
			PlayerID:     playerID,
			Score:        decimal.Zero,
			JoinedAt:     l.Now(),
		}
		if err := tx.Omit(clause.Associations).Create(&part).Error; err != nil {
			return err
		}

		if t.EntryFee > 0 {
			posting := Posting{
				PlayerID:    playerID,
				Type:        models.TxTournamentEntry,
				Description: "entry fee for " + t.Name,
				Reference:   t.ID,
			}
			if t.Currency == models.CurrencySC {
				posting.SC = -t.EntryFee
			} else {
				posting.GC = -t.EntryFee
			}
			if _, err := l.Post(posting); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &part, nil
}

type scoreRow struct {
	ParticipantID string
	ScoringRule   models.ScoringRule
	Score         decimal.Decimal
}

// recordTournamentScore updates every participation of playerID in an active
// tournament bound to the event's game and currency whose window contains now.
// The caller already holds the player lock, so these rows have one writer.
func recordTournamentScore(l *Ledger, playerID string, currency models.Currency, ev ScoreEvent) error {
	var rows []scoreRow
	err := l.Tx().Table("tournament_participants AS tp").
		Select("tp.id AS participant_id, t.scoring_rule AS scoring_rule, tp.score AS score").
		Joins("JOIN tournaments t ON t.id = tp.tournament_id").
		Where("tp.player_id = ? AND t.status = ? AND t.game_id = ? AND t.currency = ?",
			playerID, models.TournamentActive, ev.GameID, currency).
		Where("t.start_time <= ? AND t.end_time > ?", l.Now(), l.Now()).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, r := range rows {
		next := nextScore(r.ScoringRule, r.Score, ev)
		if next.Equal(r.Score) {
			continue
		}
		if err := l.Tx().Model(&models.TournamentParticipant{}).
			Where("id = ?", r.ParticipantID).
			Update("score", next).Error; err != nil {
			return err
		}
	}
	return nil
}

// nextScore never returns less than current.
func nextScore(rule models.ScoringRule, current decimal.Decimal, ev ScoreEvent) decimal.Decimal {
	switch rule {
	case models.ScoreHighestMultiplier:
		return decimal.Max(current, ev.Multiplier)
	case models.ScoreTotalWagered:
		return current.Add(ev.Bet.Decimal())
	case models.ScoreTotalWins:
		return current.Add(ev.Win.Decimal())
	}
	return current
}

// rankParticipants orders by score descending. Equal scores go to the earlier
// joiner, then to the lower participant id.
func rankParticipants(parts []models.TournamentParticipant) {
	sort.SliceStable(parts, func(i, j int) bool {
		a, b := parts[i], parts[j]
		if c := a.Score.Cmp(b.Score); c != 0 {
			return c > 0
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
}

// Leaderboard returns participants in ranking order.
func (s *TournamentService) Leaderboard(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	if _, err := s.Get(ctx, tournamentID); err != nil {
		return nil, err
	}
	var parts []models.TournamentParticipant
	if err := s.DB.WithContext(ctx).Where("tournament_id = ?", tournamentID).Find(&parts).Error; err != nil {
		return nil, classify("leaderboard", err)
	}
	rankParticipants(parts)
	return parts, nil
}

// SweepReport describes one scheduler pass.
type SweepReport struct {
	Activated int64             `json:"activated"`
	Completed []string          `json:"completed"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Sweep activates started tournaments and completes ended ones. Each
// completion runs in its own transaction; a failing tournament is logged and
// left active for the next sweep while the rest continue. Only one sweep runs
// at a time; a concurrent call gets ErrSweepInProgress.
func (s *TournamentService) Sweep(ctx context.Context) (*SweepReport, error) {
	if !s.sweeping.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.sweeping.Unlock()

	now := s.now().UTC()
	report := &SweepReport{Failed: map[string]string{}}

	res := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("status = ? AND start_time <= ?", models.TournamentUpcoming, now).
		Update("status", models.TournamentActive)
	if res.Error != nil {
		return report, classify("activate tournaments", res.Error)
	}
	report.Activated = res.RowsAffected
	if res.RowsAffected > 0 {
		log.WithField("count", res.RowsAffected).Info("[Scheduler] ▶️ tournaments activated")
	}

	var due []string
	if err := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("status = ? AND end_time <= ?", models.TournamentActive, now).
		Order("end_time ASC").
		Pluck("id", &due).Error; err != nil {
		return report, classify("find ended tournaments", err)
	}

	for _, id := range due {
		if ctx.Err() != nil {
			break
		}
		done, err := s.complete(ctx, id)
		if err != nil {
			fault := &SchedulerFault{TournamentID: id, Err: err}
			report.Failed[id] = err.Error()
			log.WithError(fault).WithField("tournament_id", id).Error("[Scheduler] ❌ tournament payout failed, will retry next sweep")
			continue
		}
		if done {
			report.Completed = append(report.Completed, id)
		}
	}
	return report, nil
}

// complete ranks, pays and closes one tournament. It reports false when the
// tournament was already completed by someone else.
func (s *TournamentService) complete(ctx context.Context, tournamentID string) (bool, error) {
	completed := false
	err := s.Engine.Transact(ctx, "tournament_win", func(l *Ledger) error {
		tx := l.Tx()
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", tournamentID).First(&t).Error; err != nil {
			return err
		}
		if t.Status != models.TournamentActive {
			return nil
		}

		// wagers score while holding their player lock, so once every
		// participant is locked no score update is in flight
		var playerIDs []string
		if err := tx.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ?", t.ID).
			Pluck("player_id", &playerIDs).Error; err != nil {
			return err
		}
		if err := l.LockAll(playerIDs); err != nil {
			return err
		}

		var parts []models.TournamentParticipant
		if err := tx.Where("tournament_id = ?", t.ID).Find(&parts).Error; err != nil {
			return err
		}
		rankParticipants(parts)

		type award struct {
			idx   int
			prize money.Amount
		}
		var awards []award
		for i := range parts {
			if i < len(prizeShares) {
				if prize := t.PrizePool.Percent(prizeShares[i]); prize > 0 {
					awards = append(awards, award{idx: i, prize: prize})
				}
			}
		}

		for _, a := range awards {
			p := &parts[a.idx]
			posting := Posting{
				PlayerID:    p.PlayerID,
				Type:        models.TxTournamentWin,
				Description: fmt.Sprintf("%s: rank %d", t.Name, a.idx+1),
				Reference:   t.ID,
			}
			if t.Currency == models.CurrencySC {
				posting.SC = a.prize
			} else {
				posting.GC = a.prize
			}
			if _, err := l.Post(posting); err != nil {
				return err
			}
			p.Prize = a.prize
			l.Announce(notify.Announcement{
				PlayerID: p.PlayerID,
				Type:     notify.TypeTournamentWin,
				Message:  fmt.Sprintf("You placed #%d in %s and won %s %s", a.idx+1, t.Name, a.prize, t.Currency),
			})
		}

		for i := range parts {
			parts[i].Rank = i + 1
			if err := tx.Model(&models.TournamentParticipant{}).
				Where("id = ?", parts[i].ID).
				Updates(map[string]any{"rank": parts[i].Rank, "prize": int64(parts[i].Prize)}).Error; err != nil {
				return err
			}
		}

		now := l.Now()
		if err := tx.Model(&models.Tournament{}).
			Where("id = ? AND status = ?", t.ID, models.TournamentActive).
			Updates(map[string]any{"status": models.TournamentCompleted, "completed_at": now}).Error; err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err == nil && completed {
		log.WithField("tournament_id", tournamentID).Info("[Scheduler] ✅ tournament completed and paid")
	}
	return completed, err
}
