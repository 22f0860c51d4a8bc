package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sweeps-settlement-system/config"
	"sweeps-settlement-system/games"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/notify"
)

// recorder captures notifications for assertions.
type recorder struct {
	mu       sync.Mutex
	balances []notify.BalanceUpdate
	announce []notify.Announcement
}

func (r *recorder) BalanceChanged(u notify.BalanceUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, u)
}

func (r *recorder) Announce(a notify.Announcement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announce = append(r.announce, a)
}

func (r *recorder) balanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balances)
}

// scripted replays fixed draws, then repeats the last one.
type scripted struct {
	mu    sync.Mutex
	draws []float64
}

func (s *scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.draws[0]
	if len(s.draws) > 1 {
		s.draws = s.draws[1:]
	}
	return v
}

func draws(d ...float64) games.Source { return &scripted{draws: d} }

type harness struct {
	db          *gorm.DB
	notes       *recorder
	engine      *SettlementEngine
	settings    *SettingsService
	players     *PlayerService
	games       *GameService
	tournaments *TournamentService
	tickets     *TicketService
	redemptions *RedemptionService
	audit       *AuditService
}

func testSettings() config.Settings {
	return config.Settings{
		RedemptionFeeSC: money.Units(5),
		MinRedemptionSC: money.Units(100),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return harnessFor(t, db)
}

// harnessFor wires every service over db.
func harnessFor(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	require.NoError(t, db.AutoMigrate(models.All()...))

	notes := &recorder{}
	engine := NewSettlementEngine(db, notes)
	settings := NewSettingsService(db, testSettings())
	h := &harness{
		db:          db,
		notes:       notes,
		engine:      engine,
		settings:    settings,
		players:     NewPlayerService(db, engine, settings),
		games:       NewGameService(db, engine, settings, nil),
		tournaments: NewTournamentService(db, engine),
		tickets:     NewTicketService(db, engine),
		redemptions: NewRedemptionService(db, engine, settings),
		audit:       NewAuditService(db),
	}
	return h
}

// fundedPlayer registers a player and funds them through an admin adjustment
// so the ledger stays consistent.
func (h *harness) fundedPlayer(t *testing.T, gc, sc money.Amount) *models.Player {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	p, err := h.players.Register(ctx, id, "player-"+id[:8], "")
	require.NoError(t, err)
	if gc != 0 || sc != 0 {
		p, err = h.players.AdminAdjust(ctx, "admin", id, gc, sc, "test funding")
		require.NoError(t, err)
	}
	return p
}

func (h *harness) player(t *testing.T, id string) *models.Player {
	t.Helper()
	p, err := h.players.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) requireConserved(t *testing.T, playerID string) {
	t.Helper()
	d, err := h.audit.VerifyPlayer(context.Background(), playerID)
	require.NoError(t, err)
	require.Nil(t, d, "balance must equal the sum of ledger deltas")
}

func (h *harness) countRows(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func (h *harness) slotGame(t *testing.T, rtp float64) *models.Game {
	t.Helper()
	g, err := h.games.CreateGame(context.Background(), CreateGameInput{Name: "Lucky Sevens", Kind: models.GameSlot, RTP: rtp})
	require.NoError(t, err)
	return g
}

func (h *harness) diceGame(t *testing.T) *models.Game {
	t.Helper()
	g, err := h.games.CreateGame(context.Background(), CreateGameInput{Name: "Classic Dice", Kind: models.GameDice})
	require.NoError(t, err)
	return g
}

func hoursFromNow(h int) time.Time {
	return time.Now().UTC().Add(time.Duration(h) * time.Hour)
}
