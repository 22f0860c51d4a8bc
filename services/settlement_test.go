package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps-settlement-system/games"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
)

func TestSpinForcedWinSettlesNetDelta(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 1000, 0)
	g := h.slotGame(t, 100)
	h.games.Source = draws(0.5, 0.5) // win, base tier 2x

	res, err := h.games.Spin(ctx, p.ID, g.ID, models.CurrencyGC, 100)
	require.NoError(t, err)
	// bet 100 is debited and the 2x win of 200 is credited: 1000 - 100 + 200
	assert.Equal(t, money.Amount(1100), res.Balance.GCBalance)
	assert.Equal(t, money.Amount(200), res.Result.Win)
	assert.True(t, res.Result.Multiplier.Equal(decimal.NewFromInt(2)))

	after := h.player(t, p.ID)
	assert.Equal(t, money.Amount(1100), after.GCBalance)
	assert.Equal(t, money.Amount(100), after.TotalWagered)

	assert.Equal(t, int64(1), h.countRows(t, &models.GameResult{}, "player_id = ?", p.ID))
	var wagers []models.WalletTransaction
	require.NoError(t, h.db.Where("player_id = ? AND type = ?", p.ID, models.TxWagerResult).Find(&wagers).Error)
	require.Len(t, wagers, 1)
	assert.Equal(t, money.Amount(100), wagers[0].GCDelta)
	assert.Equal(t, res.Result.ID, wagers[0].Reference)

	h.requireConserved(t, p.ID)
}

func TestSpinLossAndSCCurrency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 500, 300)
	g := h.slotGame(t, 50)
	h.games.Source = draws(0.75)

	res, err := h.games.Spin(ctx, p.ID, g.ID, models.CurrencySC, 100)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(200), res.Balance.SCBalance)
	assert.Equal(t, money.Amount(500), res.Balance.GCBalance, "the other currency is untouched")
	assert.Zero(t, res.Result.Win)
	h.requireConserved(t, p.ID)
}

func TestConcurrentSpinsForExactBalance(t *testing.T) {
	// sqlite runs these one after another; the Postgres variant contends on
	// the row lock
	raceExactBalance(t, newHarness(t), 2)
}

// raceExactBalance fires n concurrent spins that each bet the whole balance.
func raceExactBalance(t *testing.T, h *harness, n int) {
	t.Helper()
	ctx := context.Background()
	p := h.fundedPlayer(t, 100, 0)
	g := h.slotGame(t, 50)
	h.games.Source = draws(0.99) // every spin loses

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.games.Spin(ctx, p.ID, g.ID, models.CurrencyGC, 100)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)
	assert.Equal(t, money.Amount(0), h.player(t, p.ID).GCBalance)
	assert.Equal(t, int64(1), h.countRows(t, &models.GameResult{}, "player_id = ?", p.ID))
	h.requireConserved(t, p.ID)
}

func TestInsufficientBalanceWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 50, 0)
	g := h.slotGame(t, 100)
	before := h.countRows(t, &models.WalletTransaction{}, "player_id = ?", p.ID)
	notes := h.notes.balanceCount()

	_, err := h.games.Spin(ctx, p.ID, g.ID, models.CurrencyGC, 100)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, IsValidation(err))

	assert.Equal(t, before, h.countRows(t, &models.WalletTransaction{}, "player_id = ?", p.ID))
	assert.Zero(t, h.countRows(t, &models.GameResult{}, "player_id = ?", p.ID))
	assert.Equal(t, notes, h.notes.balanceCount(), "no notification for a rejected settlement")
}

func TestSettleRollsBackWhenLaterStepFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 1000, 0)
	g := h.slotGame(t, 100)

	tour, err := h.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Rollback Cup", GameID: g.ID, Currency: models.CurrencyGC,
		ScoringRule: models.ScoreTotalWagered, StartTime: hoursFromNow(-1), EndTime: hoursFromNow(1),
	})
	require.NoError(t, err)
	_, err = h.tournaments.Join(ctx, tour.ID, p.ID)
	require.NoError(t, err)
	_, err = h.tournaments.Sweep(ctx)
	require.NoError(t, err)

	logBefore := h.countRows(t, &models.WalletTransaction{}, "player_id = ?", p.ID)
	notes := h.notes.balanceCount()
	boom := errors.New("disk on fire")

	_, err = h.engine.Settle(ctx, Settlement{
		PlayerID: p.ID,
		Currency: models.CurrencyGC,
		Debit:    300,
		Wagered:  300,
		Type:     models.TxWagerResult,
		Score:    &ScoreEvent{GameID: g.ID, Bet: 300},
		After: func(l *Ledger, _ *models.Player) error {
			return boom
		},
	})
	var fault *StorageFault
	require.ErrorAs(t, err, &fault)
	assert.ErrorIs(t, err, boom)

	after := h.player(t, p.ID)
	assert.Equal(t, money.Amount(1000), after.GCBalance)
	assert.Zero(t, after.TotalWagered)
	assert.Equal(t, logBefore, h.countRows(t, &models.WalletTransaction{}, "player_id = ?", p.ID))
	board, err := h.tournaments.Leaderboard(ctx, tour.ID)
	require.NoError(t, err)
	assert.True(t, board[0].Score.IsZero(), "tournament score rolled back too")
	assert.Equal(t, notes, h.notes.balanceCount())
}

func TestNotificationCarriesCommittedBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 1000, 0)
	g := h.diceGame(t)
	h.games.Source = draws(0.10)

	_, err := h.games.RollDice(ctx, p.ID, g.ID, models.CurrencyGC, 100, 50, games.Under)
	require.NoError(t, err)

	last := h.notes.balances[len(h.notes.balances)-1]
	assert.Equal(t, p.ID, last.PlayerID)
	assert.Equal(t, h.player(t, p.ID).GCBalance, last.GC)
	assert.Equal(t, money.Amount(1098), last.GC) // 1000 - 100 + 198
}

func TestDisabledPlayerCannotWager(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 1000, 0)
	g := h.slotGame(t, 96)
	_, err := h.players.SetStatus(ctx, p.ID, models.PlayerDisabled)
	require.NoError(t, err)

	_, err = h.games.Spin(ctx, p.ID, g.ID, models.CurrencyGC, 100)
	assert.ErrorIs(t, err, ErrPlayerDisabled)
}

func TestPostGuardsAgainstNegativeBalances(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.fundedPlayer(t, 100, 10)

	err := h.engine.Transact(ctx, "test", func(l *Ledger) error {
		_, err := l.Post(Posting{PlayerID: p.ID, Type: models.TxAdminAdjustment, GC: 50, SC: -11})
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	after := h.player(t, p.ID)
	assert.Equal(t, money.Amount(100), after.GCBalance)
	assert.Equal(t, money.Amount(10), after.SCBalance)
}
