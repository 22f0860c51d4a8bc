package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps-settlement-system/models"
	"sweeps-settlement-system/money"
	"sweeps-settlement-system/notify"
)

func (h *harness) activeTournament(t *testing.T, in CreateTournamentInput) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	if in.Name == "" {
		in.Name = "Weekend Showdown"
	}
	if in.Currency == "" {
		in.Currency = models.CurrencySC
	}
	if in.ScoringRule == "" {
		in.ScoringRule = models.ScoreTotalWagered
	}
	if in.StartTime.IsZero() {
		in.StartTime = hoursFromNow(-1)
		in.EndTime = hoursFromNow(1)
	}
	tour, err := h.tournaments.CreateTournament(ctx, in)
	require.NoError(t, err)
	_, err = h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	tour, err = h.tournaments.Get(ctx, tour.ID)
	require.NoError(t, err)
	require.Equal(t, models.TournamentActive, tour.Status)
	return tour
}

// endTournaments moves the sweeper's clock past every test tournament.
func (h *harness) endTournaments() {
	h.tournaments.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
}

func (h *harness) setScore(t *testing.T, tournamentID, playerID string, score int64) {
	t.Helper()
	require.NoError(t, h.db.Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
		Update("score", decimal.NewFromInt(score)).Error)
}

func TestCreateTournamentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)

	_, err := h.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Backwards", GameID: g.ID, Currency: models.CurrencyGC, ScoringRule: models.ScoreTotalWins,
		StartTime: hoursFromNow(2), EndTime: hoursFromNow(1),
	})
	assert.True(t, IsValidation(err))

	_, err = h.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Bad Rule", GameID: g.ID, Currency: models.CurrencyGC, ScoringRule: "fastest",
		StartTime: hoursFromNow(1), EndTime: hoursFromNow(2),
	})
	assert.True(t, IsValidation(err))

	_, err = h.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "No Game", GameID: uuid.NewString(), Currency: models.CurrencyGC, ScoringRule: models.ScoreTotalWins,
		StartTime: hoursFromNow(1), EndTime: hoursFromNow(2),
	})
	assert.True(t, IsNotFound(err))

	tour, err := h.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Future Cup", GameID: g.ID, Currency: models.CurrencyGC, ScoringRule: models.ScoreTotalWins,
		StartTime: hoursFromNow(1), EndTime: hoursFromNow(2),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TournamentUpcoming, tour.Status)
}

func TestJoinDebitsEntryFee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, EntryFee: money.Units(10)})
	p := h.fundedPlayer(t, 0, money.Units(25))

	part, err := h.tournaments.Join(ctx, tour.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, part.Score.IsZero())
	assert.Equal(t, money.Units(15), h.player(t, p.ID).SCBalance)

	_, err = h.tournaments.Join(ctx, tour.ID, p.ID)
	assert.True(t, IsConflict(err), "second join is a conflict")
	assert.Equal(t, money.Units(15), h.player(t, p.ID).SCBalance)
	assert.Equal(t, int64(1), h.countRows(t, &models.WalletTransaction{}, "player_id = ? AND type = ?", p.ID, models.TxTournamentEntry))
	h.requireConserved(t, p.ID)
}

func TestJoinRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, EntryFee: money.Units(10), MaxParticipants: 1})

	poor := h.fundedPlayer(t, 0, money.Units(5))
	_, err := h.tournaments.Join(ctx, tour.ID, poor.ID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, h.countRows(t, &models.TournamentParticipant{}, "tournament_id = ?", tour.ID))

	first := h.fundedPlayer(t, 0, money.Units(20))
	second := h.fundedPlayer(t, 0, money.Units(20))
	_, err = h.tournaments.Join(ctx, tour.ID, first.ID)
	require.NoError(t, err)
	_, err = h.tournaments.Join(ctx, tour.ID, second.ID)
	assert.True(t, IsConflict(err), "tournament is full")
	assert.Equal(t, money.Units(20), h.player(t, second.ID).SCBalance)

	_, err = h.tournaments.Join(ctx, uuid.NewString(), first.ID)
	assert.True(t, IsNotFound(err))

	h.endTournaments()
	_, err = h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	_, err = h.tournaments.Join(ctx, tour.ID, second.ID)
	assert.True(t, IsValidation(err), "completed tournament cannot be joined")
}

func TestScoringRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 100)
	other := h.slotGame(t, 100)
	p := h.fundedPlayer(t, 0, money.Units(100))

	best := h.activeTournament(t, CreateTournamentInput{Name: "Best Hit", GameID: g.ID, ScoringRule: models.ScoreHighestMultiplier})
	wagered := h.activeTournament(t, CreateTournamentInput{Name: "Grinder", GameID: g.ID, ScoringRule: models.ScoreTotalWagered})
	wins := h.activeTournament(t, CreateTournamentInput{Name: "Winner", GameID: g.ID, ScoringRule: models.ScoreTotalWins})
	gcOnly := h.activeTournament(t, CreateTournamentInput{Name: "Gold Only", GameID: g.ID, Currency: models.CurrencyGC})
	for _, id := range []string{best.ID, wagered.ID, wins.ID, gcOnly.ID} {
		_, err := h.tournaments.Join(ctx, id, p.ID)
		require.NoError(t, err)
	}

	// 10x then 2x
	h.games.Source = draws(0.1, 0.05, 0.1, 0.5)
	_, err := h.games.Spin(ctx, p.ID, g.ID, models.CurrencySC, 100)
	require.NoError(t, err)
	_, err = h.games.Spin(ctx, p.ID, g.ID, models.CurrencySC, 100)
	require.NoError(t, err)
	// a different game never scores
	_, err = h.games.Spin(ctx, p.ID, other.ID, models.CurrencySC, 100)
	require.NoError(t, err)

	score := func(tournamentID string) decimal.Decimal {
		board, err := h.tournaments.Leaderboard(ctx, tournamentID)
		require.NoError(t, err)
		require.Len(t, board, 1)
		return board[0].Score
	}
	assert.True(t, score(best.ID).Equal(decimal.NewFromInt(10)), "highest multiplier does not drop to 2")
	assert.True(t, score(wagered.ID).Equal(decimal.NewFromInt(2)), "scores are in whole units")
	assert.True(t, score(wins.ID).Equal(decimal.NewFromInt(12)))
	assert.True(t, score(gcOnly.ID).IsZero(), "SC wagers do not score in a GC tournament")
}

func TestSweepPaysTopThree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, PrizePool: 100000})

	scores := []int64{50, 30, 10, 5}
	var ids []string
	for _, s := range scores {
		p := h.fundedPlayer(t, 0, 0)
		_, err := h.tournaments.Join(ctx, tour.ID, p.ID)
		require.NoError(t, err)
		h.setScore(t, tour.ID, p.ID, s)
		ids = append(ids, p.ID)
	}

	h.endTournaments()
	report, err := h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tour.ID}, report.Completed)

	want := []money.Amount{50000, 30000, 20000, 0}
	for i, id := range ids {
		assert.Equal(t, want[i], h.player(t, id).SCBalance, "rank %d", i+1)
		h.requireConserved(t, id)
	}

	board, err := h.tournaments.Leaderboard(ctx, tour.ID)
	require.NoError(t, err)
	for i, part := range board {
		assert.Equal(t, i+1, part.Rank)
		assert.Equal(t, want[i], part.Prize)
	}
	done, err := h.tournaments.Get(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	var wins int
	for _, a := range h.notes.announce {
		if a.Type == notify.TypeTournamentWin {
			wins++
		}
	}
	assert.Equal(t, 3, wins)

	again, err := h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Completed)
	assert.Equal(t, money.Amount(50000), h.player(t, ids[0]).SCBalance, "second sweep pays nothing")
	assert.Equal(t, int64(3), h.countRows(t, &models.WalletTransaction{}, "type = ? AND reference = ?", models.TxTournamentWin, tour.ID))
}

func TestSweepWithFewerParticipantsThanPrizes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, Currency: models.CurrencyGC, PrizePool: 1001})
	p := h.fundedPlayer(t, 0, 0)
	_, err := h.tournaments.Join(ctx, tour.ID, p.ID)
	require.NoError(t, err)

	h.endTournaments()
	_, err = h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	// floor(1001 * 50%) and the unused shares stay with the house
	assert.Equal(t, money.Amount(500), h.player(t, p.ID).GCBalance)
}

func TestTiesGoToEarliestJoiner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, PrizePool: 1000})

	late := h.fundedPlayer(t, 0, 0)
	early := h.fundedPlayer(t, 0, 0)
	for _, p := range []*models.Player{late, early} {
		_, err := h.tournaments.Join(ctx, tour.ID, p.ID)
		require.NoError(t, err)
		h.setScore(t, tour.ID, p.ID, 77)
	}
	base := time.Now().UTC().Add(-30 * time.Minute)
	require.NoError(t, h.db.Model(&models.TournamentParticipant{}).Where("player_id = ?", early.ID).Update("joined_at", base).Error)
	require.NoError(t, h.db.Model(&models.TournamentParticipant{}).Where("player_id = ?", late.ID).Update("joined_at", base.Add(time.Minute)).Error)

	h.endTournaments()
	_, err := h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(500), h.player(t, early.ID).SCBalance)
	assert.Equal(t, money.Amount(300), h.player(t, late.ID).SCBalance)
}

func TestSweepIsolatesFailingTournament(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 96)
	broken := h.activeTournament(t, CreateTournamentInput{Name: "Broken", GameID: g.ID, PrizePool: 1000})
	healthy := h.activeTournament(t, CreateTournamentInput{Name: "Healthy", GameID: g.ID, PrizePool: 1000})

	// a participant whose player row does not exist makes payout fail
	require.NoError(t, h.db.Create(&models.TournamentParticipant{
		ID:           uuid.NewString(),
		TournamentID: broken.ID,
		PlayerID:     uuid.NewString(),
		Score:        decimal.NewFromInt(1),
		JoinedAt:     time.Now().UTC(),
	}).Error)
	p := h.fundedPlayer(t, 0, 0)
	_, err := h.tournaments.Join(ctx, healthy.ID, p.ID)
	require.NoError(t, err)

	h.endTournaments()
	report, err := h.tournaments.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{healthy.ID}, report.Completed)
	assert.Contains(t, report.Failed, broken.ID)
	assert.Equal(t, money.Amount(500), h.player(t, p.ID).SCBalance)

	still, err := h.tournaments.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, still.Status, "left for the next sweep")
}

func TestSweepRunsOneAtATime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.tournaments.sweeping.Lock()
	_, err := h.tournaments.Sweep(ctx)
	assert.ErrorIs(t, err, ErrSweepInProgress)
	assert.True(t, IsConflict(err))
	require.NoError(t, h.tournaments.SweepJob(time.Minute).Run(ctx), "scheduled run skips quietly")
	h.tournaments.sweeping.Unlock()

	_, err = h.tournaments.Sweep(ctx)
	require.NoError(t, err)
}

func TestSweepRanksWagersRacingCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	g := h.slotGame(t, 50)
	h.games.Source = draws(0.99)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, PrizePool: 1000})

	leader := h.fundedPlayer(t, 0, 0)
	chaser := h.fundedPlayer(t, 0, money.Units(20))
	for _, p := range []*models.Player{leader, chaser} {
		_, err := h.tournaments.Join(ctx, tour.ID, p.ID)
		require.NoError(t, err)
	}
	h.setScore(t, tour.ID, leader.ID, 5)

	h.endTournaments()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.games.Spin(ctx, chaser.ID, g.ID, models.CurrencySC, money.Units(1))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.tournaments.Sweep(ctx)
		assert.NoError(t, err)
	}()
	wg.Wait()

	done, err := h.tournaments.Get(ctx, tour.ID)
	require.NoError(t, err)
	require.Equal(t, models.TournamentCompleted, done.Status)

	// stored scores never move after completion, so ranks agree with them
	var parts []models.TournamentParticipant
	require.NoError(t, h.db.Where("tournament_id = ?", tour.ID).Order("rank").Find(&parts).Error)
	require.Len(t, parts, 2)
	assert.True(t, parts[0].Score.GreaterThanOrEqual(parts[1].Score))
	assert.Equal(t, money.Amount(500), parts[0].Prize)
	assert.Equal(t, money.Amount(300), parts[1].Prize)
	h.requireConserved(t, leader.ID)
	h.requireConserved(t, chaser.ID)
}

func TestRankParticipantsOrdering(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parts := []models.TournamentParticipant{
		{ID: "c", Score: decimal.NewFromInt(5), JoinedAt: at},
		{ID: "b", Score: decimal.NewFromInt(9), JoinedAt: at.Add(time.Hour)},
		{ID: "a", Score: decimal.NewFromInt(5), JoinedAt: at},
		{ID: "d", Score: decimal.NewFromInt(5), JoinedAt: at.Add(-time.Hour)},
	}
	rankParticipants(parts)
	var got []string
	for _, p := range parts {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestNextScoreNeverDecreases(t *testing.T) {
	cur := decimal.NewFromInt(10)
	ev := ScoreEvent{Bet: money.Units(1), Win: 0, Multiplier: decimal.Zero}
	assert.True(t, nextScore(models.ScoreHighestMultiplier, cur, ev).Equal(cur))
	assert.True(t, nextScore(models.ScoreTotalWins, cur, ev).Equal(cur))
	assert.True(t, nextScore(models.ScoreTotalWagered, cur, ev).Equal(decimal.NewFromInt(11)))
}
