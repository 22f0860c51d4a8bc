package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeps-settlement-system/models"
)

func TestSchedulerRunsJobsUntilShutdown(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(Job{
		Name:  "tick",
		Every: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	require.NoError(t, err)
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown())

	after := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after shutdown")
}

func TestSweepJobCompletesTournaments(t *testing.T) {
	h := newHarness(t)
	g := h.slotGame(t, 96)
	tour := h.activeTournament(t, CreateTournamentInput{GameID: g.ID, PrizePool: 100})
	h.endTournaments()

	job := h.tournaments.SweepJob(time.Minute)
	assert.Equal(t, "tournament-sweep", job.Name)
	require.NoError(t, job.Run(context.Background()))

	done, err := h.tournaments.Get(context.Background(), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, done.Status)

	require.NoError(t, h.audit.ReconcileJob(time.Hour).Run(context.Background()))
}
