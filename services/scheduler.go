// services/scheduler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Job is a periodic background task.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs jobs on fixed intervals. A job never overlaps itself: if a
// run is still going when the next is due, the next is rescheduled.
type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(jobs ...Job) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel}

	for _, job := range jobs {
		_, err := sched.NewJob(
			gocron.DurationJob(job.Every),
			gocron.NewTask(func() { s.run(job) }),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		log.WithError(err).WithField("job", job.Name).Error("[Scheduler] ❌ job failed")
		return
	}
	log.WithFields(log.Fields{"job": job.Name, "took": time.Since(start)}).Debug("[Scheduler] job finished")
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}

// SweepJob wraps Sweep for the scheduler.
func (s *TournamentService) SweepJob(every time.Duration) Job {
	return Job{
		Name:  "tournament-sweep",
		Every: every,
		Run: func(ctx context.Context) error {
			report, err := s.Sweep(ctx)
			if errors.Is(err, ErrSweepInProgress) {
				log.Info("[Scheduler] manual sweep in progress, skipping this run")
				return nil
			}
			if err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				log.WithField("failed", len(report.Failed)).Warn("[Scheduler] sweep finished with failures")
			}
			return nil
		},
	}
}

// ReconcileJob wraps Reconcile for the scheduler.
func (s *AuditService) ReconcileJob(every time.Duration) Job {
	return Job{
		Name:  "ledger-reconcile",
		Every: every,
		Run: func(ctx context.Context) error {
			bad, err := s.Reconcile(ctx)
			if err != nil {
				return err
			}
			if len(bad) == 0 {
				log.Info("[Scheduler] ✅ ledger reconciled, no mismatches")
			}
			return nil
		},
	}
}
