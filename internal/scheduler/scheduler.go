// Package scheduler runs the periodic ledger jobs: materializing scheduled
// transactions, sweeping bills and completing due pending transfers.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"famledger/internal/calendar"
	"famledger/internal/database"
	"famledger/internal/logger"
	"famledger/internal/services"
)

// Lock keys. Only the replica holding a key runs that job.
const (
	RecurrenceLockKey = "recurrence-driver"
	BillSweepLockKey  = "bill-sweep"
	TransfersLockKey  = "pending-transfers"
)

// Materializer creates the transactions of due scheduled occurrences.
type Materializer interface {
	MaterializeDue(ctx context.Context, now time.Time) (services.MaterializeResult, error)
}

// BillSweeper marks overdue bills and spawns recurring successors.
type BillSweeper interface {
	Sweep(ctx context.Context, now time.Time) (services.SweepResult, error)
}

// TransferCompleter posts pending transfers whose date has come.
type TransferCompleter interface {
	CompleteDuePending(ctx context.Context, now time.Time) (int, error)
}

// Intervals sets how often each job runs.
type Intervals struct {
	Recurrence       time.Duration
	BillSweep        time.Duration
	PendingTransfers time.Duration
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	locker    database.Locker
	scheduled Materializer
	bills     BillSweeper
	transfers TransferCompleter
	intervals Intervals
	now       func() time.Time
}

// New creates a Scheduler. Jobs are registered when Run is called.
func New(locker database.Locker, scheduled Materializer, bills BillSweeper, transfers TransferCompleter, intervals Intervals) *Scheduler {
	cronLog := logger.NewCronLogger("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		locker:    locker,
		scheduled: scheduled,
		bills:     bills,
		transfers: transfers,
		intervals: intervals,
		now:       calendar.Now,
	}
}

// Run executes every job once, then on its interval until ctx is done. It
// waits for running jobs to finish before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	s.cron.Schedule(cron.Every(s.intervals.Recurrence), cron.FuncJob(func() { s.materialize(ctx) }))
	s.cron.Schedule(cron.Every(s.intervals.BillSweep), cron.FuncJob(func() { s.sweepBills(ctx) }))
	s.cron.Schedule(cron.Every(s.intervals.PendingTransfers), cron.FuncJob(func() { s.completeTransfers(ctx) }))

	logger.Get().Infow("Scheduler started",
		"recurrence_interval", s.intervals.Recurrence,
		"bill_sweep_interval", s.intervals.BillSweep,
		"pending_transfer_interval", s.intervals.PendingTransfers,
	)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Get().Info("Scheduler stopped")
	return nil
}

// RunOnce runs each job a single time in order.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.materialize(ctx)
	s.completeTransfers(ctx)
	s.sweepBills(ctx)
}

// withLock runs fn only if key could be taken.
func (s *Scheduler) withLock(ctx context.Context, key string, fn func()) bool {
	unlock, ok, err := s.locker.TryLock(ctx, key)
	if err != nil {
		logger.Get().Errorw("Failed to take job lock", "key", key, "error", err)
		return false
	}
	if !ok {
		logger.Get().Debugw("Job lock held elsewhere, skipping", "key", key)
		return false
	}
	defer unlock()
	fn()
	return true
}

func (s *Scheduler) materialize(ctx context.Context) {
	s.withLock(ctx, RecurrenceLockKey, func() {
		start := time.Now()
		result, err := s.scheduled.MaterializeDue(ctx, s.now())
		if err != nil {
			logger.Get().Errorw("Recurrence driver failed", "error", err)
			return
		}
		logger.Get().Infow("Recurrence driver finished",
			"materialized", result.Materialized,
			"completed", result.Completed,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"duration", time.Since(start),
		)
	})
}

func (s *Scheduler) sweepBills(ctx context.Context) {
	s.withLock(ctx, BillSweepLockKey, func() {
		result, err := s.bills.Sweep(ctx, s.now())
		if err != nil {
			logger.Get().Errorw("Bill sweep failed", "error", err)
			return
		}
		logger.Get().Infow("Bill sweep finished",
			"marked_overdue", result.MarkedOverdue,
			"spawned", result.Spawned,
		)
	})
}

func (s *Scheduler) completeTransfers(ctx context.Context) {
	s.withLock(ctx, TransfersLockKey, func() {
		n, err := s.transfers.CompleteDuePending(ctx, s.now())
		if err != nil {
			logger.Get().Errorw("Pending transfer run failed", "error", err)
			return
		}
		if n > 0 {
			logger.Get().Infow("Pending transfers completed", "count", n)
		}
	})
}
