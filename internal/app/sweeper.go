/**
 * @description
 * Cron-scheduled sweeper that re-scans recently inserted, unflagged
 * transactions and applies the static high-value rule. The sweep backstops the
 * consumer: rows left unflagged because scoring was unavailable still get
 * caught here.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/paysentry/fraud-service/internal/store"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically re-checks the trailing sweep window.
type Sweeper struct {
	cron           *cron.Cron
	repo           store.Repository
	logger         *slog.Logger
	schedule       string
	window         time.Duration
	thresholdMinor int64
}

// NewSweeper creates a sweeper running on the given cron schedule
// (e.g. "@every 5s") over the given trailing window.
func NewSweeper(repo store.Repository, logger *slog.Logger, schedule string, window time.Duration, thresholdMinor int64) *Sweeper {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Sweeper{
		cron:           c,
		repo:           repo,
		logger:         logger,
		schedule:       schedule,
		window:         window,
		thresholdMinor: thresholdMinor,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunSweep); err != nil {
		return err
	}
	s.logger.Info("scheduled fraud sweep", "schedule", s.schedule, "window", s.window)
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler. The returned context is done once
// any in-flight sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

// RunSweep executes one sweep cycle. Cycles are independent: a database error
// aborts the current cycle only, and the next scheduled cycle starts fresh.
// Re-running over the same window is idempotent because the flag update is
// monotone.
func (s *Sweeper) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	since := time.Now().Add(-s.window)
	txs, err := s.repo.FindUnflaggedSince(ctx, since)
	if err != nil {
		s.logger.Error("sweep query failed; aborting cycle", "error", err)
		return
	}
	if len(txs) == 0 {
		return
	}

	flagged := 0
	for _, tx := range txs {
		if tx.AmountMinor <= s.thresholdMinor {
			continue
		}
		updated, err := s.repo.FlagTransaction(ctx, tx.ID)
		if err != nil {
			s.logger.Error("sweep flag update failed; aborting cycle", "transaction_id", tx.ID, "error", err)
			return
		}
		if updated {
			flagged++
			s.logger.Warn("sweep flagged high-value transaction",
				"transaction_id", tx.ID,
				"sender_id", tx.SenderID,
				"amount", domain.FormatAmountMinor(tx.AmountMinor),
			)
		}
	}

	if flagged > 0 {
		s.logger.Info("sweep cycle finished", "candidates", len(txs), "flagged", flagged)
	}
}
