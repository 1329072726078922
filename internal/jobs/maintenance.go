package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"prediction-frames/internal/repository"
	"prediction-frames/internal/services"

	"github.com/rs/zerolog/log"
)

const (
	JobExpireMarkets     = "expire-markets"
	JobUpdateLeaderboard = "update-leaderboard"
	JobCleanup           = "cleanup"
	JobRebuildStats      = "rebuild-stats"
	JobAll               = "all"
)

// ErrUnknownJob is returned by Run for a name outside the job table
var ErrUnknownJob = errors.New("unknown job")

// defaultLeaseTTL bounds how long a crashed holder can block a job
const defaultLeaseTTL = 10 * time.Minute

// Maintenance runs the idempotent background jobs. Each job is safe to
// re-run and to overlap with request traffic.
type Maintenance struct {
	repo      *repository.Repository
	stats     *services.StatsService
	lease     Lease
	retention time.Duration
	now       func() time.Time
}

// NewMaintenance creates the job runner. A nil lease disables locking.
func NewMaintenance(repo *repository.Repository, stats *services.StatsService, lease Lease, retention time.Duration) *Maintenance {
	if lease == nil {
		lease = NoopLease{}
	}
	return &Maintenance{
		repo:      repo,
		stats:     stats,
		lease:     lease,
		retention: retention,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Names lists the jobs Run accepts, excluding "all"
func Names() []string {
	return []string{JobExpireMarkets, JobUpdateLeaderboard, JobCleanup, JobRebuildStats}
}

// Run executes one named job, or the default trio for "all"
func (m *Maintenance) Run(ctx context.Context, name string) error {
	switch name {
	case JobExpireMarkets:
		_, err := m.ExpireMarkets(ctx)
		return err
	case JobUpdateLeaderboard:
		return m.UpdateLeaderboard(ctx)
	case JobCleanup:
		_, _, err := m.CleanupOldData(ctx)
		return err
	case JobRebuildStats:
		return m.RebuildStats(ctx)
	case JobAll:
		return m.RunAll(ctx)
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// ExpireMarkets cancels every market past its deadline that nobody resolved.
// Cancelled markets credit no winners. Per-market failures are logged and
// the sweep continues.
func (m *Maintenance) ExpireMarkets(ctx context.Context) (int, error) {
	var cancelled int
	err := m.withLease(ctx, JobExpireMarkets, func(ctx context.Context) error {
		now := m.now()
		markets, err := m.repo.FindExpiredUnresolved(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to find expired markets: %w", err)
		}

		failed := 0
		for _, market := range markets {
			ok, err := m.repo.CancelExpiredMarket(ctx, market.ID, now)
			if err != nil {
				failed++
				log.Error().Err(err).Str("job", JobExpireMarkets).Str("market_id", market.ID).Msg("Failed to expire market")
				continue
			}
			if ok {
				cancelled++
				log.Info().Str("job", JobExpireMarkets).Str("market_id", market.ID).Str("slug", market.Slug).Msg("Market expired")
			}
		}

		log.Info().Str("job", JobExpireMarkets).Int("found", len(markets)).Int("cancelled", cancelled).Msg("Expire sweep finished")
		if failed > 0 {
			return fmt.Errorf("failed to expire %d of %d markets", failed, len(markets))
		}
		return nil
	})
	return cancelled, err
}

// UpdateLeaderboard recomputes win rates and global ranks
func (m *Maintenance) UpdateLeaderboard(ctx context.Context) error {
	return m.withLease(ctx, JobUpdateLeaderboard, m.stats.RecomputeAll)
}

// CleanupOldData deletes markets resolved longer than the retention period
// ago, together with their predictions.
func (m *Maintenance) CleanupOldData(ctx context.Context) (markets, predictions int64, err error) {
	err = m.withLease(ctx, JobCleanup, func(ctx context.Context) error {
		cutoff := m.now().Add(-m.retention)
		markets, predictions, err = m.repo.DeleteResolvedBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to delete old markets: %w", err)
		}
		log.Info().
			Str("job", JobCleanup).
			Time("cutoff", cutoff).
			Int64("markets", markets).
			Int64("predictions", predictions).
			Msg("Old data cleaned up")
		return nil
	})
	return markets, predictions, err
}

// RebuildStats recomputes the stats projection from predictions and markets.
// It is not part of RunAll: cleanup removes history the rebuild would read.
func (m *Maintenance) RebuildStats(ctx context.Context) error {
	return m.withLease(ctx, JobRebuildStats, m.stats.Rebuild)
}

// RunAll runs expire, leaderboard and cleanup concurrently. A failing job is
// logged and does not stop the others; the joined error is returned.
func (m *Maintenance) RunAll(ctx context.Context) error {
	jobs := []struct {
		name string
		run  func(context.Context) error
	}{
		{JobExpireMarkets, func(ctx context.Context) error { _, err := m.ExpireMarkets(ctx); return err }},
		{JobUpdateLeaderboard, m.UpdateLeaderboard},
		{JobCleanup, func(ctx context.Context) error { _, _, err := m.CleanupOldData(ctx); return err }},
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, name string, run func(context.Context) error) {
			defer wg.Done()
			start := time.Now()
			if err := run(ctx); err != nil {
				log.Error().Err(err).Str("job", name).Msg("Job failed")
				errs[i] = fmt.Errorf("%s: %w", name, err)
				return
			}
			log.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("Job completed")
		}(i, job.name, job.run)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// withLease runs fn only if this process holds the job's lease. A held lease
// is not an error: another replica is already doing the work.
func (m *Maintenance) withLease(ctx context.Context, job string, fn func(context.Context) error) error {
	release, ok, err := m.lease.Acquire(ctx, job, defaultLeaseTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		log.Debug().Str("job", job).Msg("Lease held elsewhere, skipping")
		return nil
	}
	defer release()

	return fn(ctx)
}
