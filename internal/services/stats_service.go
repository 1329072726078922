package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// StatsService maintains the UserStats projection
type StatsService struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewStatsService(repo *repository.Repository) *StatsService {
	return &StatsService{
		repo: repo,
		now:  utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// WinRate is correct/total*100, or 0 when there are no predictions
func WinRate(correct, total int64) float64 {
	if total <= 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(correct).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Float64()
	return rate
}

// OnPredictionCreated counts a new stake against the user's totals.
// winRate is not touched here; it is refreshed by RecomputeAll.
func (s *StatsService) OnPredictionCreated(ctx context.Context, userID string, amount int64) error {
	if err := s.repo.IncrementPredictionCreated(ctx, userID, amount, s.now()); err != nil {
		return errs.Upstream("Failed to update user stats", err)
	}
	return nil
}

// OnPredictionWon credits one correct prediction paid at 2x its amount
func (s *StatsService) OnPredictionWon(ctx context.Context, userID string, amount int64) error {
	if err := s.repo.IncrementPredictionWon(ctx, userID, amount, s.now()); err != nil {
		return errs.Upstream("Failed to update user stats", err)
	}
	return nil
}

// RecomputeAll refreshes every row's winRate from its own counters and
// reassigns global rank by (correct desc, winRate desc). Ties keep insertion
// order. Rows are written independently; failures are counted, not fatal.
func (s *StatsService) RecomputeAll(ctx context.Context) error {
	stats, err := s.repo.ListAllUserStats(ctx)
	if err != nil {
		return errs.Upstream("Failed to load user stats", err)
	}

	for i := range stats {
		stats[i].WinRate = WinRate(stats[i].CorrectPredictions, stats[i].TotalPredictions)
	}
	sortByRanking(stats)

	now := s.now()
	failed := 0
	for i := range stats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.repo.UpdateRanking(ctx, stats[i].ID, stats[i].WinRate, i+1, now); err != nil {
			failed++
			log.Error().Err(err).Str("user_id", stats[i].UserID).Msg("Failed to update ranking")
		}
	}

	log.Info().Int("users", len(stats)).Int("failed", failed).Msg("Leaderboard recomputed")
	if failed > 0 {
		return fmt.Errorf("failed to update ranking for %d of %d users", failed, len(stats))
	}
	return nil
}

func sortByRanking(stats []models.UserStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].CorrectPredictions != stats[j].CorrectPredictions {
			return stats[i].CorrectPredictions > stats[j].CorrectPredictions
		}
		return stats[i].WinRate > stats[j].WinRate
	})
}

// Rebuild recomputes every user's counters from predictions and markets,
// zeroes rows of users with no remaining predictions, then re-ranks.
func (s *StatsService) Rebuild(ctx context.Context) error {
	aggs, err := s.repo.AggregateFromPredictions(ctx)
	if err != nil {
		return errs.Upstream("Failed to aggregate predictions", err)
	}
	existing, err := s.repo.ListAllUserStats(ctx)
	if err != nil {
		return errs.Upstream("Failed to load user stats", err)
	}

	seen := make(map[string]bool, len(aggs))
	for _, agg := range aggs {
		seen[agg.UserID] = true
	}
	for _, row := range existing {
		if !seen[row.UserID] {
			aggs = append(aggs, repository.StatsAggregate{UserID: row.UserID})
		}
	}

	now := s.now()
	failed := 0
	for _, agg := range aggs {
		winRate := WinRate(agg.CorrectPredictions, agg.TotalPredictions)
		if err := s.repo.ReplaceCounters(ctx, agg, winRate, now); err != nil {
			failed++
			log.Error().Err(err).Str("user_id", agg.UserID).Msg("Failed to rebuild user stats")
		}
	}
	log.Info().Int("users", len(aggs)).Int("failed", failed).Msg("User stats rebuilt")

	if err := s.RecomputeAll(ctx); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("failed to rebuild stats for %d of %d users", failed, len(aggs))
	}
	return nil
}

// Period selects the lastUpdated window of the leaderboard
type Period string

const (
	PeriodAll   Period = "all"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// since returns the lower bound for p, nil for all time
func (p Period) since(now time.Time) (*time.Time, error) {
	var t time.Time
	switch p {
	case "", PeriodAll:
		return nil, nil
	case PeriodWeek:
		t = now.AddDate(0, 0, -7)
	case PeriodMonth:
		t = now.AddDate(0, -1, 0)
	default:
		return nil, errs.Validation("Invalid period")
	}
	return &t, nil
}

// Leaderboard returns the top users for the period. Rank is the position in
// the returned list.
func (s *StatsService) Leaderboard(ctx context.Context, period Period, limit int) ([]models.UserStats, error) {
	since, err := period.since(s.now())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	stats, err := s.repo.Leaderboard(ctx, since, limit)
	if err != nil {
		return nil, errs.Upstream("Failed to fetch stats", err)
	}
	for i := range stats {
		rank := i + 1
		stats[i].Rank = &rank
	}
	return stats, nil
}

// Overall counts markets, active markets, predictions and users concurrently
func (s *StatsService) Overall(ctx context.Context) (*models.OverallStats, error) {
	var overall models.OverallStats
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overall.TotalMarkets, err = s.repo.CountMarkets(gctx, models.MarketStatusAll, now)
		return err
	})
	g.Go(func() (err error) {
		overall.ActiveMarkets, err = s.repo.CountMarkets(gctx, models.MarketStatusActive, now)
		return err
	})
	g.Go(func() (err error) {
		overall.TotalPredictions, err = s.repo.CountPredictions(gctx)
		return err
	})
	g.Go(func() (err error) {
		overall.TotalUsers, err = s.repo.CountUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errs.Upstream("Failed to fetch stats", err)
	}

	return &overall, nil
}

// ForUser returns a user's stats row, or nil when the user never predicted
func (s *StatsService) ForUser(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.repo.GetUserStats(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Upstream("Failed to fetch stats", err)
	}
	return stats, nil
}
