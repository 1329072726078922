package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"prediction-frames/internal/database"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/services"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newMaintenance(t *testing.T, lease Lease) (*Maintenance, *repository.Repository) {
	t.Helper()
	repo := repository.NewRepository(setupTestDB(t))
	stats := services.NewStatsService(repo)
	return NewMaintenance(repo, stats, lease, 30*24*time.Hour), repo
}

func seedMarket(t *testing.T, repo *repository.Repository, slug string, expiresAt time.Time, resolvedAt *time.Time) *models.Market {
	t.Helper()
	ctx := context.Background()

	user, err := repo.UpsertUser(ctx, &models.User{FID: int64(len(slug)) + 1000}, false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	market := &models.Market{
		Slug:      slug,
		Question:  slug,
		OptionA:   "Yes",
		OptionB:   "No",
		ExpiresAt: expiresAt,
		CreatorID: user.ID,
	}
	if err := repo.CreateMarket(ctx, market); err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	if resolvedAt != nil {
		if _, err := repo.ResolveMarket(ctx, market.ID, models.OutcomeOptionA, *resolvedAt); err != nil {
			t.Fatalf("failed to resolve market: %v", err)
		}
	}
	return market
}

func TestExpireMarketsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, repo := newMaintenance(t, nil)
	now := time.Now().UTC()

	expired := seedMarket(t, repo, "expired", now.Add(-time.Hour), nil)
	open := seedMarket(t, repo, "open", now.Add(time.Hour), nil)
	resolvedAt := now.Add(-30 * time.Minute)
	resolved := seedMarket(t, repo, "resolved", now.Add(-2*time.Hour), &resolvedAt)

	cancelled, err := m.ExpireMarkets(ctx)
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if cancelled != 1 {
		t.Errorf("expected 1 cancellation, got %d", cancelled)
	}

	first, _ := repo.GetMarketByID(ctx, expired.ID)

	cancelled, err = m.ExpireMarkets(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if cancelled != 0 {
		t.Errorf("second sweep should be a no-op, cancelled %d", cancelled)
	}

	second, _ := repo.GetMarketByID(ctx, expired.ID)
	if second.Outcome == nil || *second.Outcome != models.OutcomeCancelled {
		t.Errorf("expected CANCELLED, got %v", second.Outcome)
	}
	if !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Errorf("second sweep changed resolvedAt: %v -> %v", first.ResolvedAt, second.ResolvedAt)
	}

	if got, _ := repo.GetMarketByID(ctx, open.ID); got.ResolvedAt != nil {
		t.Error("open market must not be touched")
	}
	if got, _ := repo.GetMarketByID(ctx, resolved.ID); *got.Outcome != models.OutcomeOptionA {
		t.Errorf("resolved market outcome changed to %v", *got.Outcome)
	}
}

func TestExpireMarketsAwardsNobody(t *testing.T) {
	ctx := context.Background()
	m, repo := newMaintenance(t, nil)
	market := seedMarket(t, repo, "expired", time.Now().UTC().Add(-time.Hour), nil)

	bettor, _ := repo.UpsertUser(ctx, &models.User{FID: 1}, false)
	repo.CreatePrediction(ctx, &models.Prediction{MarketID: market.ID, UserID: bettor.ID, Choice: models.ChoiceOptionA, Amount: 10})

	if _, err := m.ExpireMarkets(ctx); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if _, err := repo.GetUserStats(ctx, bettor.ID); !repository.IsNotFound(err) {
		t.Errorf("expiry must not credit winners, got %v", err)
	}
}

func TestCleanupOldData(t *testing.T) {
	ctx := context.Background()
	m, repo := newMaintenance(t, nil)
	now := time.Now().UTC()

	oldResolved := now.Add(-31 * 24 * time.Hour)
	recentResolved := now.Add(-29 * 24 * time.Hour)
	old := seedMarket(t, repo, "old", now.Add(-40*24*time.Hour), &oldResolved)
	recent := seedMarket(t, repo, "recent", now.Add(-40*24*time.Hour), &recentResolved)
	unresolved := seedMarket(t, repo, "unresolved-old", now.Add(-90*24*time.Hour), nil)

	bettor, _ := repo.UpsertUser(ctx, &models.User{FID: 1}, false)
	repo.CreatePrediction(ctx, &models.Prediction{MarketID: old.ID, UserID: bettor.ID, Choice: models.ChoiceOptionA, Amount: 10})

	markets, predictions, err := m.CleanupOldData(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if markets != 1 || predictions != 1 {
		t.Errorf("expected 1 market and 1 prediction deleted, got %d and %d", markets, predictions)
	}

	if _, err := repo.GetMarketByID(ctx, old.ID); !repository.IsNotFound(err) {
		t.Errorf("old market should be deleted, got %v", err)
	}
	for _, keep := range []*models.Market{recent, unresolved} {
		if _, err := repo.GetMarketByID(ctx, keep.ID); err != nil {
			t.Errorf("market %s should survive cleanup: %v", keep.Slug, err)
		}
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()
	m, repo := newMaintenance(t, nil)
	expired := seedMarket(t, repo, "expired", time.Now().UTC().Add(-time.Hour), nil)

	user, _ := repo.UpsertUser(ctx, &models.User{FID: 1}, false)
	repo.DB().Create(&models.UserStats{UserID: user.ID, TotalPredictions: 4, CorrectPredictions: 1, LastUpdated: time.Now().UTC()})

	if err := m.Run(ctx, JobAll); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if got, _ := repo.GetMarketByID(ctx, expired.ID); got.ResolvedAt == nil {
		t.Error("expected expired market to be cancelled")
	}
	stats, _ := repo.GetUserStats(ctx, user.ID)
	if stats.WinRate != 25 || stats.Rank == nil || *stats.Rank != 1 {
		t.Errorf("expected leaderboard recomputed, got winRate=%v rank=%v", stats.WinRate, stats.Rank)
	}
}

func TestRunUnknownJob(t *testing.T) {
	m, _ := newMaintenance(t, nil)
	if err := m.Run(context.Background(), "reindex"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

// failingLease errors for the listed jobs and grants every other one
type failingLease []string

func (l failingLease) Acquire(ctx context.Context, job string, ttl time.Duration) (func(), bool, error) {
	for _, name := range l {
		if name == job {
			return nil, false, errors.New("redis unavailable")
		}
	}
	return func() {}, true, nil
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	m, repo := newMaintenance(t, failingLease{JobCleanup})
	expired := seedMarket(t, repo, "expired", time.Now().UTC().Add(-time.Hour), nil)

	err := m.RunAll(ctx)
	if err == nil {
		t.Fatal("expected the cleanup failure to be reported")
	}

	if got, _ := repo.GetMarketByID(ctx, expired.ID); got.ResolvedAt == nil {
		t.Error("expire job should still run when cleanup fails")
	}
}

func TestRunAllReportsEveryFailure(t *testing.T) {
	m, _ := newMaintenance(t, failingLease{JobExpireMarkets, JobCleanup})

	err := m.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected failures to be reported")
	}
	for _, job := range []string{JobExpireMarkets, JobCleanup} {
		if !strings.Contains(err.Error(), job+":") {
			t.Errorf("expected %s failure in %q", job, err)
		}
	}
	if strings.Contains(err.Error(), JobUpdateLeaderboard) {
		t.Errorf("leaderboard job should have succeeded: %q", err)
	}
}

func TestRedisLease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	lease := NewRedisLease(client)

	release, ok, err := lease.Acquire(ctx, JobExpireMarkets, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	if _, ok, err := lease.Acquire(ctx, JobExpireMarkets, time.Minute); err != nil || ok {
		t.Fatalf("second acquire should be refused: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := lease.Acquire(ctx, JobCleanup, time.Minute); !ok {
		t.Error("different job should get its own lease")
	}

	release()
	if mr.Exists(leaseKeyPrefix + JobExpireMarkets) {
		t.Error("release should delete the key")
	}
	if _, ok, _ := lease.Acquire(ctx, JobExpireMarkets, time.Minute); !ok {
		t.Error("lease should be free after release")
	}
}

func TestRedisLeaseReleaseKeepsForeignToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lease := NewRedisLease(client)
	release, ok, err := lease.Acquire(context.Background(), JobCleanup, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	// the lease expired and another replica took over
	mr.Set(leaseKeyPrefix+JobCleanup, "other-holder")
	release()

	if got, _ := mr.Get(leaseKeyPrefix + JobCleanup); got != "other-holder" {
		t.Errorf("release must not delete another holder's lease, got %q", got)
	}
}

func TestMaintenanceSkipsHeldLease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	m, repo := newMaintenance(t, NewRedisLease(client))
	expired := seedMarket(t, repo, "expired", time.Now().UTC().Add(-time.Hour), nil)

	mr.Set(leaseKeyPrefix+JobExpireMarkets, "other-replica")
	cancelled, err := m.ExpireMarkets(ctx)
	if err != nil {
		t.Fatalf("held lease should not be an error: %v", err)
	}
	if cancelled != 0 {
		t.Errorf("expected skip, cancelled %d", cancelled)
	}
	if got, _ := repo.GetMarketByID(ctx, expired.ID); got.ResolvedAt != nil {
		t.Error("market should be untouched while the lease is held elsewhere")
	}
}

func TestSchedulerRunsAndStops(t *testing.T) {
	m, repo := newMaintenance(t, nil)
	expired := seedMarket(t, repo, "expired", time.Now().UTC().Add(-time.Hour), nil)

	s := NewScheduler(m,
		Schedule{Job: JobExpireMarkets, Interval: 50 * time.Millisecond},
		Schedule{Job: JobCleanup, Interval: 0},
	)
	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := repo.GetMarketByID(context.Background(), expired.ID)
		if err == nil && got.ResolvedAt != nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	got, err := repo.GetMarketByID(context.Background(), expired.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ResolvedAt == nil {
		t.Error("scheduler should have expired the market")
	}
}
