package services

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"prediction-frames/internal/database"
	"prediction-frames/internal/models"
	"prediction-frames/internal/neynar"
	"prediction-frames/internal/repository"

	"github.com/glebarez/sqlite"
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

type fakeSocial struct {
	valid    bool
	fid      int64
	button   int
	err      error
	profiles map[int64]*neynar.User
}

func (f *fakeSocial) ValidateFrameAction(ctx context.Context, messageBytesHex string) (*neynar.ValidatedAction, error) {
	if f.err != nil {
		return nil, f.err
	}
	fid := f.fid
	if fid == 0 {
		// unpinned: the signed message carries the fid as decimal text
		fid, _ = strconv.ParseInt(messageBytesHex, 10, 64)
	}
	return &neynar.ValidatedAction{Valid: f.valid, FID: fid, Button: f.button}, nil
}

func (f *fakeSocial) LookupUserByFID(ctx context.Context, fid int64) (*neynar.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[fid], nil
}

type testEnv struct {
	repo        *repository.Repository
	stats       *StatsService
	markets     *MarketService
	predictions *PredictionService
	users       *UserService
	frames      *FrameService
	social      *fakeSocial
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewRepository(setupTestDB(t))
	social := &fakeSocial{valid: true, profiles: map[int64]*neynar.User{}}
	stats := NewStatsService(repo)
	predictions := NewPredictionService(repo, stats)
	users := NewUserService(repo, social, stats)
	return &testEnv{
		repo:        repo,
		stats:       stats,
		markets:     NewMarketService(repo, stats),
		predictions: predictions,
		users:       users,
		frames:      NewFrameService(repo, users, predictions, "https://app.test", 100),
		social:      social,
	}
}

func (e *testEnv) user(t *testing.T, fid int64) *models.User {
	t.Helper()
	user, err := e.users.EnsureUser(context.Background(), fid)
	if err != nil {
		t.Fatalf("EnsureUser(%d) failed: %v", fid, err)
	}
	return user
}

func (e *testEnv) market(t *testing.T, creatorID, question string, expiresIn time.Duration) *models.Market {
	t.Helper()
	market, err := e.markets.CreateMarket(context.Background(), creatorID, CreateMarketParams{
		Question:  question,
		OptionA:   "Yes",
		OptionB:   "No",
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	})
	if err != nil {
		t.Fatalf("CreateMarket(%q) failed: %v", question, err)
	}
	return market
}

// pastMarket inserts a market that already expired, bypassing the future check
func (e *testEnv) pastMarket(t *testing.T, creatorID, slug string) *models.Market {
	t.Helper()
	market := &models.Market{
		Slug:      slug,
		Question:  "Past " + slug,
		OptionA:   "Yes",
		OptionB:   "No",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatorID: creatorID,
	}
	if err := e.repo.CreateMarket(context.Background(), market); err != nil {
		t.Fatalf("failed to insert market: %v", err)
	}
	return market
}
