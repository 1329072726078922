package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Principal is the authenticated caller of a mutating operation
type Principal struct {
	UserID string
	FID    int64
	Admin  bool
}

// CreateMarketParams holds the validated inputs for CreateMarket
type CreateMarketParams struct {
	Question    string
	Description *string
	OptionA     string
	OptionB     string
	ExpiresAt   time.Time
}

// MarketService handles market lifecycle
type MarketService struct {
	repo  *repository.Repository
	stats *StatsService
	now   func() time.Time
}

// NewMarketService creates a new MarketService
func NewMarketService(repo *repository.Repository, stats *StatsService) *MarketService {
	return &MarketService{
		repo:  repo,
		stats: stats,
		now:   utcNow,
	}
}

// CreateMarket stores a new market under a unique slug derived from the question
func (s *MarketService) CreateMarket(ctx context.Context, creatorID string, params CreateMarketParams) (*models.Market, error) {
	// slug follows the question as typed; only the stored text is trimmed
	base := Slugify(params.Question)
	params.Question = strings.TrimSpace(params.Question)
	params.OptionA = strings.TrimSpace(params.OptionA)
	params.OptionB = strings.TrimSpace(params.OptionB)
	if params.Question == "" || params.OptionA == "" || params.OptionB == "" || params.ExpiresAt.IsZero() {
		return nil, errs.Validation("Missing required fields")
	}
	if !params.ExpiresAt.After(s.now()) {
		return nil, errs.Validation("Expiration date must be in the future")
	}

	if _, err := s.repo.GetUserByID(ctx, creatorID); err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("User not found")
		}
		return nil, errs.Upstream("Failed to create market", err)
	}

	for n := 0; n < maxSlugAttempts; n++ {
		market := &models.Market{
			Slug:        slugCandidate(base, n),
			Question:    params.Question,
			Description: params.Description,
			OptionA:     params.OptionA,
			OptionB:     params.OptionB,
			ExpiresAt:   params.ExpiresAt.UTC(),
			CreatorID:   creatorID,
		}

		err := s.repo.CreateMarket(ctx, market)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, errs.Upstream("Failed to create market", err)
		}

		log.Info().
			Str("market_id", market.ID).
			Str("slug", market.Slug).
			Str("creator_id", creatorID).
			Msg("Market created")
		return s.GetMarketBySlug(ctx, market.Slug)
	}

	return nil, errs.Conflict("Could not allocate a unique slug")
}

// ListMarkets returns a page of markets with vote splits, newest first
func (s *MarketService) ListMarkets(ctx context.Context, status models.MarketStatus, page, limit int) ([]models.Market, models.Pagination, error) {
	page, limit = normalizePage(page, limit)

	markets, total, err := s.repo.ListMarkets(ctx, status, s.now(), limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, errs.Upstream("Failed to fetch markets", err)
	}

	ids := make([]string, len(markets))
	for i := range markets {
		ids[i] = markets[i].ID
	}
	splits, err := s.repo.VoteSplits(ctx, ids)
	if err != nil {
		return nil, models.Pagination{}, errs.Upstream("Failed to fetch markets", err)
	}
	for i := range markets {
		markets[i].VoteSplit = splitOrEmpty(splits[markets[i].ID])
	}

	return markets, models.NewPagination(page, limit, total), nil
}

// GetMarketBySlug returns the market with creator, predictions and vote split
func (s *MarketService) GetMarketBySlug(ctx context.Context, slug string) (*models.Market, error) {
	market, err := s.repo.GetMarketBySlug(ctx, slug, true)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("Market not found")
		}
		return nil, errs.Upstream("Failed to fetch market", err)
	}

	split := &models.VoteSplit{}
	for _, p := range market.Predictions {
		split.Add(p.Choice, 1)
	}
	market.VoteSplit = split
	return market, nil
}

// ResolveMarket sets the outcome once and credits every winning prediction.
// Only the creator or an admin may resolve.
func (s *MarketService) ResolveMarket(ctx context.Context, principal Principal, slug string, outcome models.Outcome) (*models.Market, error) {
	if !outcome.Valid() {
		return nil, errs.Validation("Invalid outcome")
	}

	market, err := s.repo.GetMarketBySlug(ctx, slug, false)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("Market not found")
		}
		return nil, errs.Upstream("Failed to resolve market", err)
	}
	if market.ResolvedAt != nil {
		return nil, errs.Conflict("Market already resolved")
	}
	if market.CreatorID != principal.UserID && !principal.Admin {
		return nil, errs.Forbidden("Only the market creator can resolve this market")
	}

	resolved, err := s.repo.ResolveMarket(ctx, market.ID, outcome, s.now())
	if err != nil {
		return nil, errs.Upstream("Failed to resolve market", err)
	}
	if !resolved {
		return nil, errs.Conflict("Market already resolved")
	}

	log.Info().
		Str("market_id", market.ID).
		Str("outcome", string(outcome)).
		Str("resolved_by", principal.UserID).
		Msg("Market resolved")

	s.awardWinners(ctx, market.ID, outcome)

	return s.GetMarketBySlug(ctx, slug)
}

// awardWinners credits predictions matching outcome. The market stays
// resolved even if a credit fails; rebuild-stats repairs the counters.
func (s *MarketService) awardWinners(ctx context.Context, marketID string, outcome models.Outcome) {
	if outcome == models.OutcomeCancelled {
		return
	}

	winners, err := s.repo.WinningPredictions(ctx, marketID, models.Choice(outcome))
	if err != nil {
		log.Error().Err(err).Str("market_id", marketID).Msg("Failed to load winning predictions")
		return
	}

	for _, p := range winners {
		if err := s.stats.OnPredictionWon(ctx, p.UserID, p.Amount); err != nil {
			log.Error().Err(err).
				Str("market_id", marketID).
				Str("user_id", p.UserID).
				Msg("Failed to credit winning prediction")
		}
	}
	log.Info().Str("market_id", marketID).Int("winners", len(winners)).Msg("Winners credited")
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func splitOrEmpty(split *models.VoteSplit) *models.VoteSplit {
	if split == nil {
		return &models.VoteSplit{}
	}
	return split
}
