// Package seed loads demo users, markets and predictions. Every write is
// keyed on a unique column, so running it twice changes nothing.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/services"

	"github.com/rs/zerolog/log"
)

type demoUser struct {
	fid         int64
	username    string
	displayName string
}

type demoMarket struct {
	slug        string
	question    string
	description string
	expiresIn   time.Duration
	creator     int
}

type demoPrediction struct {
	market int
	user   int
	choice models.Choice
	amount int64
}

const day = 24 * time.Hour

var (
	demoUsers = []demoUser{
		{1, "alice", "Alice Smith"},
		{2, "bob", "Bob Johnson"},
		{3, "charlie", "Charlie Brown"},
	}

	demoMarkets = []demoMarket{
		{"bitcoin-price", "Will Bitcoin reach $100,000 by the end of the year?", "A prediction on Bitcoin's price trajectory", 30 * day, 0},
		{"election-outcome", "Will the incumbent win the next election?", "Prediction on the outcome of the upcoming election", 60 * day, 1},
		{"ai-breakthrough", "Will AGI be achieved this year?", "Prediction on an artificial general intelligence breakthrough", 90 * day, 2},
		{"weather-prediction", "Will it rain tomorrow in San Francisco?", "Simple weather prediction for tomorrow", day, 0},
		{"sports-championship", "Will Team A win the championship?", "Championship prediction for the upcoming season", 14 * day, 1},
	}

	demoPredictions = []demoPrediction{
		{0, 0, models.ChoiceOptionA, 100},
		{0, 1, models.ChoiceOptionB, 150},
		{1, 2, models.ChoiceOptionA, 200},
		{2, 0, models.ChoiceOptionB, 75},
	}
)

// Result counts the rows the run inserted
type Result struct {
	Users       int
	Markets     int
	Predictions int
}

// Run inserts whatever demo rows are missing and rebuilds stats from them
func Run(ctx context.Context, repo *repository.Repository, stats *services.StatsService, now time.Time) (*Result, error) {
	var result Result

	users := make([]*models.User, len(demoUsers))
	for i, du := range demoUsers {
		user, err := repo.GetUserByFID(ctx, du.fid)
		if err == nil {
			users[i] = user
			continue
		}
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load user %s: %w", du.username, err)
		}

		username, displayName := du.username, du.displayName
		pfp := fmt.Sprintf("https://picsum.photos/200/200?random=%d", du.fid)
		user, err = repo.UpsertUser(ctx, &models.User{
			FID:         du.fid,
			Username:    &username,
			DisplayName: &displayName,
			PfpURL:      &pfp,
		}, false)
		if err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", du.username, err)
		}
		users[i] = user
		result.Users++
	}

	markets := make([]*models.Market, len(demoMarkets))
	for i, dm := range demoMarkets {
		description := dm.description
		market := &models.Market{
			Slug:        dm.slug,
			Question:    dm.question,
			Description: &description,
			OptionA:     "Yes",
			OptionB:     "No",
			ExpiresAt:   now.Add(dm.expiresIn),
			CreatorID:   users[dm.creator].ID,
		}
		err := repo.CreateMarket(ctx, market)
		switch {
		case err == nil:
			result.Markets++
		case errors.Is(err, repository.ErrDuplicate):
			if market, err = repo.GetMarketBySlug(ctx, dm.slug, false); err != nil {
				return nil, fmt.Errorf("failed to load market %s: %w", dm.slug, err)
			}
		default:
			return nil, fmt.Errorf("failed to seed market %s: %w", dm.slug, err)
		}
		markets[i] = market
	}

	for _, dp := range demoPredictions {
		err := repo.CreatePrediction(ctx, &models.Prediction{
			MarketID: markets[dp.market].ID,
			UserID:   users[dp.user].ID,
			Choice:   dp.choice,
			Amount:   dp.amount,
		})
		switch {
		case err == nil:
			result.Predictions++
		case errors.Is(err, repository.ErrDuplicate):
		default:
			return nil, fmt.Errorf("failed to seed prediction: %w", err)
		}
	}

	if err := stats.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("failed to rebuild stats: %w", err)
	}

	log.Info().
		Int("users", result.Users).
		Int("markets", result.Markets).
		Int("predictions", result.Predictions).
		Msg("Seed completed")
	return &result, nil
}
