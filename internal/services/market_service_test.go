package services

import (
	"context"
	"testing"
	"time"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
)

func TestCreateMarketSlugCollision(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, 1)

	first := env.market(t, creator.ID, "Will Bitcoin reach $100,000??", time.Hour)
	if first.Slug != "will-bitcoin-reach-100000" {
		t.Errorf("unexpected slug %q", first.Slug)
	}

	second := env.market(t, creator.ID, "Will Bitcoin reach $100,000??", time.Hour)
	if second.Slug != "will-bitcoin-reach-100000-1" {
		t.Errorf("unexpected collision slug %q", second.Slug)
	}

	third := env.market(t, creator.ID, "Will Bitcoin reach $100,000??", time.Hour)
	if third.Slug != "will-bitcoin-reach-100000-2" {
		t.Errorf("unexpected collision slug %q", third.Slug)
	}
}

func TestCreateMarketSlugUsesUntrimmedQuestion(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, 1)

	raw := "  Spaced question "
	market := env.market(t, creator.ID, raw, time.Hour)
	if market.Slug != Slugify(raw) || market.Slug != "-spaced-question-" {
		t.Errorf("unexpected slug %q", market.Slug)
	}
	if market.Question != "Spaced question" {
		t.Errorf("expected stored question trimmed, got %q", market.Question)
	}
}

func TestCreateMarketOpenState(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, 1)

	market := env.market(t, creator.ID, "Open?", time.Hour)
	if market.ResolvedAt != nil || market.Outcome != nil {
		t.Errorf("new market should be open, got resolvedAt=%v outcome=%v", market.ResolvedAt, market.Outcome)
	}
	if market.CreatorID != creator.ID || market.Creator == nil {
		t.Errorf("expected creator %s, got %+v", creator.ID, market.Creator)
	}
	if market.VoteSplit == nil || market.VoteSplit.Total != 0 {
		t.Errorf("expected empty vote split, got %+v", market.VoteSplit)
	}
}

func TestCreateMarketValidation(t *testing.T) {
	env := newTestEnv(t)
	creator := env.user(t, 1)
	future := time.Now().UTC().Add(time.Hour)

	tests := []struct {
		name   string
		params CreateMarketParams
		msg    string
	}{
		{"missing question", CreateMarketParams{OptionA: "a", OptionB: "b", ExpiresAt: future}, "Missing required fields"},
		{"blank option", CreateMarketParams{Question: "q", OptionA: "  ", OptionB: "b", ExpiresAt: future}, "Missing required fields"},
		{"missing expiry", CreateMarketParams{Question: "q", OptionA: "a", OptionB: "b"}, "Missing required fields"},
		{"past expiry", CreateMarketParams{Question: "q", OptionA: "a", OptionB: "b", ExpiresAt: time.Now().UTC().Add(-time.Minute)}, "Expiration date must be in the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.markets.CreateMarket(context.Background(), creator.ID, tt.params)
			if !errs.Is(err, errs.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if errs.Message(err) != tt.msg {
				t.Errorf("message = %q, want %q", errs.Message(err), tt.msg)
			}
		})
	}
}

func TestListMarketsWithSplits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.user(t, 1)

	older := env.market(t, creator.ID, "Older", time.Hour)
	newer := env.market(t, creator.ID, "Newer", time.Hour)
	env.pastMarket(t, creator.ID, "expired")

	for fid := int64(10); fid < 13; fid++ {
		u := env.user(t, fid)
		if _, err := env.predictions.RecordPrediction(ctx, u.ID, older.ID, models.ChoiceOptionB, 10); err != nil {
			t.Fatalf("RecordPrediction failed: %v", err)
		}
	}

	markets, page, err := env.markets.ListMarkets(ctx, models.MarketStatusActive, 1, 10)
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
	if page.Total != 2 || page.Pages != 1 || page.Page != 1 || page.Limit != 10 {
		t.Errorf("unexpected pagination: %+v", page)
	}
	if len(markets) != 2 || markets[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %d markets", len(markets))
	}
	if split := markets[1].VoteSplit; split.OptionB != 3 || split.Total != 3 {
		t.Errorf("unexpected split: %+v", split)
	}

	all, page, err := env.markets.ListMarkets(ctx, models.MarketStatusAll, 2, 2)
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(all) != 1 {
		t.Errorf("unexpected second page: %+v with %d rows", page, len(all))
	}
}

func TestGetMarketBySlugNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.markets.GetMarketBySlug(context.Background(), "missing"); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestResolveMarketCreditsWinners(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.user(t, 1)
	u1 := env.user(t, 2)
	u2 := env.user(t, 3)

	market := env.market(t, creator.ID, "Scenario", time.Hour)
	if _, err := env.predictions.RecordPrediction(ctx, u1.ID, market.ID, models.ChoiceOptionA, 100); err != nil {
		t.Fatalf("u1 prediction failed: %v", err)
	}
	if _, err := env.predictions.RecordPrediction(ctx, u2.ID, market.ID, models.ChoiceOptionB, 150); err != nil {
		t.Fatalf("u2 prediction failed: %v", err)
	}

	u2Before, err := env.repo.GetUserStats(ctx, u2.ID)
	if err != nil {
		t.Fatalf("u2 stats missing: %v", err)
	}

	resolved, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, market.Slug, models.OutcomeOptionA)
	if err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if resolved.ResolvedAt == nil || resolved.Outcome == nil || *resolved.Outcome != models.OutcomeOptionA {
		t.Errorf("expected resolved OPTION_A market, got %+v", resolved)
	}
	if len(resolved.Predictions) != 2 || resolved.Creator == nil {
		t.Errorf("expected creator and 2 predictions on resolved market")
	}

	u1Stats, err := env.repo.GetUserStats(ctx, u1.ID)
	if err != nil {
		t.Fatalf("u1 stats missing: %v", err)
	}
	if u1Stats.CorrectPredictions != 1 || u1Stats.TotalWon != 200 {
		t.Errorf("u1 should have 1 correct and 200 won, got %+v", u1Stats)
	}
	if u1Stats.TotalPredictions != 1 || u1Stats.TotalWagered != 100 {
		t.Errorf("u1 totals should be unchanged by the win, got %+v", u1Stats)
	}

	u2After, err := env.repo.GetUserStats(ctx, u2.ID)
	if err != nil {
		t.Fatalf("u2 stats missing: %v", err)
	}
	if u2After.CorrectPredictions != u2Before.CorrectPredictions || u2After.TotalWon != u2Before.TotalWon ||
		u2After.TotalPredictions != 1 || u2After.TotalWagered != 150 {
		t.Errorf("u2 should be untouched by the win path, got %+v", u2After)
	}
}

func TestResolveMarketCancelledAwardsNobody(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.user(t, 1)
	bettor := env.user(t, 2)

	market := env.market(t, creator.ID, "Cancel me", time.Hour)
	if _, err := env.predictions.RecordPrediction(ctx, bettor.ID, market.ID, models.ChoiceOptionA, 100); err != nil {
		t.Fatalf("prediction failed: %v", err)
	}

	if _, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, market.Slug, models.OutcomeCancelled); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	stats, _ := env.repo.GetUserStats(ctx, bettor.ID)
	if stats.CorrectPredictions != 0 || stats.TotalWon != 0 {
		t.Errorf("cancelled market must not credit anyone, got %+v", stats)
	}
}

func TestResolveMarketErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.user(t, 1)
	stranger := env.user(t, 2)
	market := env.market(t, creator.ID, "Errors", time.Hour)

	if _, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, market.Slug, "MAYBE"); !errs.Is(err, errs.KindValidation) {
		t.Errorf("expected invalid outcome, got %v", err)
	}
	if _, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, "missing", models.OutcomeOptionA); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := env.markets.ResolveMarket(ctx, Principal{UserID: stranger.ID}, market.Slug, models.OutcomeOptionA); !errs.Is(err, errs.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	admin := Principal{UserID: stranger.ID, Admin: true}
	if _, err := env.markets.ResolveMarket(ctx, admin, market.Slug, models.OutcomeOptionB); err != nil {
		t.Fatalf("admin resolve failed: %v", err)
	}

	_, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, market.Slug, models.OutcomeOptionA)
	if !errs.Is(err, errs.KindConflict) || errs.Message(err) != "Market already resolved" {
		t.Errorf("expected already resolved conflict, got %v", err)
	}
}

func TestResolveMarketConcurrent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.user(t, 1)
	bettor := env.user(t, 2)
	market := env.market(t, creator.ID, "Race", time.Hour)
	if _, err := env.predictions.RecordPrediction(ctx, bettor.ID, market.ID, models.ChoiceOptionA, 10); err != nil {
		t.Fatalf("prediction failed: %v", err)
	}

	const workers = 5
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := env.markets.ResolveMarket(ctx, Principal{UserID: creator.ID}, market.Slug, models.OutcomeOptionA)
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case !errs.Is(err, errs.KindConflict):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one resolution, got %d", succeeded)
	}

	stats, _ := env.repo.GetUserStats(ctx, bettor.ID)
	if stats.CorrectPredictions != 1 || stats.TotalWon != 20 {
		t.Errorf("winner credited more than once: %+v", stats)
	}
}
