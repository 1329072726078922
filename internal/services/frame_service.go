package services

import (
	"context"
	"fmt"
	"time"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/frames"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"

	"github.com/rs/zerolog/log"
)

const FrameActionView = "view"

// FrameService renders market frames and turns frame taps into predictions
type FrameService struct {
	repo          *repository.Repository
	users         *UserService
	predictions   *PredictionService
	baseURL       string
	defaultAmount int64
	now           func() time.Time
}

// NewFrameService creates a new FrameService
func NewFrameService(
	repo *repository.Repository,
	users *UserService,
	predictions *PredictionService,
	baseURL string,
	defaultAmount int64,
) *FrameService {
	return &FrameService{
		repo:          repo,
		users:         users,
		predictions:   predictions,
		baseURL:       baseURL,
		defaultAmount: defaultAmount,
		now:           utcNow,
	}
}

// Card builds the frame for a market. Open markets get vote buttons posting
// back to the frame; closed ones link out to results.
func (s *FrameService) Card(ctx context.Context, slug, action string) (*frames.Card, error) {
	market, err := s.repo.GetMarketBySlug(ctx, slug, false)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("Market not found")
		}
		return nil, errs.Upstream("Error rendering frame", err)
	}

	splits, err := s.repo.VoteSplits(ctx, []string{market.ID})
	if err != nil {
		return nil, errs.Upstream("Error rendering frame", err)
	}
	split := splitOrEmpty(splits[market.ID])

	card := &frames.Card{
		Title: market.Question,
		ImageURL: frames.ImageURL(s.baseURL, frames.ImageParams{
			Question:     market.Question,
			OptionA:      market.OptionA,
			OptionB:      market.OptionB,
			ExpiresAt:    market.ExpiresAt,
			OptionAVotes: split.OptionA,
			OptionBVotes: split.OptionB,
		}),
	}
	if action != "" && action != FrameActionView {
		return card, nil
	}

	frameURL := fmt.Sprintf("%s/frames/%s", s.baseURL, market.Slug)
	if market.IsOpen(s.now()) {
		card.Buttons = []frames.Button{
			{Label: market.OptionA, Action: frames.ActionPost},
			{Label: market.OptionB, Action: frames.ActionPost},
			{Label: "Refresh", Action: frames.ActionPost},
		}
		card.PostURL = frameURL
	} else {
		card.Buttons = []frames.Button{
			{Label: "View Results", Action: frames.ActionLink, Target: fmt.Sprintf("%s/markets/%s", s.baseURL, market.Slug)},
			{Label: "New Prediction", Action: frames.ActionLink, Target: s.baseURL + "/create"},
		}
	}
	return card, nil
}

// HandleAction verifies a frame tap and records buttons 1 and 2 as a
// prediction of the default amount for the tapping fid.
func (s *FrameService) HandleAction(ctx context.Context, slug string, req *models.FrameActionRequest) (*models.FrameActionResponse, error) {
	fid, button, err := s.users.VerifyAction(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := s.users.EnsureUser(ctx, fid)
	if err != nil {
		return nil, err
	}

	market, err := s.repo.GetMarketBySlug(ctx, slug, false)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("Market not found")
		}
		return nil, errs.Upstream("Failed to process frame action", err)
	}
	if !market.IsOpen(s.now()) {
		return nil, errs.Validation("Market is no longer active")
	}

	var choice models.Choice
	switch button {
	case 1:
		choice = models.ChoiceOptionA
	case 2:
		choice = models.ChoiceOptionB
	default:
		return &models.FrameActionResponse{Message: "Action completed"}, nil
	}

	_, err = s.predictions.RecordPrediction(ctx, user.ID, market.ID, choice, s.defaultAmount)
	if errs.Is(err, errs.KindConflict) {
		return s.existingPrediction(ctx, market.ID, user.ID)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("slug", slug).Int64("fid", fid).Str("choice", string(choice)).Msg("Frame prediction recorded")
	return &models.FrameActionResponse{
		Message: fmt.Sprintf("Successfully predicted %s!", market.Label(choice)),
		Choice:  &choice,
	}, nil
}

func (s *FrameService) existingPrediction(ctx context.Context, marketID, userID string) (*models.FrameActionResponse, error) {
	existing, err := s.repo.GetPrediction(ctx, marketID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.Conflict("User already has a prediction for this market")
		}
		return nil, errs.Upstream("Failed to process frame action", err)
	}
	return &models.FrameActionResponse{
		Message: "You already have a prediction for this market!",
		Choice:  &existing.Choice,
	}, nil
}
