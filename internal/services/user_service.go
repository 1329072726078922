package services

import (
	"context"
	"fmt"
	"strings"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/neynar"
	"prediction-frames/internal/repository"

	"github.com/rs/zerolog/log"
)

// SocialClient is the subset of the Neynar API the services depend on
type SocialClient interface {
	ValidateFrameAction(ctx context.Context, messageBytesHex string) (*neynar.ValidatedAction, error)
	LookupUserByFID(ctx context.Context, fid int64) (*neynar.User, error)
}

// UserService handles fid-keyed identities
type UserService struct {
	repo   *repository.Repository
	social SocialClient
	stats  *StatsService
}

// NewUserService creates a new UserService
func NewUserService(repo *repository.Repository, social SocialClient, stats *StatsService) *UserService {
	return &UserService{
		repo:   repo,
		social: social,
		stats:  stats,
	}
}

// VerifyAction validates a signed frame action with the social client and
// returns the trusted fid and button. The fid must come from the validator;
// only the button falls back to the untrusted copy.
func (s *UserService) VerifyAction(ctx context.Context, req *models.FrameActionRequest) (int64, int, error) {
	if strings.TrimSpace(req.TrustedData.MessageBytes) == "" {
		return 0, 0, errs.Unauthorized("Invalid frame signature")
	}

	action, err := s.social.ValidateFrameAction(ctx, req.TrustedData.MessageBytes)
	if err != nil {
		log.Error().Err(err).Msg("Frame validation request failed")
		return 0, 0, errs.Upstream("Failed to verify frame action", err)
	}
	if !action.Valid {
		return 0, 0, errs.Unauthorized("Invalid frame signature")
	}

	if action.FID <= 0 {
		return 0, 0, errs.Unauthorized("Invalid frame signature")
	}
	button := action.Button
	if button == 0 {
		button = req.UntrustedData.ButtonIndex
	}
	return action.FID, button, nil
}

// EnsureUser returns the user for fid, creating it on first sight. New users
// take their profile from the social client; if the lookup fails the
// placeholder user_<fid> / User <fid> is stored instead.
func (s *UserService) EnsureUser(ctx context.Context, fid int64) (*models.User, error) {
	if fid <= 0 {
		return nil, errs.Validation("Invalid fid")
	}

	user, err := s.repo.GetUserByFID(ctx, fid)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, errs.Upstream("Failed to load user", err)
	}

	user = placeholderUser(fid)
	if s.social != nil {
		profile, err := s.social.LookupUserByFID(ctx, fid)
		if err != nil {
			log.Warn().Err(err).Int64("fid", fid).Msg("Profile lookup failed, using placeholder")
		} else if profile != nil {
			applyProfile(user, profile)
		}
	}

	user, err = s.repo.UpsertUser(ctx, user, false)
	if err != nil {
		return nil, errs.Upstream("Failed to create user", err)
	}
	log.Info().Str("user_id", user.ID).Int64("fid", fid).Msg("User created")
	return user, nil
}

// GetUser retrieves a user by id
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errs.NotFound("User not found")
		}
		return nil, errs.Upstream("Failed to load user", err)
	}
	return user, nil
}

// Me is the authenticated user's profile with their stats
type Me struct {
	User  *models.User      `json:"user"`
	Stats *models.UserStats `json:"stats"`
}

// GetMe returns the user and their stats row, if any
func (s *UserService) GetMe(ctx context.Context, userID string) (*Me, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Me{User: user, Stats: stats}, nil
}

func placeholderUser(fid int64) *models.User {
	username := fmt.Sprintf("user_%d", fid)
	displayName := fmt.Sprintf("User %d", fid)
	return &models.User{
		FID:         fid,
		Username:    &username,
		DisplayName: &displayName,
	}
}

func applyProfile(user *models.User, profile *neynar.User) {
	if profile.Username != "" {
		user.Username = &profile.Username
	}
	if profile.DisplayName != "" {
		user.DisplayName = &profile.DisplayName
	}
	if profile.PfpURL != "" {
		user.PfpURL = &profile.PfpURL
	}
}
