package handlers

import (
	"net/http"

	"prediction-frames/internal/auth"
	"prediction-frames/internal/errs"
	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	users *services.UserService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// FrameLogin authenticates the fid behind a signed frame action and issues
// a session token for it.
// POST /auth/frame
func (h *AuthHandler) FrameLogin(c *gin.Context) {
	req, ok := decodeFrameAction(c)
	if !ok {
		return
	}

	fid, _, err := h.users.VerifyAction(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.users.EnsureUser(c.Request.Context(), fid)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.FID)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Info().Str("user_id", user.ID).Int64("fid", fid).Msg("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user with their stats
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondError(c, errs.Unauthorized("Unauthorized"))
		return
	}

	me, err := h.users.GetMe(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, me)
}
