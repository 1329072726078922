package handlers

import (
	"encoding/json"
	"net/http"

	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type FrameHandler struct {
	frames *services.FrameService
}

func NewFrameHandler(frames *services.FrameService) *FrameHandler {
	return &FrameHandler{frames: frames}
}

// GetFrame renders the frame card for a market as HTML
// GET /frames/:slug
func (h *FrameHandler) GetFrame(c *gin.Context) {
	card, err := h.frames.Card(c.Request.Context(), c.Param("slug"), c.DefaultQuery("action", services.FrameActionView))
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			c.String(http.StatusNotFound, "Market not found")
			return
		}
		log.Error().Err(err).Str("slug", c.Param("slug")).Msg("Failed to build frame")
		c.String(http.StatusInternalServerError, "Error rendering frame")
		return
	}

	html, err := card.Render()
	if err != nil {
		log.Error().Err(err).Str("slug", c.Param("slug")).Msg("Failed to render frame")
		c.String(http.StatusInternalServerError, "Error rendering frame")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// PostFrame handles a signed frame button tap
// POST /frames/:slug
func (h *FrameHandler) PostFrame(c *gin.Context) {
	req, ok := decodeFrameAction(c)
	if !ok {
		return
	}

	resp, err := h.frames.HandleAction(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// decodeFrameAction reads a frame action without rejecting unknown fields:
// social clients add payload fields over time.
func decodeFrameAction(c *gin.Context) (*models.FrameActionRequest, bool) {
	var req models.FrameActionRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		respondError(c, errs.Validation("Invalid frame payload"))
		return nil, false
	}
	return &req, true
}
