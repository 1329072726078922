package handlers

import (
	"net/http"
	"time"

	"prediction-frames/internal/auth"
	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
)

// expiresAtLayouts are accepted for expiresAt; zone-less values are UTC
var expiresAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type MarketHandler struct {
	markets *services.MarketService
	isAdmin func(fid int64) bool
}

func NewMarketHandler(markets *services.MarketService, isAdmin func(fid int64) bool) *MarketHandler {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &MarketHandler{
		markets: markets,
		isAdmin: isAdmin,
	}
}

// CreateMarket creates a market owned by the caller
// POST /markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondError(c, errs.Unauthorized("Unauthorized"))
		return
	}

	var req models.CreateMarketRequest
	if !bindJSON(c, &req) {
		return
	}

	expiresAt, err := parseExpiresAt(req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}

	market, err := h.markets.CreateMarket(c.Request.Context(), userID, services.CreateMarketParams{
		Question:    req.Question,
		Description: req.Description,
		OptionA:     req.OptionA,
		OptionB:     req.OptionB,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, market)
}

// GetMarkets lists markets filtered by status
// GET /markets?status=&page=&limit=
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status, ok := models.ParseMarketStatus(c.Query("status"))
	if !ok {
		respondError(c, errs.Validation("Invalid status"))
		return
	}
	page, limit := pageParams(c)

	markets, pagination, err := h.markets.ListMarkets(c.Request.Context(), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markets":    markets,
		"pagination": pagination,
	})
}

// GetMarket returns one market with predictions and vote split
// GET /markets/:slug
func (h *MarketHandler) GetMarket(c *gin.Context) {
	market, err := h.markets.GetMarketBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

// ResolveMarket sets the outcome of a market
// PATCH /markets/:slug
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondError(c, errs.Unauthorized("Unauthorized"))
		return
	}
	fid, _ := auth.GetFID(c)

	var req models.ResolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if req.Outcome != "" && !req.Outcome.Valid() {
			respondError(c, errs.Validation("Invalid outcome"))
			return
		}
		respondError(c, bindError(err))
		return
	}

	principal := services.Principal{
		UserID: userID,
		FID:    fid,
		Admin:  h.isAdmin(fid),
	}
	market, err := h.markets.ResolveMarket(c.Request.Context(), principal, c.Param("slug"), req.Outcome)
	if err != nil {
		// an already-resolved market is a bad request at this call site
		if errs.Is(err, errs.KindConflict) {
			respondErrorStatus(c, http.StatusBadRequest, err)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}

func parseExpiresAt(raw string) (time.Time, error) {
	for _, layout := range expiresAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.Validation("Invalid expiration date")
}
