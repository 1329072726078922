package handlers

import (
	"net/http"

	"prediction-frames/internal/auth"
	"prediction-frames/internal/errs"
	"prediction-frames/internal/models"
	"prediction-frames/internal/repository"
	"prediction-frames/internal/services"

	"github.com/gin-gonic/gin"
)

type PredictionHandler struct {
	predictions *services.PredictionService
}

func NewPredictionHandler(predictions *services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// CreatePrediction stakes on one option of a market for the caller
// POST /predictions
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		respondError(c, errs.Unauthorized("Unauthorized"))
		return
	}

	var req models.CreatePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		switch {
		case req.Choice != "" && !req.Choice.Valid():
			respondError(c, errs.Validation("Invalid choice"))
		case req.Amount < 0:
			respondError(c, errs.Validation("Amount must be positive"))
		default:
			respondError(c, bindError(err))
		}
		return
	}

	prediction, err := h.predictions.RecordPrediction(c.Request.Context(), userID, req.MarketID, req.Choice, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, prediction)
}

// GetPredictions lists predictions by user and/or market
// GET /predictions?userId=&marketId=&page=&limit=
func (h *PredictionHandler) GetPredictions(c *gin.Context) {
	filter := repository.PredictionFilter{
		UserID:   c.Query("userId"),
		MarketID: c.Query("marketId"),
	}
	page, limit := pageParams(c)

	predictions, pagination, err := h.predictions.ListPredictions(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": predictions,
		"pagination":  pagination,
	})
}
