package handlers

import (
	"errors"
	"strconv"

	"prediction-frames/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// respondError maps a service error to its status and an {error} body.
// Internal and upstream causes are logged, never returned.
func respondError(c *gin.Context, err error) {
	respondErrorStatus(c, errs.HTTPStatus(err), err)
}

func respondErrorStatus(c *gin.Context, status int, err error) {
	if status >= 500 {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errs.Message(err)})
}

// bindJSON decodes and validates the body into req, answering 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return errs.Validation("Missing required fields")
			}
		}
		return errs.Validation("Invalid field: " + verrs[0].Field())
	}
	return errs.Validation("Invalid request body")
}

// pageParams reads page and limit query values. Bad or missing values fall
// back to defaults; the service clamps the range.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}
	return page, limit
}
