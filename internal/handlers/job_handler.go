package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"prediction-frames/internal/jobs"

	"github.com/gin-gonic/gin"
)

const jobSecretHeader = "X-Job-Secret"

type JobHandler struct {
	maintenance *jobs.Maintenance
	secret      string
}

func NewJobHandler(maintenance *jobs.Maintenance, secret string) *JobHandler {
	return &JobHandler{
		maintenance: maintenance,
		secret:      secret,
	}
}

// RunJob triggers a maintenance job on demand. An empty configured secret
// disables the endpoint.
// POST /jobs/:name
func (h *JobHandler) RunJob(c *gin.Context) {
	given := c.GetHeader(jobSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	name := c.Param("name")
	if err := h.maintenance.Run(c.Request.Context(), name); err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown job"})
			return
		}
		respondErrorStatus(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job":    name,
		"status": "completed",
	})
}
