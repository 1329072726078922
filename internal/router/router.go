package router

import (
	"net/http"
	"time"

	"prediction-frames/internal/auth"
	"prediction-frames/internal/handlers"
	"prediction-frames/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Handlers groups everything the route table dispatches to
type Handlers struct {
	Auth        *handlers.AuthHandler
	Markets     *handlers.MarketHandler
	Predictions *handlers.PredictionHandler
	Stats       *handlers.StatsHandler
	Frames      *handlers.FrameHandler
	Jobs        *handlers.JobHandler
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// New builds the gin engine. Extra origins are added to the CORS allow list.
func New(h Handlers, extraOrigins ...string) *gin.Engine {
	// request bodies are validated schemas; unknown fields are rejected
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware())

	allowedOrigins := append([]string{}, defaultOrigins...)
	for _, origin := range extraOrigins {
		if origin != "" {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/frame", h.Auth.FrameLogin)
		authRoutes.GET("/me", auth.AuthMiddleware(), h.Auth.Me)
	}

	markets := router.Group("/markets")
	{
		markets.GET("", h.Markets.GetMarkets)
		markets.GET("/:slug", h.Markets.GetMarket)
		markets.POST("", auth.AuthMiddleware(), h.Markets.CreateMarket)
		markets.PATCH("/:slug", auth.AuthMiddleware(), h.Markets.ResolveMarket)
	}

	predictions := router.Group("/predictions")
	{
		predictions.GET("", h.Predictions.GetPredictions)
		predictions.POST("", auth.AuthMiddleware(), h.Predictions.CreatePrediction)
	}

	router.GET("/stats", h.Stats.GetStats)

	frames := router.Group("/frames")
	{
		frames.GET("/:slug", h.Frames.GetFrame)
		frames.POST("/:slug", h.Frames.PostFrame)
	}

	router.POST("/jobs/:name", h.Jobs.RunJob)

	return router
}
