package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a fresh engine
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = MaxUploadMemory
	r.Use(gin.Recovery(), requestLogger(h.log))

	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.ListSessions)
			sessions.POST("", h.ImportSessions)
			sessions.GET("/detail", h.GetSession)
		}

		v1.GET("/records", h.Records)
		v1.GET("/load", h.Load)
		v1.GET("/zones", h.Zones)
		v1.GET("/predictions", h.Predictions)
		v1.GET("/fitness", h.Fitness)
		v1.GET("/periods", h.Periods)
		v1.GET("/stats", h.Stats)
	}

	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
