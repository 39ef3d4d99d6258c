package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/uxlens/uxlens-backend/internal/http/handlers"
	httpMW "github.com/uxlens/uxlens-backend/internal/http/middleware"
	"github.com/uxlens/uxlens-backend/internal/observability"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	SessionHandler  *httpH.SessionHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("uxlens"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))
	if m := observability.Current(); m != nil {
		r.Use(httpMW.Metrics(m))
		r.GET("/metrics", gin.WrapF(m.WriteHTTP))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Sessions
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.CreateSession)
			api.GET("/sessions", cfg.SessionHandler.ListSessions)
			api.GET("/sessions/:id", cfg.SessionHandler.GetSession)
			api.POST("/sessions/:id/images", cfg.SessionHandler.UploadImages)
			api.POST("/sessions/:id/analyze", cfg.SessionHandler.AnalyzeSession)
			api.GET("/sessions/:id/result", cfg.SessionHandler.GetResult)
			api.DELETE("/sessions/:id", cfg.SessionHandler.ArchiveSession)
		}
	}

	return r
}
