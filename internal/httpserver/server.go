package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zoomsync/crm-bridge/internal/config"
	"github.com/zoomsync/crm-bridge/internal/handlers"
	"github.com/zoomsync/crm-bridge/internal/reconcile"
	"github.com/zoomsync/crm-bridge/internal/store"
)

// NewRouter wires the public endpoints and both webhook intake paths.
// Webhook authenticity is enforced per-delivery by the signature check, not
// by a router-level middleware.
func NewRouter(cfg config.Config, st *store.PostgresStore, engine *reconcile.Engine, log *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handlers.RegisterZoomRoutes(r, engine, handlers.WebhookConfig{
		SecretToken:      cfg.ZoomSecretToken,
		VerifySignatures: cfg.VerifySignatures,
	}, log)
	handlers.RegisterContactRoutes(r, st, log)

	return r
}
