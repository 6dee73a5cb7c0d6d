package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoomsync/crm-bridge/internal/config"
	"github.com/zoomsync/crm-bridge/internal/crm"
	"github.com/zoomsync/crm-bridge/internal/httpserver"
	"github.com/zoomsync/crm-bridge/internal/reconcile"
	"github.com/zoomsync/crm-bridge/internal/store"
)

// main boots the service: config → DB → schema → pipeline → HTTP server.
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		log.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	client := crm.NewClient(crm.ClientOptions{
		BaseURL:   cfg.CRMBaseURL,
		APIKey:    cfg.CRMAPIKey,
		UserAgent: "crm-bridge",
	})

	resolver := reconcile.NewResolver(db, client, cfg.CRMLocationID, log)
	propagator := reconcile.NewPropagator(client, db, cfg.CRMWorkflowID, log)
	engine := reconcile.NewEngine(db, resolver, propagator, log)

	router := httpserver.NewRouter(cfg, db, engine, log)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	go func() {
		log.Info("server started", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// In-flight webhook deliveries get a grace period on shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
