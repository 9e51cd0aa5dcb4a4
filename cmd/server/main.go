package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/account"
	"github.com/crickbet/wager-engine/internal/config"
	"github.com/crickbet/wager-engine/internal/metrics"
	"github.com/crickbet/wager-engine/internal/model"
	"github.com/crickbet/wager-engine/internal/store"
	"github.com/crickbet/wager-engine/internal/wager"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	startBalance := decimal.NewFromInt(int64(cfg.Game.StartBalance))
	referralReward := decimal.NewFromInt(int64(cfg.Game.ReferralReward))

	// --- Initialize stores ---
	var st store.Store
	var accounts account.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		accounts = account.NewPostgresStore(pool, startBalance, referralReward)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.Addr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.Redis.CacheTTL.Duration)
			slog.Info("Redis cache enabled", "addr", cfg.Redis.Addr)
		}
	} else {
		slog.Warn("database url not set, using in-memory stores (data will not persist)")
		st = store.NewMemoryStore()
		accounts = account.NewMemoryStore(startBalance, referralReward)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	hub := wager.NewEventHub()
	go hub.Run()

	// --- Wager engine ---
	svc := wager.NewService(st, accounts, hub)

	// --- Snapshot restore + periodic save ---
	snapshotStop := make(chan struct{})
	snapshotDone := make(chan struct{})
	if cfg.Snapshot.Path != "" {
		if err := restoreSnapshot(svc, cfg.Snapshot.Path); err != nil {
			slog.Error("snapshot restore failed", "path", cfg.Snapshot.Path, "err", err)
			os.Exit(1)
		}
		go runSnapshotLoop(svc, cfg.Snapshot.Path, cfg.Snapshot.SaveInterval.Duration, snapshotStop, snapshotDone)
	} else {
		close(snapshotDone)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"wager-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time stake and settlement events.
		r.Get("/ws", hub.HandleWS)

		// Market management.
		r.Get("/markets", svc.HandleListMarkets)
		r.Post("/markets", svc.HandleOpenMarket)
		r.Get("/markets/{marketID}", svc.HandleGetMarket)
		r.Get("/markets/{marketID}/odds", svc.HandleGetOdds)
		r.Get("/markets/{marketID}/stakes", svc.HandleMarketStakes)
		r.Post("/markets/{marketID}/close", svc.HandleCloseMarket)
		r.Post("/markets/{marketID}/settle", svc.HandleSettle)

		// Stake placement.
		r.Post("/stakes", svc.HandlePlaceStake)

		// Actor queries.
		r.Get("/actors/{actorID}/stakes", svc.HandleActorStakes)
		r.Get("/actors/{actorID}/balance", svc.HandleBalance)
		r.Get("/leaderboard", svc.HandleLeaderboard)
		r.Post("/referrals", svc.HandleReferral)

		// State snapshot export/import.
		r.Get("/snapshot", svc.HandleExportSnapshot)
		r.Post("/snapshot", svc.HandleImportSnapshot)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("wager-engine listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	slog.Info("shutting down wager-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}

	// Stop the snapshot loop before the final save; both write the same
	// temp file.
	close(snapshotStop)
	<-snapshotDone

	if cfg.Snapshot.Path != "" {
		if err := saveSnapshot(svc, cfg.Snapshot.Path); err != nil {
			slog.Error("final snapshot failed", "err", err)
		}
	}

	fmt.Println("wager-engine stopped")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// restoreSnapshot loads a previously saved state file into the engine.
// A missing file is not an error; the engine starts empty.
func restoreSnapshot(svc *wager.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no snapshot found, starting empty", "path", path)
			return nil
		}
		return err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if err := svc.ImportState(context.Background(), &snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	slog.Info("snapshot restored",
		"path", path,
		"markets", len(snap.Markets),
		"stakes", len(snap.Stakes),
	)
	return nil
}

// saveSnapshot writes the engine state to path via a temp file rename.
func saveSnapshot(svc *wager.Service, path string) error {
	snap, err := svc.ExportState(context.Background())
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// runSnapshotLoop saves the engine state on a fixed interval until stop
// closes. Save failures are logged and retried on the next tick.
func runSnapshotLoop(svc *wager.Service, path string, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := saveSnapshot(svc, path); err != nil {
				slog.Error("snapshot save failed", "path", path, "err", err)
			}
		case <-stop:
			return
		}
	}
}
