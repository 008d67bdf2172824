package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"bbb-schedule-sync/internal/config"
	"bbb-schedule-sync/internal/database"
	"bbb-schedule-sync/internal/fingerprint"
	"bbb-schedule-sync/internal/handlers"
	"bbb-schedule-sync/internal/middleware"
	"bbb-schedule-sync/internal/models"
	"bbb-schedule-sync/internal/repository"
	"bbb-schedule-sync/internal/router"
	"bbb-schedule-sync/internal/services"
	"bbb-schedule-sync/internal/websocket"
	"bbb-schedule-sync/internal/worker"
)

// newScheduleSync wires the sync pipeline against Moodle and the load balancer.
func newScheduleSync(cfg *config.Config, pool *pgxpool.Pool) (*services.ScheduleSync, error) {
	builder := services.NewSnapshotBuilder(
		repository.NewScheduleRepo(pool, cfg.DBPrefix),
		repository.NewEnrolmentRepo(pool, cfg.DBPrefix, cfg.SiteGuestID),
	)

	urls, err := services.NewURLBuilder(cfg.BBBServerURL, cfg.BBBSharedSecret, cfg.BBBChecksumAlgorithm)
	if err != nil {
		return nil, err
	}
	transmitter := services.NewTransmitter(urls, urls.HashFunc(), services.DefaultTransmitterHTTPClient(cfg.HTTPTimeout))

	store := fingerprint.NewStore(afero.NewOsFs(), cfg.TempDir)

	return services.NewScheduleSync(
		services.SyncConfig{Enabled: cfg.TransferScheduleEnabled},
		builder,
		store,
		transmitter,
	), nil
}

func connectPostgres(cfg *config.Config) *pgxpool.Pool {
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	log.Println("✓ PostgreSQL connected")
	return pool
}

func connectRedis(cfg *config.Config) *database.RedisClients {
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	log.Println("✓ Redis connected")
	return redisClients
}

// newRunner attaches the Redis lock, run history and events when Redis is
// available.
func newRunner(cfg *config.Config, scheduleSync *services.ScheduleSync, redisClients *database.RedisClients) (*worker.Runner, error) {
	if redisClients == nil {
		return worker.NewRunner(scheduleSync, nil, nil, nil, cfg.SyncSchedule, cfg.SyncRunOnStart)
	}
	return worker.NewRunner(
		scheduleSync,
		services.NewRunLock(redisClients.Main, cfg.LockTTL),
		repository.NewRunRepo(redisClients.Main),
		services.NewEventPublisher(redisClients.Main),
		cfg.SyncSchedule,
		cfg.SyncRunOnStart,
	)
}

func runOnce(c *cli.Context) error {
	// A disabled job must not touch Moodle or require its credentials
	enabled, err := config.LoadTransferScheduleEnabled()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if !enabled {
		log.Println("transferschedule_enabled is disabled by config")
		return nil
	}

	cfg := config.Load()
	log.Println("✓ Configuration loaded")

	pool := connectPostgres(cfg)
	defer pool.Close()

	// Without Redis the caller's scheduler must not overlap runs.
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		redisClients = connectRedis(cfg)
		defer redisClients.Close()
	}

	scheduleSync, err := newScheduleSync(cfg, pool)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	runner, err := newRunner(cfg, scheduleSync, redisClients)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := runner.RunOnce(ctx, models.TriggerCLI)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("✗ Schedule sync failed: %v", err), 1)
	}

	log.Printf("✓ Schedule sync %s (%d items)", run.Outcome, run.ItemCount)
	return nil
}

func preview(c *cli.Context) error {
	cfg := config.Load()

	pool := connectPostgres(cfg)
	defer pool.Close()

	scheduleSync, err := newScheduleSync(cfg, pool)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	p, err := scheduleSync.Preview(context.Background())
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("✗ Preview failed: %v", err), 1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func token(c *cli.Context) error {
	secret, err := config.LoadJWTSecret()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	signed, err := middleware.NewJWTAuth(secret).GenerateAccessToken(c.String("subject"), c.Duration("ttl"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Println(signed)
	return nil
}

func serve(c *cli.Context) error {
	log.Println("🚀 Starting BigBlueButton schedule sync...")

	// ──── Step 1: Load Configuration ────
	cfg := config.Load()
	if cfg.RedisURL == "" {
		return cli.NewExitError("✗ REDIS_URL is required to serve", 1)
	}
	if cfg.JWTSecret == "" {
		return cli.NewExitError("✗ JWT_SECRET is required to serve", 1)
	}
	log.Println("✓ Configuration loaded")

	// ──── Step 2: Connect PostgreSQL and Redis ────
	pool := connectPostgres(cfg)
	defer pool.Close()

	redisClients := connectRedis(cfg)
	defer redisClients.Close()

	// ──── Step 3: Build the Sync Pipeline ────
	scheduleSync, err := newScheduleSync(cfg, pool)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("✗ Sync pipeline setup failed: %v", err), 1)
	}

	runner, err := newRunner(cfg, scheduleSync, redisClients)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("✗ Runner setup failed: %v", err), 1)
	}
	log.Println("✓ Sync pipeline ready")

	// ──── Step 4: Start Runner and WebSocket Hub ────
	runner.Start()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	go wsHub.Run(hubCtx)
	log.Println("✓ WebSocket hub started")

	// ──── Step 5: Start HTTP Server ────
	triggerLimiter := middleware.NewRateLimiter(
		repository.NewRateCounter(redisClients.Main),
		"trigger",
		cfg.TriggerRateLimit,
		time.Minute,
	)
	scheduleHandler := handlers.NewScheduleHandler(runner, scheduleSync, repository.NewRunRepo(redisClients.Main))

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router.New(jwtAuth, triggerLimiter, scheduleHandler, wsHub.HandleWebSocket),
		ReadTimeout: 15 * time.Second,
		// A manual trigger waits for the whole run.
		WriteTimeout: cfg.HTTPTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		runner.Stop()
		stopHub()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Schedule sync ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1/schedule", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return cli.NewExitError(fmt.Sprintf("Server error: %v", err), 1)
	}
	return nil
}
