package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/database"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/handlers"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/middleware"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/notify"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/platform/auth"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/platform/mailer"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo/memory"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo/postgres"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo/redisstore"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/service"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/utils"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/worker"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/config"
	pgdb "github.com/Mohammed-Azab/HagzYomi-sub000/pkg/database"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/events"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
	mw "github.com/Mohammed-Azab/HagzYomi-sub000/pkg/middleware"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/tracing"
)

const serviceName = "hagzyomi-api"

func main() {
	if err := run(); err != nil {
		logger.Error("HagzYomi API error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	checks := map[string]mw.ReadyCheck{}

	// Storage
	var (
		bookingRepo  repo.BookingRepository
		settingsRepo repo.SettingsRepository
		idem         mw.IdempotencyStore
		cleaner      worker.Cleaner
		pool         *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		bookingRepo = memory.NewBookingRepo()
		settingsRepo = memory.NewSettingsRepo()
		mem := memory.NewIdempotencyStore()
		idem, cleaner = mem, mem
	default:
		pool, err = pgdb.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		bookingRepo = postgres.NewBookingRepo(pool)
		settingsRepo = postgres.NewSettingsRepo(pool)
		pg := postgres.NewIdempotencyRepo(pool)
		idem, cleaner = pg, pg
		checks["database"] = pgdb.ReadyCheck(pool)
	}

	// Redis takes over idempotency and rate limiting when configured
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = redisstore.Connect(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		idem = redisstore.NewIdempotencyStore(rdb)
		checks["redis"] = redisstore.ReadyCheck(rdb)
		// Redis expires its own keys
		cleaner = nil
	}

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		limiter = middleware.NewLocalLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	// Events
	var bus events.EventBus
	if cfg.NATS.URL != "" {
		nbus, err := events.NewNATSEventBus(cfg.NATS.URL, cfg.NATS.Name)
		if err != nil {
			return err
		}
		checks["nats"] = nbus.Ready
		bus = nbus
	} else {
		bus = events.NewMemoryBus()
	}
	defer bus.Close()

	// Services
	settings := service.NewSettingsStore(settingsRepo, bus)
	if err := settings.Init(ctx, service.SettingsFromConfig(cfg.Booking)); err != nil {
		return err
	}
	bookings := service.NewBookingService(bookingRepo, settings, bus)

	authn, err := auth.NewAdminAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	adminEmail := utils.NormalizeEmail(cfg.Email.AdminEmail)
	if adminEmail != "" && !utils.IsValidEmail(adminEmail) {
		logger.Warn("ADMIN_EMAIL is not a valid address, notifications disabled", "admin_email", adminEmail)
		adminEmail = ""
	}
	notifier := notify.New(mailer.New(cfg.Email), adminEmail)
	if err := notifier.Subscribe(bus); err != nil {
		return err
	}
	go notifier.Run(ctx)

	sweeper, err := worker.NewSweeper(cfg.Booking.SweepSchedule, bookings, cleaner)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sweeper.Stop(sctx)
	}()

	// Router
	rl := middleware.NewRateLimiter(limiter, middleware.RateLimitConfig{
		KeyFunc:  middleware.ClientIPKey(cfg.RateLimit.TrustedProxies),
		SkipFunc: middleware.OnlyPost,
	})
	idemMW := mw.IdempotencyMiddleware(idem, 24*time.Hour)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(serviceName))
	r.Use(mw.Logging)
	r.Use(mw.CORS(cfg.Server.CORSOrigins))
	r.Use(mw.Health)
	r.Use(mw.Ready(checks))

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/admin", handlers.NewAdminHandler(authn, authn.Secret(), bookings, settings).Routes(rl.Middleware()))
		r.Mount("/", handlers.NewBookingHandler(bookings, settings).Routes(rl.Middleware(), idemMW))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      tracing.Handler(r, serviceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down HagzYomi API...")

		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("HagzYomi API shutdown error", "error", err)
		}
	}()

	logger.Info("Starting HagzYomi API", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
