package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"booking-scheduler/internal/app"
	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/auth"
	"booking-scheduler/internal/booking"
	"booking-scheduler/internal/cache"
	"booking-scheduler/internal/config"
	"booking-scheduler/internal/gcal"
	"booking-scheduler/internal/logger"
	"booking-scheduler/internal/server"
	"booking-scheduler/internal/store"
	"booking-scheduler/internal/store/postgres"
	"booking-scheduler/internal/store/sqlite"
)

var CLI struct {
	config.Config `embed:""`

	Version kong.VersionFlag
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and exit."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("scheduler"),
		kong.Description("Booking scheduler API"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
		kong.Bind(&CLI.Config),
	)

	if err := logger.Init(logger.Config{Level: CLI.LogLevel, File: CLI.LogFile, JSON: CLI.LogJSON}); err != nil {
		apperr.Fatal(fmt.Errorf("failed to initialize logger: %w", err))
	}

	apperr.Fatal(ctx.Run())
}

type migratingStore interface {
	store.Store
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}

func openStore(ctx context.Context, cfg *config.Config) (migratingStore, error) {
	if cfg.IsPostgres() {
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
	return sqlite.Open(cfg.DatabaseURL)
}

func migrate(ctx context.Context, st migratingStore) error {
	n, err := st.Migrate(ctx, func(msg string) { logger.Info(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if n > 0 {
		logger.Info("applied migrations", "count", n)
	}
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(cfg *config.Config) error {
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return migrate(ctx, st)
}

type ServeCmd struct{}

func (c *ServeCmd) Run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := migrate(ctx, st); err != nil {
		return err
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	a := &app.App{Users: st, Issuer: issuer}

	var (
		busy   booking.BusyResolver
		events booking.EventCreator
		opts   = []booking.Option{booking.WithCalendarTimeout(cfg.CalendarTimeout)}
	)
	if cfg.GoogleConfigured() {
		oauthCfg := gcal.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		cal := gcal.New(oauthCfg, st, loc, gcal.WithTimeout(cfg.CalendarTimeout))
		busy, events = cal, cal
		a.Login = auth.NewGoogleLogin(oauthCfg, st, issuer)

		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unavailable, busy-time cache disabled", "addr", cfg.RedisAddr, "error", err)
			} else {
				cached := cache.NewCachedResolver(cal, cache.NewBusyCache(rdb, cfg.BusyCacheTTL, loc))
				busy = cached
				opts = append(opts, booking.WithBusyInvalidator(cached))
				logger.Info("busy-time cache enabled", "addr", cfg.RedisAddr)
			}
		}
	} else {
		logger.Warn("Google OAuth not configured; login and calendar sync are disabled")
	}

	a.Bookings = booking.NewService(st, busy, events, loc, opts...)

	router := server.NewRouter()
	a.Register(router)
	return server.New(cfg.Addr(), router).Run(ctx)
}
