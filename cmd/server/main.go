package main // Entry point package

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/iliyamo/cheese-catalog/internal/config"
	"github.com/iliyamo/cheese-catalog/internal/database"
	"github.com/iliyamo/cheese-catalog/internal/handler"
	"github.com/iliyamo/cheese-catalog/internal/middleware"
	"github.com/iliyamo/cheese-catalog/internal/queue"
	"github.com/iliyamo/cheese-catalog/internal/repository"
	"github.com/iliyamo/cheese-catalog/internal/router"
	"github.com/iliyamo/cheese-catalog/internal/service"
	"github.com/iliyamo/cheese-catalog/internal/validation"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	_ = godotenv.Load() // a missing .env is fine; the environment wins

	app := &cli.App{
		Name:  "cheese-catalog",
		Usage: "cheese listing catalog API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: func(c *cli.Context) error { return serve(c.Context, log) },
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of steps, negative to roll back, 0 for all"},
				},
				Action: func(c *cli.Context) error { return runMigrate(c.Int("steps"), log) },
			},
			{
				Name:   "consume",
				Usage:  "log listing change events from the queue",
				Action: func(c *cli.Context) error { return consume(c.Context, log) },
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serve(parent context.Context, log zerolog.Logger) error {
	cfg := config.Load()
	ctx, stop := signalContext(parent)
	defer stop()

	var closers []io.Closer
	checks := map[string]handler.Check{}

	var (
		listings service.ListingStore
		accounts service.AccountStore
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := repository.NewMemoryStore()
		listings, accounts = store.Listings(), store.Accounts()
		log.Warn().Msg("using in-memory storage; data is lost on exit")
	default:
		db, err := database.Open(dbSettings(cfg))
		if err != nil {
			return err
		}
		closers = append(closers, db)
		checks["mysql"] = db.PingContext
		listings, accounts = repository.NewListingRepo(db), repository.NewAccountRepo(db)
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		closers = append(closers, rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn().Msg("redis unavailable; response cache off, rate limit kept in process")
	}

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, cfg.EventsQueue, log)
	}

	v := validation.New(accounts)
	listingSvc := service.NewListingService(listings, accounts, v, events, log)
	accountSvc := service.NewAccountService(accounts, v, cfg.BcryptCost, log)

	e := newEcho(log)
	router.RegisterRoutes(e, router.Deps{
		Listings:  handler.NewListingHandler(listingSvc, log),
		Accounts:  handler.NewAccountHandler(accountSvc, log),
		Auth:      handler.NewAuthHandler(cfg, accountSvc, log),
		Health:    handler.Health(checks),
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
		RateLimit: middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("storage", cfg.Storage).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var result error
	select {
	case err := <-errCh:
		if err != nil {
			result = multierror.Append(result, err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := closeAll(closers); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

func newEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	return e
}

func runMigrate(steps int, log zerolog.Logger) error {
	cfg := config.LoadDB()
	db, err := database.Open(dbSettings(cfg))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBName, steps); err != nil {
		return err
	}
	log.Info().Int("steps", steps).Msg("migrations applied")
	return nil
}

func consume(parent context.Context, log zerolog.Logger) error {
	cfg := config.LoadQueue()
	ctx, stop := signalContext(parent)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitURL, Queue: cfg.EventsQueue, Log: log.With().Str("component", "consumer").Logger()}
	err := c.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func dbSettings(cfg config.Config) database.Settings {
	return database.Settings{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
}

// closeAll closes every closer and reports all failures together.
func closeAll(closers []io.Closer) error {
	var result *multierror.Error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
