package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ppk/screening/internal/config"
	"github.com/ppk/screening/internal/domain/clinic"
	"github.com/ppk/screening/internal/domain/question"
	"github.com/ppk/screening/internal/domain/screening"
	"github.com/ppk/screening/internal/platform/auth"
	"github.com/ppk/screening/internal/platform/cache"
	"github.com/ppk/screening/internal/platform/db"
	"github.com/ppk/screening/internal/platform/events"
	"github.com/ppk/screening/internal/platform/metrics"
	"github.com/ppk/screening/internal/platform/middleware"
	"github.com/ppk/screening/internal/platform/reporting"
	"github.com/ppk/screening/internal/platform/sqlite"
	"github.com/ppk/screening/internal/platform/websocket"
	"github.com/ppk/screening/pkg/daterange"
)

func poolConfig(cfg *config.Config, logger zerolog.Logger) db.PoolConfig {
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Logger:   logger,
	}
}

// stores bundles the repositories of the configured driver.
type stores struct {
	driver  string
	cases   screening.CaseRepository
	results screening.ResultRepository
	ping    db.PingFunc
	stats   func() any
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sdb, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sdb.RunMigrations(); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
		return &stores{
			driver:  config.DriverSQLite,
			cases:   screening.NewCaseRepoSQLite(sdb),
			results: screening.NewResultRepoSQLite(sdb),
			ping:    sdb.Healthy,
			close:   func() { sdb.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg, logger))
		if err != nil {
			return nil, err
		}
		return &stores{
			driver:  config.DriverPostgres,
			cases:   screening.NewCaseRepoPG(pool),
			results: screening.NewResultRepoPG(pool),
			ping:    pool.Ping,
			stats:   func() any { return db.GetPoolStats(pool) },
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func loadVocabulary(cfg *config.Config) (*clinic.Vocabulary, error) {
	vocab := clinic.Default()
	if cfg.ClinicVocabularyFile == "" {
		return vocab, nil
	}
	return clinic.LoadFile(vocab, cfg.ClinicVocabularyFile)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// app holds the wired services behind the HTTP server.
type app struct {
	service   *screening.Service
	engine    *reporting.Engine
	publisher events.Publisher
	live      *websocket.Hub
	summaries *cache.MemoryStore
	sessions  *question.Tracker
}

func newApp(cfg *config.Config, logger zerolog.Logger, st *stores) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	resolver := daterange.NewResolver(loc)

	live := websocket.NewHub(logger.With().Str("component", "live").Logger())
	publisher := events.Fanout{live}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = append(publisher, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing question changes to kafka")
	} else {
		publisher = append(publisher, events.NewLogPublisher(logger))
	}

	summaries := cache.NewMemoryStore()
	engine := reporting.NewEngine(st.results, resolver)
	engine.SetVocabulary(vocab)
	engine.SetLogger(logger.With().Str("component", "reporting").Logger())
	if cfg.SummaryCacheTTL > 0 {
		engine.SetCache(summaries, cfg.SummaryCacheTTL)
	}

	svc := screening.NewService(st.cases, st.results, question.DefaultRegistry())
	svc.SetVocabulary(vocab)
	svc.SetResolver(resolver)
	sessions := question.NewTracker(publisher)
	sessions.SetIdle(cfg.SessionIdleTTL)
	svc.SetTracker(sessions)
	svc.SetInvalidator(engine)
	svc.SetLogger(logger.With().Str("component", "screening").Logger())

	return &app{service: svc, engine: engine, publisher: publisher, live: live, summaries: summaries, sessions: sessions}, nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, st *stores, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, screening.SessionHeader},
	}))

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Skipper:  auth.AuthSkipper,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(st.driver, st.ping, st.stats))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	apiV1 := e.Group("/api/v1")
	screening.NewHandler(a.service).RegisterRoutes(apiV1)
	reporting.NewHandler(a.engine).RegisterRoutes(apiV1)
	websocket.NewHandler(a.live, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: unauthenticated requests are treated as admin")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer st.close()
	logger.Info().Str("driver", st.driver).Msg("connected to store")

	a, err := newApp(cfg, logger, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	defer a.publisher.Close()
	a.summaries.StartCleanup(ctx, time.Minute)
	a.sessions.StartCleanup(ctx, 5*time.Minute)

	e := newServer(cfg, logger, st, a)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
