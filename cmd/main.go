package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/pitchside/season-engine/brackets"
	"github.com/pitchside/season-engine/chrono"
	"github.com/pitchside/season-engine/config"
	"github.com/pitchside/season-engine/db"
	"github.com/pitchside/season-engine/gateway"
	"github.com/pitchside/season-engine/handlers"
	"github.com/pitchside/season-engine/models"
	"github.com/pitchside/season-engine/repositories"
	api "github.com/pitchside/season-engine/routes"
	"github.com/pitchside/season-engine/scheduler"
	"github.com/pitchside/season-engine/services"
	"github.com/pitchside/season-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("timezone", cfg.Timezone.String()),
		slog.Duration("tick_interval", cfg.TickInterval),
	)

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	archiveUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("standings archive uploader initialized")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	divisionRepo := repositories.NewPostgresDivisionRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	grantRepo := repositories.NewPostgresRewardGrantRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)

	clock := chrono.NewReal(cfg.Timezone)
	if err := seedFirstSeason(context.Background(), seasonRepo, cfg.SeasonStart); err != nil {
		logger.Error("failed to seed first season", slog.Any("error", err))
		os.Exit(1)
	}

	rewards, err := services.DefaultRewardTable()
	if err != nil {
		logger.Error("invalid reward table", slog.Any("error", err))
		os.Exit(1)
	}

	matchEngine := gateway.NewMatchEngineClient(cfg.MatchEngineURL)
	ledger := gateway.NewLedgerClient(cfg.LedgerURL)

	triggerSched := scheduler.New(clock, logger)
	bracketService := services.NewBracketService(
		tournamentRepo, matchRepo, entryRepo, grantRepo, teamRepo, divisionRepo,
		rewards, ledger, matchEngine, triggerSched, clock, wsHub, logger,
	)
	seasonService := services.NewSeasonService(
		seasonRepo, divisionRepo, teamRepo, matchRepo, tournamentRepo,
		entryRepo, standingRepo, bracketService, archiveUploader, clock, logger,
	)
	catchupService := services.NewCatchupService(
		matchRepo, tournamentRepo, bracketService, matchEngine, clock, logger,
	)
	engine := services.NewEngine(seasonService, bracketService, catchupService, triggerSched, logger)
	engine.Start()

	// The catch-up sweep runs on a fixed cadence independent of the trigger
	// table, plus once at startup to repair anything missed while down.
	tickSched, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create tick scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := tickSched.NewJob(
		gocron.DurationJob(cfg.TickInterval),
		gocron.NewTask(func() {
			if err := engine.Tick(context.Background()); err != nil {
				logger.Error("catch-up sweep reported errors", slog.Any("error", err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		logger.Error("failed to schedule catch-up sweep", slog.Any("error", err))
		os.Exit(1)
	}
	tickSched.Start()
	logger.Info("catch-up sweep scheduled", slog.Duration("interval", cfg.TickInterval))

	authHandler := handlers.NewAuthHandler(cfg.AdminUser, cfg.AdminPasswordHash, cfg.JWTSecretKey)
	seasonHandler := handlers.NewSeasonHandler(seasonService)
	tournamentHandler := handlers.NewTournamentHandler(bracketService, tournamentRepo, entryRepo, matchRepo)
	matchHandler := handlers.NewMatchHandler(engine)
	adminHandler := handlers.NewAdminHandler(engine, seasonService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		seasonHandler,
		tournamentHandler,
		matchHandler,
		adminHandler,
		webSocketHandler,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		engine.Stop()
		if err := tickSched.Shutdown(); err != nil {
			logger.Error("failed to stop tick scheduler", slog.Any("error", err))
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}

// seedFirstSeason opens season 1 on a fresh database. An existing active
// season always wins over the configured start date.
func seedFirstSeason(ctx context.Context, seasons repositories.SeasonRepository, start time.Time) error {
	_, err := seasons.Current(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrSeasonNotFound) {
		return err
	}
	err = seasons.Create(ctx, &models.Season{
		Number:    1,
		StartDate: start,
		Status:    models.SeasonActive,
	})
	if errors.Is(err, repositories.ErrSeasonConflict) {
		return nil
	}
	return err
}
