package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobautomate-backend/internal/config"
	"github.com/ignatzorin/jobautomate-backend/internal/db"
	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/jobautomate-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/jobautomate-backend/internal/http/router"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
	"github.com/ignatzorin/jobautomate-backend/internal/repository"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
	"github.com/ignatzorin/jobautomate-backend/internal/storage"
	"github.com/ignatzorin/jobautomate-backend/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API, WebSocket хаб и планировщик автоматизации",
	RunE:  runServe,
}

var serveSkipMigrations bool

func init() {
	serveCmd.Flags().BoolVar(&serveSkipMigrations, "skip-migrations", false, "не применять миграции при старте")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logger.WithComponent("main")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		return err
	}
	defer safeClose(dbConn)

	if !serveSkipMigrations {
		applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
		if err != nil {
			return fmt.Errorf("ошибка миграций: %w", err)
		}
		log.WithField("applied", applied).Info("миграции применены")
	}

	rdb, err := db.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	board, err := newJobBoard(cfg, rdb)
	if err != nil {
		return err
	}

	documentStorage, err := storage.NewDocumentStorage(cfg.DocumentStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		return fmt.Errorf("не удалось подготовить файловое хранилище: %w", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	onboardingRepo := repository.NewOnboardingRepository(dbConn)
	criteriaRepo := repository.NewCriteriaRepository(dbConn)
	documentRepo := repository.NewDocumentRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn)
	automationRepo := repository.NewAutomationRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	// Сервисы.
	cache := service.NewCacheService()
	defer cache.Close()

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	authService := service.NewAuthService(userRepo, tokenManager, notificationService)
	onboardingService := service.NewOnboardingService(onboardingRepo, criteriaRepo, board, notificationService, cache)
	wizardService := service.NewWizardService(cache, onboardingService, cfg.WizardTTL)
	searchService := service.NewSearchService(board, onboardingService, notificationService)
	documentService := service.NewDocumentService(documentRepo, documentStorage, notificationService, cache)
	applicationService := service.NewApplicationService(applicationRepo, board, documentService, onboardingService, notificationService, cache)
	dashboardService := service.NewDashboardService(applicationRepo, automationRepo, onboardingService, documentService, cache)
	dashboardService.SetCacheTTL(cfg.DashboardCacheTTL)
	automationService := service.NewAutomationService(automationRepo, applicationRepo, onboardingService, documentService, searchService, applicationService, notificationService)

	authService.OnLogout(wizardService.Discard)
	authService.OnLogout(func(ref service.SessionRef) {
		hub.DisconnectSession(ref.UserID, ref.SessionID)
	})

	if cfg.Automation.Enabled {
		if err := automationService.Start(ctx, cfg.Automation.Schedule); err != nil {
			return fmt.Errorf("не удалось запустить автоматизацию: %w", err)
		}
		defer automationService.Stop()
	}

	maintenance, err := startMaintenance(ctx, userRepo)
	if err != nil {
		return err
	}
	defer func() { <-maintenance.Stop().Done() }()

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Onboarding:    httpHandlers.NewOnboardingHandler(onboardingService),
		Wizard:        httpHandlers.NewWizardHandler(wizardService),
		Offers:        httpHandlers.NewOfferHandler(searchService),
		Applications:  httpHandlers.NewApplicationHandler(applicationService),
		Documents:     httpHandlers.NewDocumentHandler(documentService, documentStorage.MaxUploadBytes()),
		Dashboard:     httpHandlers.NewDashboardHandler(dashboardService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		WS:            httpHandlers.NewWSHandler(hub, tokenManager, userRepo, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(dbConn, rdb),
	}

	engine := httpRouter.SetupRouter(cfg, handlers, httpRouter.Deps{
		Tokens:   tokenManager,
		Sessions: userRepo,
		Stages:   onboardingService,
		Redis:    rdb,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	log.WithFields(logrus.Fields{
		"port":       cfg.HTTPPort,
		"env":        cfg.Env,
		"redis":      rdb != nil,
		"automation": cfg.Automation.Enabled,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("сервер завершился с ошибкой: %w", err)
	}
	return nil
}

// newJobBoard создаёт клиент France Travail. Токены кешируются в Redis, если он подключён.
func newJobBoard(cfg *config.Config, rdb *redis.Client) (*francetravail.Client, error) {
	var store francetravail.TokenStore
	if rdb != nil {
		store = francetravail.NewRedisTokenStore(rdb)
	}

	client, err := francetravail.NewClient(francetravail.Config{
		ClientID:     cfg.FranceTravail.ClientID,
		ClientSecret: cfg.FranceTravail.ClientSecret,
		AuthURL:      cfg.FranceTravail.AuthURL,
		APIURL:       cfg.FranceTravail.APIURL,
		Scope:        cfg.FranceTravail.Scope,
		Timeout:      cfg.FranceTravail.Timeout,
	}, store)
	if err != nil {
		return nil, fmt.Errorf("клиент France Travail: %w", err)
	}
	return client, nil
}

// startMaintenance запускает почасовую очистку истёкших сессий.
func startMaintenance(ctx context.Context, users *repository.UserRepository) (*cron.Cron, error) {
	log := logger.WithComponent("maintenance")
	cronLog := cron.PrintfLogger(log)
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog)))

	_, err := c.AddFunc("@every 1h", func() {
		deleted, err := users.DeleteExpiredSessions(ctx)
		if err != nil {
			log.WithError(err).Warn("не удалось удалить истёкшие сессии")
			return
		}
		if deleted > 0 {
			log.WithField("deleted", deleted).Info("истёкшие сессии удалены")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("cron.AddFunc: %w", err)
	}

	c.Start()
	return c, nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.WithComponent("main").WithError(err).Error("ошибка закрытия базы")
	}
}
