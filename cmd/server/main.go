package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/advisor"
	"github.com/vendora/socialpulse/internal/analytics"
	"github.com/vendora/socialpulse/internal/api/handlers"
	"github.com/vendora/socialpulse/internal/api/middleware"
	job "github.com/vendora/socialpulse/internal/jobs"
	"github.com/vendora/socialpulse/internal/lifecycle"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
	"github.com/vendora/socialpulse/internal/publisher"
	"github.com/vendora/socialpulse/internal/queue"
	"github.com/vendora/socialpulse/internal/registry"
	"github.com/vendora/socialpulse/internal/repository"
	"github.com/vendora/socialpulse/internal/scheduling"
	"github.com/vendora/socialpulse/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Api-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	accountRepo := repository.NewAccountRepository(db)
	postRepo := repository.NewPostRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	eventRepo := repository.NewEventRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	platforms := platform.NewRegistry(map[string]platform.Client{
		models.PlatformInstagram: platform.NewInstagramClient(*cfg),
		models.PlatformFacebook:  platform.NewFacebookClient(*cfg),
		models.PlatformYoutube:   platform.NewYoutubeClient(*cfg),
		models.PlatformTiktok:    platform.NewTiktokClient(*cfg),
		models.PlatformWhatsapp:  platform.NewWhatsappClient(*cfg),
	})

	accountRegistry := registry.New(accountRepo, cfg.Publishing.FailureThreshold)
	engine := scheduling.NewEngine(postRepo)
	lifecycleManager := lifecycle.NewManager(postRepo, mediaAssetRepo, accountRepo,
		advisor.NewRuleAdvisor(), cfg.Publishing.MaxRetries)
	taskScheduler := queue.NewScheduler(client)

	orchestrator := publisher.NewOrchestrator(postRepo, mediaAssetRepo, lifecycleManager,
		accountRegistry, platforms, taskScheduler, cfg.Publishing)
	ingestor := analytics.NewIngestor(postRepo, accountRegistry, analyticsRepo,
		milestoneRepo, eventRepo, platforms, cfg.Analytics)

	r2Service := service.NewR2Service(*cfg)
	postService := service.NewPostService(db, postRepo, accountRepo, mediaAssetRepo,
		postMediaRepo, settingsRepo, *r2Service, lifecycleManager, engine, taskScheduler)
	accountService := service.NewAccountService(*cfg, accountRepo, accountRegistry, platforms)
	analyticsService := service.NewAnalyticsService(postRepo, accountRepo, analyticsRepo,
		milestoneRepo, eventRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	app.Post("/webhooks/:platform", analyticsHandler.WebhookIntake)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/bulk_schedule", post.BulkSchedulePosts)
	api.Post("/posts/unschedule", post.UnschedulePost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Get("/posts/propose_times", post.ProposeTimes)
	api.Get("/posts/conflicts", post.ScheduleConflicts)

	account := handlers.NewAccountHandler(accountService)
	api.Post("/accounts/connect", account.ConnectAccount)
	api.Get("/accounts", account.ListAccounts)
	api.Get("/accounts/test", account.TestConnection)
	api.Post("/accounts/remove", account.DisconnectAccount)

	api.Get("/analytics/post", analyticsHandler.PostAnalytics)
	api.Get("/analytics/account", analyticsHandler.AccountAnalytics)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(accountRepo, accountRegistry, platforms, 30*time.Minute)
	sweepJob := job.NewSyncSweepJob(accountRegistry, postRepo, settingsRepo, analyticsRepo,
		eventRepo, taskScheduler, orchestrator, cfg.Sync, cfg.Analytics)

	c := cron.New()
	c.AddFunc(cfg.Sync.TokenRefreshSchedule, refreshTokenJob.RefreshTokens)
	c.AddFunc(cfg.Sync.SweepSchedule, sweepJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Sync.WorkerConcurrency,
		})

		mux := asynq.NewServeMux()
		worker := queue.NewWorker(orchestrator, ingestor)
		worker.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
