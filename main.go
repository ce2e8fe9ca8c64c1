package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackportal/config"
	controller "hackportal/controllers"
	"hackportal/middleware"
	"hackportal/routes"
	"hackportal/services"
	"hackportal/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger := log.New(os.Stdout, "PORTAL: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig

	utils.InitLogging(cfg.Environment)
	if err := utils.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Printf("⚠️ Sentry disabled: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	deps := routes.Dependencies{
		DB:        config.DB,
		Config:    cfg,
		Providers: map[string]controller.IdentityProvider{},
	}
	if cfg.Google.Enabled() {
		deps.Providers["google"] = controller.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURI)
	}
	if cfg.GitHub.Enabled() {
		deps.Providers["github"] = controller.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.RedirectURI)
	}

	smtp := utils.SMTPConfig(cfg.SMTP)
	if smtp.Enabled() {
		deps.Notifier = utils.NewFulfillmentMailer(smtp)
	} else {
		logger.Println("⚠️ SMTP not configured, fulfillment notices disabled")
	}

	if s3cfg := utils.S3Config(cfg.S3); s3cfg.Enabled() {
		store, err := utils.NewS3ResumeStore(context.Background(), s3cfg)
		if err != nil {
			logger.Fatalf("Failed to initialize resume storage: %v", err)
		}
		deps.Resumes = store
	} else {
		logger.Println("⚠️ S3 not configured, resume uploads disabled")
	}

	if cfg.Redis.Enabled {
		storage := middleware.NewRedisStorage(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		defer storage.Close()
		deps.RateLimitStorage = storage
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: services.MaxResumeSize + 1<<20,
	})
	app.Use(recover.New())
	app.Use(middleware.CORS(cfg.FrontendURL))

	routes.SetupRoutes(app, deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	// Start server
	logger.Printf("🚀 Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
