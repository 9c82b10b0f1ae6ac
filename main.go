package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridx-backend/cache"
	"gridx-backend/chatbot"
	"gridx-backend/config"
	"gridx-backend/controllers"
	"gridx-backend/integrations"
	"gridx-backend/migrations"
	"gridx-backend/predict"
	"gridx-backend/routes"
	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, syncLogger := config.InitLogger(cfg.Env)
	defer syncLogger()
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	utils.ConfigureAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.BcryptCost)

	if err := config.ConnectDB(ctx, cfg.Database); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer config.CloseDB()

	if cfg.Database.RunMigrations {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	redisCache := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	defer redisCache.Close()

	bot, err := chatbot.New(cfg.Chatbot.IntentsFile)
	if err != nil {
		logger.Fatal("Failed to load chatbot intents", zap.Error(err))
	}
	devices, err := predict.NewDeviceClassifier(predict.DefaultDeviceSamples)
	if err != nil {
		logger.Fatal("Failed to train device classifier", zap.Error(err))
	}

	ic := cfg.Integrations
	deps := routes.Dependencies{
		Config:   cfg,
		DB:       config.DB,
		Bot:      bot,
		Devices:  devices,
		Eskom:    integrations.NewEskom(ic.EskomBaseURL, ic.EskomToken, ic.HTTPTimeout, redisCache),
		Tomorrow: integrations.NewTomorrow(ic.TomorrowBaseURL, ic.TomorrowAPIKey, ic.HTTPTimeout, redisCache),
		Speech:   integrations.NewAssemblyAI(ic.AssemblyAIBaseURL, ic.AssemblyAIKey, ic.HTTPTimeout, ic.AssemblyAIPoll),
		Intents:  integrations.NewHuggingFace(ic.HuggingFaceURL, ic.HuggingFaceToken, ic.HTTPTimeout),
	}

	if controllers.SetupOAuth(cfg.Auth, !cfg.IsDev()) {
		logger.Info("Google OAuth enabled")
	}

	reminders := services.NewReminderService(config.DB, cfg.Twilio)
	if err := reminders.StartScheduler(cfg.Twilio.ReminderSchedule, cfg.Twilio.SweepSchedule); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer reminders.Stop()

	r := routes.SetupRouter(deps)
	if cfg.IsDev() {
		printRoutes(r)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		zap.L().Debug("Route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}
