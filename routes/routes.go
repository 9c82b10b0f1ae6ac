package routes

import (
	"time"

	"gridx-backend/chatbot"
	"gridx-backend/config"
	"gridx-backend/controllers"
	"gridx-backend/integrations"
	"gridx-backend/predict"
	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are built once in main and shared by every handler.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Bot      *chatbot.Bot
	Devices  *predict.DeviceClassifier
	Eskom    *integrations.Eskom
	Tomorrow *integrations.Tomorrow
	Speech   *integrations.AssemblyAI
	Intents  *integrations.HuggingFace
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	r := gin.New()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", config.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", config.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(config.PerformanceLogger())
	r.Use(gin.Recovery())

	if err := utils.RegisterValidators(); err != nil {
		zap.L().Fatal("Failed to register validators", zap.Error(err))
	}

	secure := !cfg.IsDev()
	accounts := services.NewAccountService(deps.DB)
	ledger := services.NewLedgerService(deps.DB)

	authController := controllers.NewAuthController(accounts, secure)
	oauthController := controllers.NewOAuthController(accounts, cfg.Auth.FrontendURL, secure)
	solarController := controllers.NewSolarController(ledger, accounts)
	chatController := controllers.NewChatController(deps.Bot, deps.Intents, deps.Speech, cfg.CORS.AllowedOrigins)
	energyController := controllers.NewEnergyController(deps.Eskom, deps.Tomorrow, deps.Devices, controllers.EnergyOptions{
		UsageCSV:    cfg.Energy.UsageCSV,
		DefaultArea: cfg.Integrations.DefaultAreaID,
		Location:    cfg.Integrations.Location,
	})
	communityController := controllers.NewCommunityController(deps.DB)
	profileController := controllers.NewProfileController(deps.DB)
	healthController := controllers.NewHealthController(deps.DB)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authController.Logout)
		auth.GET("/oauth/:provider", oauthController.Begin)
		auth.GET("/oauth/:provider/callback", oauthController.Callback)

		auth.GET("/me", utils.AuthMiddleware(), authController.Me)
	}

	// Public endpoints
	api.GET("/health", healthController.Health)
	api.GET("/version", healthController.Version)

	api.POST("/chat", chatController.Chat)
	api.GET("/chat/ws", chatController.ChatSocket)
	api.POST("/voice-to-text", chatController.VoiceToText)

	api.GET("/energy/usage", energyController.UsageFromFile)
	api.POST("/energy/usage", energyController.AnalyzeUsage)
	api.GET("/energy/sunlight", energyController.Sunlight)
	api.GET("/solar-output", energyController.SampleSolarOutput)
	api.POST("/solar-output", energyController.PredictSolarOutput)
	api.POST("/ai/device", energyController.DetectDevice)
	api.GET("/loadshedding", energyController.LoadShedding)
	api.GET("/areas", energyController.SearchAreas)

	api.POST("/support", communityController.SubmitSupport)

	protected := api.Group("")
	protected.Use(utils.AuthMiddleware())
	{
		systems := protected.Group("/solar/systems")
		{
			systems.POST("", solarController.CreateSystem)
			systems.GET("", solarController.ListSystems)
			systems.GET("/:id", solarController.GetSystem)
		}

		contracts := protected.Group("/contracts")
		{
			contracts.POST("", solarController.CreateContract)
			contracts.GET("", solarController.ListContracts)
			contracts.GET("/:id", solarController.GetContract)
			contracts.GET("/:id/payments", solarController.PaymentHistory)
			contracts.GET("/:id/statement.xlsx", solarController.Statement)
		}

		protected.POST("/payments", solarController.RecordPayment)

		forum := protected.Group("/forum")
		{
			forum.POST("/topics", communityController.CreateTopic)
			forum.GET("/topics", communityController.ListTopics)
		}
		protected.GET("/support", communityController.ListSupport)

		profile := protected.Group("/profile")
		{
			profile.PUT("/account", profileController.UpdateAccount)
			profile.PUT("/linked-accounts", profileController.UpdateLinkedAccounts)
			profile.GET("/bio", profileController.GetBio)
			profile.PUT("/bio", profileController.UpdateBio)
			profile.POST("/payment-methods", profileController.AddPaymentMethod)
			profile.GET("/payment-methods", profileController.ListPaymentMethods)
		}
	}

	return r
}
