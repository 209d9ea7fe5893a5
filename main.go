package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quest-reward-system/handlers"
	"quest-reward-system/middleware"
	"quest-reward-system/models"
	"quest-reward-system/services"
	"quest-reward-system/utils"
	"quest-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — avatars are capped well below this
	})

	// 🔐 GLOBAL: Only Gateway requests allowed (health excepted)
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Wallet-Address, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Quest{},
		&models.QuestSubmission{},
		&models.User{},
		&models.UserStats{},
		&models.XPRecord{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	rpcURL := os.Getenv("CHAIN_RPC_URL")
	if rpcURL == "" {
		log.Fatal("CHAIN_RPC_URL environment variable not set")
	}
	relayerURL := os.Getenv("RELAYER_URL")
	if relayerURL == "" {
		log.Fatal("RELAYER_URL environment variable not set")
	}
	relayerToken := os.Getenv("RELAYER_SERVICE_TOKEN")
	if relayerToken == "" {
		log.Fatal("RELAYER_SERVICE_TOKEN environment variable not set")
	}
	pinataJWT := os.Getenv("PINATA_JWT")
	if pinataJWT == "" {
		log.Fatal("PINATA_JWT environment variable not set")
	}
	var protocols []string
	for _, p := range strings.Split(os.Getenv("QUEST_PROTOCOLS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			protocols = append(protocols, strings.ToLower(p))
		}
	}
	if len(protocols) == 0 {
		log.Fatal("QUEST_PROTOCOLS environment variable not set")
	}

	r2Client, err := utils.NewR2Client(context.Background())
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	chainClient := services.NewQuestChainClient(relayerURL, relayerToken)
	verifier := services.NewTransactionVerifier(rpcURL)
	pinataClient := utils.NewPinataClient(pinataJWT)

	submissionStore := services.NewSubmissionStore(db)
	statsService := services.NewUserStatsService(db)
	badgeService := services.NewBadgeService(db)
	completionService := services.NewCompletionService(db, chainClient, verifier, submissionStore, statsService)
	questService := services.NewQuestService(db, chainClient, chainClient, pinataClient, protocols)

	if err := badgeService.SeedBadgeTypes(); err != nil {
		log.Fatal("failed to seed badge types:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := workers.NewCompletionSweeper(submissionStore, completionService)
	go sweeper.Run(ctx)

	questService.StartQuestScheduler()

	handlers.SetupQuestRoutes(app, questService, completionService, statsService)
	handlers.SetupUserRoutes(app, statsService, badgeService, r2Client)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Completion sweeper running (every 1m)")
	log.Println("✅ Quest scheduler running (daily 00:00 UTC, weekly Mon 00:00 UTC)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
