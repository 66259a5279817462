package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loyalty-club-service/handlers"
	"loyalty-club-service/middleware"
	"loyalty-club-service/models"
	"loyalty-club-service/services"
	"loyalty-club-service/utils"
	"loyalty-club-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading environment variables directly")
	}

	app := fiber.New()

	// GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Warn("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.ClubMember{},
		&models.LedgerEntry{},
		&models.Reward{},
		&models.RedemptionToken{},
		&models.CouponTemplate{},
		&models.UserCoupon{},
		&models.OrderMirror{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client: ", err)
	}

	cfg := utils.LoadLoyaltyConfig()

	var notifier services.Notifier
	notifyURL := os.Getenv("NOTIFY_SERVICE_URL")
	if notifyURL != "" {
		notifier = services.NewNotifyServiceClient(notifyURL, os.Getenv("LOYALTY_SERVICE_TOKEN"))
	} else {
		log.Warn("NOTIFY_SERVICE_URL not set, notifications will only be logged")
		notifier = services.LogNotifier{}
	}

	ledgerService := services.NewLedgerService(db)
	memberService := services.NewMemberService(db, ledgerService, cfg)
	earnService := services.NewEarnService(db, ledgerService, cfg)
	rewardService := services.NewRewardService(db, ledgerService, notifier, cfg)
	tokenService := services.NewTokenService(db, ledgerService, cfg)
	tierService := services.NewTierService(db, notifier, cfg)
	sweepService := services.NewSweepService(db, ledgerService, notifier, cfg)
	couponService := services.NewCouponService(db, ledgerService)

	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("LOYALTY_SERVICE_TOKEN")

	memberSync := workers.NewMemberSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", serviceToken)
	orderSync := workers.NewOrderSyncClient(db, earnService)
	archiver := workers.NewLedgerArchiveWorker(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memberSync.Start(ctx)
	go workers.PollOrders(ctx, orderSync, 30*time.Second)
	go archiver.Run(ctx, 24*time.Hour)

	services.StartSweepScheduler(rewardService, tierService, sweepService)

	handlers.SetupLoyaltyRoutes(app, ledgerService, memberService, rewardService, tokenService, couponService)
	handlers.SetupAdminRoutes(app, ledgerService, memberService, rewardService, tierService, sweepService, couponService)
	handlers.SetupInternalRoutes(app, earnService, rewardService, tokenService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Errorf("server error: %v", err)
		}
	}()

	log.Info("loyalty club service running on http://localhost:5300")
	log.Info("member sync, order polling and sweep scheduler running")

	<-ctx.Done()
	log.Info("shutting down server...")
	_ = app.Shutdown()
}
