package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ticketline/config"
	"ticketline/internal/handlers"
	"ticketline/internal/middlewares"
	"ticketline/internal/services"
	"ticketline/internal/services/renderer"
	"ticketline/monitoring"
	"ticketline/utils"

	_ "ticketline/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig))
	}

	// Core services
	store := services.NewPBStore(app)
	inventory := services.NewInventoryService()
	minter := services.NewMinter()
	artifactRenderer := renderer.New(renderer.ClientConfig{
		BaseURL: cfg.RendererURL,
		Timeout: cfg.RendererTimeout,
	})

	reservationService := services.NewReservationService(store, inventory, minter, artifactRenderer, notifier, cfg)
	transactionService := services.NewTransactionService(store, inventory, cfg)
	redemptionService := services.NewRedemptionService(store, notifier)
	wristbandService := services.NewWristbandService(store, redisClient)
	archiveService := services.NewArchiveService(store, inventory)

	// Handlers
	purchaseHandler := handlers.NewPurchaseHandler(reservationService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService, wristbandService)
	archiveHandler := handlers.NewArchiveHandler(archiveService)

	rateLimiter := middlewares.NewRateLimiter(redisClient, cfg.ScanRateLimit, cfg.ScanRateWindow)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Purchase endpoints
		e.Router.POST("/api/purchases", purchaseHandler.CreatePurchase).Bind(apis.RequireAuth())
		e.Router.POST("/api/purchases/operator", purchaseHandler.CreateOperatorPurchase).Bind(apis.RequireAuth())

		// Transaction endpoints
		e.Router.POST("/api/transactions/{transactionId}/verify", transactionHandler.VerifyTransaction).Bind(apis.RequireAuth())
		e.Router.POST("/api/transactions/{transactionId}/proof", transactionHandler.AttachPaymentProof).Bind(apis.RequireAuth())
		e.Router.GET("/api/transactions/history", transactionHandler.GetHistory).Bind(apis.RequireAuth())

		// Redemption endpoints
		e.Router.POST("/api/redemptions", redemptionHandler.RedeemTicket).
			Bind(apis.RequireAuth()).
			BindFunc(rateLimiter.ScanRateLimit("redeem"))
		e.Router.POST("/api/redemptions/revert", redemptionHandler.RevertTicket).Bind(apis.RequireAuth())
		e.Router.POST("/api/wristbands", redemptionHandler.RecordWristbandScan).
			Bind(apis.RequireAuth()).
			BindFunc(rateLimiter.ScanRateLimit("wristband"))
		e.Router.POST("/api/wristbands/revert", redemptionHandler.RevertWristbandScan).Bind(apis.RequireAuth())

		// Archive endpoints
		e.Router.POST("/api/transactions/{transactionId}/archive", archiveHandler.ArchiveTransaction).Bind(apis.RequireAuth())
		e.Router.POST("/api/archived/{archivedId}/restore", archiveHandler.RestoreTransaction).Bind(apis.RequireAuth())
		e.Router.PATCH("/api/archived/{archivedId}/status", archiveHandler.UpdateArchivedStatus).Bind(apis.RequireAuth())

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Background workers need a booted app
		go transactionService.RunExpirySweep(ctx)
		if cfg.EnableMetrics {
			go monitoring.NewMonitor(app).Run(ctx)
		}

		slog.Info("server routes registered")
		return e.Next()
	})

	return app.Start()
}

// handleShutdown cancels background workers on SIGINT/SIGTERM.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, stopping background workers")
	cancel()
}
