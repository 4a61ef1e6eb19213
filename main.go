package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"prospector/config"
	controller "prospector/controllers"
	"prospector/engine"
	"prospector/gateway"
	"prospector/middleware"
	"prospector/routes"
	"prospector/store"
	"prospector/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.WithError(err).Warn("sentry init failed, continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	rdb := config.ConnectRedis(cfg)

	drafts := store.NewGormDraftStore(db)
	followups := store.NewGormFollowupStore(db)
	opens := store.NewGormOpenStore(db)
	instructions := store.NewGormInstructionStore(db)

	statusEngine := engine.NewStatusEngine(drafts, followups, logger)
	aggregator := engine.NewAggregator(opens, followups)
	followupEngine := engine.NewFollowupEngine(followups, logger)
	instructionEngine := engine.NewInstructionEngine(instructions, logger)

	gw := gateway.NewClient(gateway.Config{
		SendMailURL:      cfg.SendMailURL,
		AutoFollowupURL:  cfg.AutoFollowupURL,
		GmailNotifierURL: cfg.GmailNotifierURL,
		MailWriterURL:    cfg.MailWriterURL,
		OdooURL:          cfg.OdooURL,
		OdooSecret:       cfg.OdooSecret,
	}, gateway.NewIDTokenMinter(), logger)

	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, routes.Deps{
		Auth:         controller.NewAuthController(cfg.AuthSecret, cfg.AuthAccessKey, logger),
		Drafts:       controller.NewDraftController(drafts, statusEngine, gw, logger),
		History:      controller.NewHistoryController(drafts, followups, opens, statusEngine, aggregator, gw, logger),
		Dashboard:    controller.NewDashboardController(drafts, aggregator, rdb, logger),
		Followups:    controller.NewFollowupController(drafts, followups, followupEngine, logger),
		Instructions: controller.NewInstructionController(instructions, instructionEngine, logger),
		StatsWS:      controller.NewStatsWS(drafts, 10*time.Second, logger),
		AuthSecret:   cfg.AuthSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rdb != nil {
		statsWorker := worker.NewStatsWorker(drafts, aggregator, rdb, cfg.StatsRefreshInterval, logger)
		go statsWorker.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.WithField("port", cfg.ServerPort).Info("server starting")
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
