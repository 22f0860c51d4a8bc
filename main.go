package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sweeps-settlement-system/config"
	"sweeps-settlement-system/handlers"
	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/models"
	"sweeps-settlement-system/notify"
	"sweeps-settlement-system/ratelimit"
	"sweeps-settlement-system/services"
	"sweeps-settlement-system/utils"
	"sweeps-settlement-system/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ ", err)
	}
	logFile, err := config.SetupLogging(cfg)
	if err != nil {
		log.Fatal("❌ ", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	// 📣 Notifications: the hub always backs SSE; NATS or a websocket
	// listener is added per NOTIFY_TRANSPORT.
	hub := notify.NewHub(cfg.GatewayToken)
	sinks := notify.Fanout{hub}
	var wsServer *http.Server
	switch cfg.NotifyTransport {
	case "nats":
		conn, err := notify.ConnectNATS(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			log.Fatal("failed to connect to NATS: ", err)
		}
		defer conn.Drain()
		sinks = append(sinks, notify.NewNATSPublisher(conn, cfg.NATSSubject))
	case "websocket":
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		wsServer = &http.Server{Addr: cfg.WebsocketAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	case "none":
	default:
		log.Fatalf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
	queue := notify.NewQueue(sinks, cfg.NotifyBuffer)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		r, err := ratelimit.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.WagerLimit, cfg.WagerWindow)
		if err != nil {
			log.WithError(err).Warn("⚠️ redis unavailable, using in-process rate limiter")
			limiter = ratelimit.NewMemory(cfg.WagerLimit, cfg.WagerWindow)
		} else {
			defer r.Close()
			limiter = r
		}
	} else {
		limiter = ratelimit.NewMemory(cfg.WagerLimit, cfg.WagerWindow)
	}

	engine := services.NewSettlementEngine(db, queue)
	settings := services.NewSettingsService(db, cfg.Settings)
	players := services.NewPlayerService(db, engine, settings)
	players.Presence = hub
	gameService := services.NewGameService(db, engine, settings, limiter)
	tournamentService := services.NewTournamentService(db, engine)
	audit := services.NewAuditService(db)

	jobs := []services.Job{
		tournamentService.SweepJob(cfg.SweepInterval),
		audit.ReconcileJob(cfg.ReconcileInterval),
	}
	if cfg.ExportEnabled() {
		store, err := utils.NewR2Store(ctx, cfg.R2AccountID, cfg.R2AccessKey, cfg.R2SecretKey, cfg.R2Bucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		exporter := workers.NewLedgerExporter(db, store, cfg.ExportPrefix, cfg.ExportBatch)
		jobs = append(jobs, exporter.Job(cfg.ExportInterval))
	} else {
		log.Info("ledger export disabled, no R2 bucket configured")
	}
	scheduler, err := services.NewScheduler(jobs...)
	if err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())
	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupRoutes(app, handlers.Services{
		Players:     players,
		Games:       gameService,
		Tickets:     services.NewTicketService(db, engine),
		Tournaments: tournamentService,
		Redemptions: services.NewRedemptionService(db, engine, settings),
		Settings:    settings,
		Audit:       audit,
		Hub:         hub,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server error")
			stop()
		}
	}()
	if wsServer != nil {
		go func() {
			if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("websocket server error")
				stop()
			}
		}()
		log.Infof("✅ Websocket push on %s/ws", cfg.WebsocketAddr)
	}

	log.Infof("✅ Server running on :%s", cfg.Port)
	log.Infof("✅ Notifications via %s, tournament sweep every %s", cfg.NotifyTransport, cfg.SweepInterval)
	log.Info("✅ GatewayAuthMiddleware enforced globally")

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if wsServer != nil {
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("websocket shutdown")
		}
	}
	if err := scheduler.Shutdown(); err != nil {
		log.WithError(err).Warn("scheduler shutdown")
	}
	queue.Close()
	if n := queue.Dropped(); n > 0 {
		log.WithField("dropped", n).Warn("notifications dropped while running")
	}
	log.Info("👋 stopped")
}
