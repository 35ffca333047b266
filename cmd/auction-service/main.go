package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-system/internal/api/handlers"
	"auction-system/internal/clock"
	"auction-system/internal/config"
	"auction-system/internal/infrastructure/mysql"
	"auction-system/internal/infrastructure/redis"
	"auction-system/internal/infrastructure/websocket"
	"auction-system/internal/services"
	"auction-system/pkg/logger"
	"auction-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "auction-service", "instance_id", cfg.Instance.ID)
	defer log.Sync()
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := utils.InitializeMysql(ctx, cfg.MySQL, log)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}()

	if cfg.MySQL.Migrate {
		if err := mysql.Migrate(db); err != nil {
			log.Fatal("Failed to migrate schema", "error", err)
		}
		log.Info("Schema is up to date")
	}

	rdb, err := utils.InitializeRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer rdb.Close()

	// Repositories and Redis components
	sessionRepo := mysql.NewMySQLSessionRepository(db)
	bidRepo := mysql.NewMySQLBidRepository(db)
	leaderboardCache := redis.NewRedisLeaderboardCache(rdb)
	eventPublisher := redis.NewEventPublisher(rdb, cfg.Engine.EventsChannel)
	eventSubscriber := redis.NewRedisEventSubscriber(rdb, cfg.Engine.EventsChannel, log)

	// Engine
	timeSource := clock.System{}
	registry := services.NewSessionRegistry()
	validator := services.NewBidValidator()
	auctionManager := services.NewAuctionManager(registry, validator, sessionRepo, bidRepo,
		leaderboardCache, timeSource, log)
	auctionManager.AddSink(eventPublisher)
	bidService := services.NewBidService(registry, bidRepo, eventPublisher, leaderboardCache, timeSource, log)

	restored, err := auctionManager.Boot(ctx)
	if err != nil {
		log.Fatal("Failed to restore sessions", "error", err)
	}
	log.Info("Sessions restored", "count", restored)

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	scheduler := services.NewExpiryScheduler(auctionManager, bidService,
		cfg.Engine.TickInterval, cfg.Engine.RetryInterval, log)
	if err := scheduler.Start(appCtx); err != nil {
		log.Fatal("Failed to start scheduler", "error", err)
	}

	// Live push
	connManager := websocket.NewConnectionManager(log)
	eventListener := services.NewEventListener(connManager, log)
	go func() {
		if err := eventListener.Start(appCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		MaxAge: 86400,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			req := c.Request()
			log.Info("Request handled",
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start).String(),
				"remote_addr", c.RealIP())
			return err
		}
	})

	sessionHandler := handlers.NewSessionHandler(auctionManager, bidService, cfg.Engine.DefaultDuration, log)
	sessionHandler.Register(e.Group("/api/v1"))

	wsHandlers := handlers.NewWebSocketHandlers(bidService, connManager, log)
	e.Any("/ws/sessions/:sessionID", echo.WrapHandler(wsHandlers.Router()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":         "ok",
			"service":        "auction-service",
			"instance_id":    cfg.Instance.ID,
			"sessions":       registry.Len(),
			"pending_writes": bidService.PendingWrites(),
			"timestamp":      timeSource.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting HTTP server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}

	// Flush what is still queued before the process exits.
	if pending := bidService.RetryPending(shutdownCtx); pending > 0 {
		log.Warn("Bid writes lost on shutdown", "count", pending)
	}
	if pending := auctionManager.RetryUnsettled(shutdownCtx); pending > 0 {
		log.Warn("Session end writes lost on shutdown", "count", pending)
	}
	stop()

	log.Info("Auction service stopped")
}
