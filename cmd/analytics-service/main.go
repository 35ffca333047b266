package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-system/internal/config"
	"auction-system/internal/infrastructure/mysql"
	"auction-system/internal/infrastructure/redis"
	"auction-system/internal/services"
	"auction-system/pkg/logger"
	"auction-system/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "analytics-service")
	defer log.Sync()
	log.Info("Starting analytics service", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := utils.InitializeRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer rdb.Close()

	db, err := utils.InitializeMysql(ctx, cfg.MySQL, log)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer db.Close()

	if cfg.MySQL.Migrate {
		if err := mysql.Migrate(db); err != nil {
			log.Fatal("Failed to migrate schema", "error", err)
		}
	}

	eventSubscriber := redis.NewRedisEventSubscriber(rdb, cfg.Engine.EventsChannel, log)
	recorder := services.NewResultRecorder(mysql.NewMySQLResultRepository(db), log)

	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := recorder.Start(appCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("Analytics service failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down analytics service...")
	stop()
	log.Info("Analytics service stopped")
}
