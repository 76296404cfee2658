package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/config"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/database"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/hub"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/router"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/services"
	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger()
	utils.SetJWTSecret(cfg.JWTSecret)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := hub.NewHub(cfg.Engine.SubscriberQueue, utils.InfoLogger)
	if rdb := config.NewRedisClient(cfg); rdb != nil {
		defer rdb.Close()
		hub.NewRedisRelay(rdb, cfg.RedisChannel, bus, utils.InfoLogger).Start(ctx)
		utils.InfoLogger.WithField("channel", cfg.RedisChannel).Info("redis event relay enabled")
	} else {
		utils.InfoLogger.Info("REDIS_ADDR not set or unreachable, running single instance")
	}

	opts := []services.Option{services.WithLogger(utils.InfoLogger)}
	if cfg.AMQPURL != "" {
		notifier := services.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyQueue, utils.InfoLogger)
		notifier.Start()
		defer notifier.Close()
		opts = append(opts, services.WithNotifier(notifier))
	}
	if cfg.NATSURL != "" {
		mirror, err := services.NewNATSMirror(cfg.NATSURL, cfg.NATSTableSubj, utils.InfoLogger)
		if err != nil {
			utils.ErrorLogger.Errorf("NATS mirror disabled: %v", err)
		} else {
			defer mirror.Close()
			opts = append(opts, services.WithMirror(mirror))
		}
	}

	engine, err := services.NewEngine(repository.New(db), bus, cfg.Engine, opts...)
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid engine configuration: %v", err)
	}

	monitor := services.NewReminderMonitor(engine)
	monitor.Start()
	defer monitor.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(engine, bus, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("shutdown: %v", err)
	}
}
