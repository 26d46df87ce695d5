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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/cantina-pos/api/internal/cache"
	"github.com/cantina-pos/api/internal/config"
	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/events"
	"github.com/cantina-pos/api/internal/metrics"
	mw "github.com/cantina-pos/api/internal/middleware"
	"github.com/cantina-pos/api/internal/router"
	"github.com/cantina-pos/api/internal/service"
	"github.com/cantina-pos/api/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var menuCache service.MenuCache = service.NopMenuCache{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		menuCache = cache.NewMenuCache(client, cfg.MenuCacheTTL)
		log.WithField("addr", cfg.RedisAddr).Info("menu cache enabled")
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	m := metrics.New()
	m.WatchClients(hub.Clients)

	// Without Kafka the hub is fed directly. With it, events go through the
	// topic so every instance's kitchen screens see every reservation.
	publisher := events.Fanout{hub, m}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kafkaPub.Close()

		relay := events.NewRelay(events.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic), hub)
		defer relay.Close()
		go relay.Run(ctx)

		publisher = events.Fanout{kafkaPub, m}
		log.WithField("topic", cfg.KafkaTopic).Info("kafka events enabled")
	}

	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 10m", func() {
		if n := limiter.Cleanup(30 * time.Minute); n > 0 {
			log.WithField("removed", n).Debug("rate limiter cleanup")
		}
	}); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := router.New(router.Deps{
		Config:    cfg,
		Queries:   database.New(pool),
		Pool:      pool,
		Hub:       hub,
		Publisher: publisher,
		MenuCache: menuCache,
		Metrics:   m,
		Limiter:   limiter,
		Logger:    log.StandardLogger(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
