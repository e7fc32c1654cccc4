package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"clientpulse/internal/app"
	httpapi "clientpulse/internal/http"
	"clientpulse/internal/ingest/consumer"
	"clientpulse/internal/platform/config"
	"clientpulse/internal/platform/httpserver"
	"clientpulse/internal/platform/kafka"
	"clientpulse/internal/platform/logger"
	otelsetup "clientpulse/internal/platform/otel"
	"clientpulse/internal/platform/postgres"
	redisclient "clientpulse/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires infrastructure, serves HTTP, and runs the refresh worker and
// meeting consumer until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelsetup.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	checks := map[string]httpapi.Pinger{}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
	}

	deps := app.Deps{DB: db, Logger: log}
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		deps.Redis = rc.Client
		checks["redis"] = httpapi.PingFunc(rc.Health)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registry = reg

	if cfg.KafkaEnabled() && cfg.Kafka.EnsureTopics {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, cfg.Kafka.TopicPartition, cfg.Kafka.MeetingTopic, cfg.Kafka.RefreshTopic); err != nil {
			return err
		}
	}

	a, err := app.Build(cfg, deps)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Load(ctx); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Config{
		Logger:   log,
		Gatherer: reg,
		Checks:   checks,
		Modules:  a.Handlers(),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting clientpulse", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return a.Worker.Run(gctx)
	})
	if cfg.KafkaEnabled() {
		c, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, []string{cfg.Kafka.MeetingTopic}, log)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("create kafka consumer: %w", err)
		}
		defer c.Close()
		meetings := consumer.NewMeetings(a.Ingest, log)
		g.Go(func() error {
			if err := c.Run(gctx, meetings.Handle); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("clientpulse stopped")
	return err
}
