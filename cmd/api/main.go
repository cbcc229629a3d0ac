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

	httpadapter "github.com/cashflow/payment-lifecycle/internal/adapter/primary/http"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/database"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/messaging"
	"github.com/cashflow/payment-lifecycle/internal/config"
	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
	"github.com/cashflow/payment-lifecycle/internal/logging"
	"github.com/cashflow/payment-lifecycle/internal/metrics"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/cashflow/payment-lifecycle/internal/workerpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "payment-api")

	if err := run(cfg, log); err != nil {
		log.Error("payment api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize secondary adapters: Repository and Messaging (implement output ports)
	paymentRepo, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	events, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}

	// Progressions get their own context so a signal drains them instead of failing them
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool := workerpool.New(poolCtx, log, cfg.WorkerPoolSize)

	// Initialize core services (implement input ports)
	processor := service.NewPaymentProcessor(cfg.CompletionDelay, cfg.SimulatedFailureRate)
	lifecycle := service.NewLifecycleEngine(log, paymentRepo, events, processor, pool, cfg.ProcessingDelay)
	paymentService := service.NewPaymentService(log, paymentRepo, events, lifecycle)

	// Initialize primary adapter: HTTP handler (uses input port)
	paymentHandler := httpadapter.NewPaymentHandler(paymentService, log)

	e := newServer(log)
	paymentHandler.Register(e.Group("/api/v1"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info("starting API server", "addr", addr, "store", cfg.StoreDriver, "transport", cfg.EventTransport)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "err", err)
		}
		if err := pool.Shutdown(shutdownCtx); err != nil {
			log.Warn("lifecycle workers did not drain, abandoning in-flight payments",
				"pending", pool.Pending(), "err", err)
			cancelPool()
		}
		if err := events.Close(); err != nil {
			log.Error("event publisher close", "err", err)
		}
		return nil
	})

	return g.Wait()
}

func newServer(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				log.LogAttrs(c.Request().Context(), slog.LevelError, "request", slog.Group("http", attrs...), slog.String("err", v.Error.Error()))
				return nil
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	e.Use(metrics.EchoMiddleware())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func openStore(cfg *config.Config, log *slog.Logger) (output.PaymentRepository, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory payment store, data is lost on restart")
		return database.NewMemoryPaymentRepository(), func() {}, nil
	}

	dbConn, err := db.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database.NewGormPaymentRepository(dbConn.DB), func() { _ = dbConn.Close() }, nil
}

func openPublisher(cfg *config.Config, log *slog.Logger) (output.PaymentEventPublisher, error) {
	if cfg.EventTransport == config.TransportKafka {
		return messaging.NewKafkaPublisher(log, cfg.KafkaBrokers, cfg.KafkaTopic), nil
	}
	events, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		return nil, err
	}
	return events, nil
}
