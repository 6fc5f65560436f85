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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/api"
	"github.com/fjod/hebec-shop/internal/auth"
	"github.com/fjod/hebec-shop/internal/cart"
	"github.com/fjod/hebec-shop/internal/checkout"
	"github.com/fjod/hebec-shop/internal/config"
	"github.com/fjod/hebec-shop/internal/events"
	h "github.com/fjod/hebec-shop/internal/http"
	"github.com/fjod/hebec-shop/internal/logger"
	"github.com/fjod/hebec-shop/internal/metrics"
	"github.com/fjod/hebec-shop/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	}()

	m := metrics.NewCollector()
	remote := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, log, api.WithMetrics(m))

	carts := cart.NewService(st, log)
	m.TrackActiveCarts(func() float64 { return float64(carts.Len()) })
	carts.Subscribe(func(e cart.Event) {
		m.CartMutations.WithLabelValues(string(e.Op)).Inc()
	})
	go carts.Run(ctx, cfg.CartSweepInterval, cfg.CartIdleTTL)

	checkouts := checkout.NewService(carts, remote, remote, m, log)
	go checkouts.Run(ctx, cfg.CartSweepInterval, cfg.CheckoutIdleTTL)

	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewPublisher(
			events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
			cfg.InstanceID, cfg.EventBuffer, log)
		publisher.Start(ctx)
		carts.Subscribe(publisher.CartChanged)
		checkouts.OnPlaced(publisher.OrderPlaced)

		invalidator := events.NewInvalidator(
			events.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.InstanceID),
			carts, cfg.InstanceID, log)
		go invalidator.Run(ctx)
		log.Info("kafka events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	router := h.NewRouter(h.Dependencies{
		Log:                log,
		Metrics:            m,
		Sessions:           auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, st),
		Carts:              carts,
		Checkouts:          checkouts,
		Remote:             remote,
		LoginLimiter:       h.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		SecureCookies:      cfg.SecureCookies,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("storefront starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("api", cfg.APIBaseURL),
			zap.String("storage", cfg.Storage.Backend),
			zap.String("instance_id", cfg.InstanceID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if publisher != nil {
		publisher.Wait()
	}

	log.Info("server exited")
}
