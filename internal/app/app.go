package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/checkout"
	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/events"
	"github.com/xenking/smart-trolley/internal/handler"
	"github.com/xenking/smart-trolley/internal/storage/postgres"
	"github.com/xenking/smart-trolley/internal/storage/redis"
	"github.com/xenking/smart-trolley/pkg/health"
	"github.com/xenking/smart-trolley/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("stock_policy", string(cfg.StockPolicy())),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))
	healthSvc.Register(health.Liveness, "gc_pause", health.GCMaxPauseCheck(time.Second))
	healthSvc.Register(health.Readiness, "postgres", health.PingCheck("postgres", pool.Ping),
		health.WithTimeout(5*time.Second),
	)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	sessions, closeSessions, err := newSessionStore(cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeSessions()

	committerOpts := []order.Option{
		order.WithStockPolicy(cfg.StockPolicy()),
		order.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}()
		committerOpts = append(committerOpts, order.WithPublisher(publisher))
		lg.Info("Publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Domain services.
	committer, err := order.NewCommitter(orderRepo, committerOpts...)
	if err != nil {
		return errors.Wrap(err, "create committer")
	}
	ledger := cart.NewLedger(cartRepo, productRepo, cfg.StockPolicy())
	checkoutSvc := checkout.NewService(ledger, committer, sessions, cfg.PaymentTarget())

	h := handler.NewHandler(
		handler.Config{StoreName: cfg.StoreName, ImageBaseURL: cfg.ImageBaseURL},
		handler.Deps{
			Products: productRepo,
			Ledger:   ledger,
			Checkout: checkoutSvc,
			Receipts: order.NewReceipts(orderRepo),
			Reports:  analytics.NewService(analyticsRepo),
			Auth:     identity.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
		},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.HeaderAPIKey},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.KeyByHeader("Authorization", handler.HeaderAPIKey),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("trolley-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newSessionStore picks Redis when configured and process memory otherwise.
func newSessionStore(cfg *Config, h *health.Health) (checkout.SessionStore, func(), error) {
	if !cfg.Redis.Enabled() {
		return checkout.NewMemoryStore(cfg.Checkout.SessionTTL), func() {}, nil
	}

	client, err := redis.NewClient(cfg.Redis.URL, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create redis client")
	}
	store := redis.NewSessionStore(client, cfg.Checkout.SessionTTL)
	h.Register(health.Readiness, "redis", health.PingCheck("redis", store.Ping))

	return store, func() { _ = client.Close() }, nil
}
