// Package app wires the storefront together and runs its HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/cart"
	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/events"
	"github.com/xenking/molino-storefront/internal/handler"
	"github.com/xenking/molino-storefront/internal/mail"
	"github.com/xenking/molino-storefront/internal/playlab"
	"github.com/xenking/molino-storefront/internal/square"
	"github.com/xenking/molino-storefront/internal/storage"
	"github.com/xenking/molino-storefront/internal/storage/memory"
	"github.com/xenking/molino-storefront/internal/storage/postgres"
	"github.com/xenking/molino-storefront/pkg/health"
	"github.com/xenking/molino-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	st, err := openStores(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	go st.sweep(ctx)

	srv, err := newServer(ctx, lg, m, cfg, st)
	if err != nil {
		return err
	}
	defer srv.close()

	healthSvc := srv.health
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Chat replies stream from the assistant before the response is written.
		WriteTimeout:   cfg.Playlab.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler:        srv.handler,
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
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

type server struct {
	handler http.Handler
	health  *health.Health
	closers []func() error
}

func (s *server) close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// newServer builds the domain services, the API routes and the middleware
// chain. Missing vendor credentials degrade the affected routes instead of
// failing startup.
func newServer(ctx context.Context, lg *zap.Logger, tel httpmiddleware.Telemetry, cfg *Config, st *stores) (*server, error) {
	srv := &server{health: health.New()}

	var (
		catalog menu.Catalog
		vendor  checkout.Vendor
	)
	sq, err := square.New(cfg.Square,
		square.WithTracerProvider(tel.TracerProvider()),
		square.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		lg.Warn("Square is not configured, catalog and checkout are disabled", zap.Error(err))
		catalog, vendor = square.Unavailable{Err: err}, square.Unavailable{Err: err}
	} else {
		lg.Info("Square configured",
			zap.String("environment", cfg.Square.EnvironmentName()),
			zap.String("location_id", sq.LocationID()),
		)
		catalog, vendor = sq, sq
	}
	if err := cfg.Playlab.Validate(); err != nil {
		lg.Warn("PlayLab is not configured, chat replies will fail", zap.Error(err))
	}

	var notifiers checkout.Notifiers
	if cfg.Kafka.Enabled() {
		pub, err := events.NewPublisher(cfg.Kafka)
		if err != nil {
			return nil, errors.Wrap(err, "create event publisher")
		}
		srv.closers = append(srv.closers, pub.Close)
		notifiers = append(notifiers, pub)
		lg.Info("Publishing checkout events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if cfg.Mail.Enabled() {
		notifiers = append(notifiers, mail.New(cfg.Mail))
		lg.Info("Sending order confirmations", zap.String("from", cfg.Mail.From))
	}

	menuSource := menu.NewCachedReader(
		menu.NewReader(catalog, menu.WithPlaceholder(cfg.Catalog.Placeholder)),
		cfg.Catalog.CacheTTL,
	)
	checkoutSvc := checkout.NewService(vendor,
		checkout.WithConfig(cfg.Checkout.policy()),
		checkout.WithLedger(st.ledger),
		checkout.WithNotifier(notifiers),
		checkout.WithTracerProvider(tel.TracerProvider()),
		checkout.WithMeterProvider(tel.MeterProvider()),
	)
	bridge := chat.NewBridge(playlab.New(cfg.Playlab,
		playlab.WithTracerProvider(tel.TracerProvider()),
		playlab.WithMeterProvider(tel.MeterProvider()),
	))

	h := handler.NewHandler(
		handler.HandlerConfig{SessionTTL: cfg.Session.TTL, SecureCookies: cfg.Session.SecureCookies},
		handler.Deps{
			Menu:     menuSource,
			Payments: cfg.Square,
			Checkout: checkoutSvc,
			Bridge:   bridge,
			Carts:    cart.NewStore(storage.NewCartRepository(st.blobs)),
			Chats:    chat.NewSessions(bridge, storage.NewChatRepository(st.blobs)),
		},
	)

	hs := srv.health
	hs.Add(health.Check{Name: "goroutines", Kind: health.Liveness, Func: health.GoroutineCountCheck(10000)})
	hs.Add(health.Check{Name: "gc_pause", Kind: health.Liveness, Func: health.GCMaxPauseCheck(time.Second)})
	if st.ping != nil {
		hs.Add(health.Check{Name: "postgres", Kind: health.Readiness, Timeout: 5 * time.Second, Func: health.PingCheck(st.ping)})
	}
	hs.Add(health.Check{Name: "square", Kind: health.Readiness, Advisory: true, Func: health.ConfigCheck(cfg.Square.Validate)})
	hs.Add(health.Check{Name: "playlab", Kind: health.Readiness, Advisory: true, Func: health.ConfigCheck(cfg.Playlab.Validate)})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hs.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hs.ReadyEndpoint)
	h.Register(mux)

	srv.handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", handler.SessionHeader, httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{handler.SessionHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   isHealthRoute,
		}),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("molino-storefront", tel),
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	return srv, nil
}

func isHealthRoute(r *http.Request) bool {
	return r.URL.Path == "/livez" || r.URL.Path == "/readyz"
}

// stores are the persistence backends for session state and the ledger.
type stores struct {
	blobs  storage.Blobs
	ledger checkout.Ledger
	// ping is nil for in-memory stores.
	ping  func(context.Context) error
	sweep func(context.Context)
	close func()
}

// openStores connects to Postgres when a database URL is configured and
// falls back to process memory otherwise.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config) (*stores, error) {
	if cfg.DatabaseURL == "" {
		lg.Warn("No database configured, session state is kept in memory")
		blobs := memory.NewBlobs(cfg.Session.TTL)
		return &stores{
			blobs:  blobs,
			ledger: memory.NewLedger(cfg.Checkout.LedgerLimit),
			sweep: func(ctx context.Context) {
				blobs.StartSweeper(ctx, cfg.Session.SweepInterval)
			},
			close: func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	blobs := postgres.NewBlobs(pool)
	return &stores{
		blobs:  blobs,
		ledger: postgres.NewLedger(pool),
		ping:   pool.Ping,
		sweep: func(ctx context.Context) {
			sweepLoop(ctx, lg, cfg.Session, blobs)
		},
		close: pool.Close,
	}, nil
}

func sweepLoop(ctx context.Context, lg *zap.Logger, cfg SessionConfig, blobs *postgres.Blobs) {
	if cfg.TTL <= 0 || cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := blobs.Sweep(ctx, now.Add(-cfg.TTL))
			if err != nil {
				lg.Warn("Sweep session state", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Swept session state", zap.Int64("rows", n))
			}
		}
	}
}
