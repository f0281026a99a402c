package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"feedesk/internal/amqp"
	"feedesk/internal/backend"
	"feedesk/internal/cli"
	"feedesk/internal/config"
	apphttp "feedesk/internal/http"
	"feedesk/internal/log"
	"feedesk/internal/messages"
	"feedesk/internal/session"
	"feedesk/internal/view"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	if err := cli.LoadEnvFile(".env"); err != nil {
		cli.SetupLogger("info").Warn("Failed to load .env file", log.FieldError, err.Error())
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error",
			log.FieldOperation, log.OpStartup,
			log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.New(backendCfg, logger)
	if err != nil {
		return err
	}

	catalog, err := messages.New(cfg.UILocale)
	if err != nil {
		return err
	}
	policy, err := view.ParseStalePolicy(cfg.StalePolicy)
	if err != nil {
		return err
	}

	// Member change events are optional; the desk works without a broker.
	var (
		events      *amqp.Client
		eventStatus apphttp.EventStatus
	)
	if cfg.EventsEnabled() {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, member change events disabled",
				log.FieldError, err.Error())
			events = nil
		} else {
			defer events.Close()
			eventStatus = events
			logger.Info("AMQP publisher initialized",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
		}
	}

	metrics := apphttp.NewMetrics()
	factory := func(r *http.Request) *view.Controller {
		opts := []view.Option{
			view.WithTabs(cfg.UITabs...),
			view.WithDefaultTab(cfg.DefaultTab),
			view.WithStalePolicy(policy),
			view.WithNotifier(metrics),
			view.WithLogger(logger),
		}
		if events != nil {
			opts = append(opts, view.WithEventPublisher(events))
		}
		printer := catalog.Printer(catalog.Match(r.Header.Get("Accept-Language")))
		return view.New(be.Backend, printer, opts...)
	}

	sessions := session.NewManager(session.Config{
		Secret:      []byte(cfg.SessionSecret),
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
	}, factory, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:           sessions,
		Catalog:            catalog,
		Ready:              be.Ready,
		Events:             eventStatus,
		Metrics:            metrics,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		return err
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting feedesk server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.APIBackend,
			"locale", catalog.Default().String(),
			"stale_policy", string(policy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		pingCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
		defer cancel()
		if err := be.Ready(pingCtx); err != nil {
			logger.Warn("Backend API not reachable yet",
				"base_url", cfg.APIBaseURL,
				log.FieldError, err.Error())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
