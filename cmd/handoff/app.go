package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/handoff/pkg/config"
	"github.com/platinummonkey/handoff/pkg/httputil"
	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/ratelimit"
	"github.com/platinummonkey/handoff/pkg/sso"
	"github.com/platinummonkey/handoff/pkg/tokenstore"
)

// app is the wired service: SSO routes on the public handler, probes and metrics
// on the health handler
type app struct {
	store    tokenstore.Store
	sweeper  *tokenstore.Sweeper
	watcher  *config.ClientsWatcher
	clients  clientFactory
	registry *sso.Registry
	handlers *sso.Handlers
	handler  http.Handler
	health   http.Handler
}

// clientFactory builds providers and issuers sharing the instrumented token store
type clientFactory struct {
	tokens   sso.TokenStore
	logger   *observability.Logger
	recorder observability.Recorder
}

func (f clientFactory) build(cfgs []sso.ClientConfig) ([]sso.Provider, []sso.IssuerBinding, error) {
	providers := make([]sso.Provider, 0, len(cfgs))
	bindings := make([]sso.IssuerBinding, 0, len(cfgs))
	for _, cc := range cfgs {
		cc = cc.WithDefaults()
		client, err := sso.NewClient(cc, f.tokens,
			sso.WithLogger(f.logger),
			sso.WithRecorder(f.recorder),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("client %q: %w", cc.Name, err)
		}
		providers = append(providers, client)
		bindings = append(bindings, sso.IssuerBinding{Client: cc, Issuer: sso.NewIssuerForClient(f.tokens, cc)})
	}
	return providers, bindings, nil
}

// reloadClients swaps in a new client set; the running set stays on any error
func (a *app) reloadClients(cfgs []sso.ClientConfig) error {
	providers, bindings, err := a.clients.build(cfgs)
	if err != nil {
		return err
	}
	if err := a.registry.Replace(providers...); err != nil {
		return err
	}
	a.handlers.ReplaceIssuers(bindings...)
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *observability.Logger, recorders ...observability.Recorder) (*app, error) {
	healthMux := http.NewServeMux()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
		observability.RegisterMetricsEndpoint(healthMux, registry)
		recorders = append(recorders, metrics)
	}
	recorder := observability.NewMultiRecorder(recorders...)

	store, err := tokenstore.New(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	a := &app{store: store}

	if sweepable, ok := store.(tokenstore.Sweepable); ok {
		var opts []tokenstore.SweeperOption
		if metrics != nil {
			opts = append(opts, tokenstore.WithSweepRecorder(metrics))
		}
		a.sweeper, err = tokenstore.NewSweeper(sweepable, cfg.SweepSchedule, logger, opts...)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	tokens := tokenstore.Instrument(store, store.Backend(), recorder)

	a.clients = clientFactory{tokens: tokens, logger: logger, recorder: recorder}
	providers, bindings, err := a.clients.build(cfg.SSO.Clients)
	if err != nil {
		store.Close()
		return nil, err
	}

	handlerOpts := []sso.HandlersOption{
		sso.WithHandlersLogger(logger),
		sso.WithHandlersRecorder(recorder),
	}
	for _, b := range bindings {
		handlerOpts = append(handlerOpts, sso.WithIssuer(b.Client, b.Issuer))
	}

	registry, err := sso.NewRegistry(providers...)
	if err != nil {
		store.Close()
		return nil, err
	}
	handlers := sso.NewHandlers(registry, sso.NewUsernameProfileCreator(), cfg.SSO.HandlersConfig(), handlerOpts...)
	a.registry, a.handlers = registry, handlers

	router := mux.NewRouter()
	router.Use(httputil.MetricsMiddleware(recorder))
	if rl := cfg.Server.RateLimit; rl.Enabled() {
		router.Use(ratelimit.Middleware(newLimiter(ctx, store, rl), logger))
	}
	handlers.RegisterRoutes(router)

	a.handler = otelhttp.NewHandler(httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.NoStoreMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(router), "handoff")

	checker := observability.NewHealthChecker(version)
	checker.AddDependency("token_store", storePinger(store), true)
	observability.RegisterHealthRoutes(healthMux, checker)
	a.health = healthMux

	if cfg.SSO.ClientsFile != "" && cfg.SSO.WatchClientsFile {
		a.watcher, err = config.NewClientsWatcher(cfg.SSO.ClientsFile, logger, a.reloadClients)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	logger.WithFields(map[string]interface{}{
		"clients": registry.Names(),
		"backend": store.Backend(),
		"issuer":  cfg.SSO.IssuerSecret != "",
	}).Info("SSO handlers ready")

	return a, nil
}

func storePinger(store tokenstore.Store) observability.Pinger {
	switch s := store.(type) {
	case *tokenstore.RedisStore:
		return observability.RedisPinger(s.Client())
	case *tokenstore.SQLStore:
		return observability.DBPinger(s.DB())
	default:
		return observability.PingFunc(store.Ping)
	}
}

// newLimiter shares counters through Redis when the token store lives there
func newLimiter(ctx context.Context, store tokenstore.Store, cfg ratelimit.Config) ratelimit.Limiter {
	if rs, ok := store.(*tokenstore.RedisStore); ok {
		return ratelimit.NewRedisLimiter(rs.Client(), cfg, "")
	}
	limiter := ratelimit.NewLocalLimiter(cfg)
	limiter.StartCleanup(ctx)
	return limiter
}
