// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("sso_client", "bizdock").Info("Client registered")
//
// Request scoped logging picks up the request ID, SSO client and trace IDs:
//
//	observability.FromContext(r.Context()).Warn("Discarding continuation target")
//
// # Metrics
//
// Recorder is the sink the SSO and token store packages report to. Metrics exports
// to Prometheus and OTelMetrics to the global OpenTelemetry meter:
//
//	metrics := observability.NewMetrics(registry)
//	otelMetrics, _ := observability.NewOTelMetrics()
//	recorder := observability.NewMultiRecorder(metrics, otelMetrics)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddDependency("redis", observability.RedisPinger(client), true)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "handoff",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
