// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "invalid issuer credentials")
//
// # Request Parsing
//
//	var req IssueRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	name, ok := httputil.ParsePathStringOrError(w, r, "client")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.NoStoreMiddleware,
//		httputil.MaxBytesMiddleware(64*1024),
//	)(router)
//
// MetricsMiddleware labels requests with the gorilla/mux route template, so install
// it with router.Use rather than around the router.
//
// Request logging never includes query strings, which carry handoff tokens.
package httputil
