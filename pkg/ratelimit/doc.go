// Package ratelimit throttles requests per client IP.
//
// Callback and issue endpoints accept bearer material, so an unthrottled caller can
// probe tokens or secrets at line rate. Middleware answers 429 with Retry-After once
// a client exceeds its window.
//
// Two limiters are provided:
//   - LocalLimiter: in-process token bucket, one bucket per key
//   - RedisLimiter: fixed window counter shared by every replica (INCR + EXPIRE)
//
// Requests are keyed by peer address. X-Forwarded-For and X-Real-IP are read only
// when the peer is listed in Config.TrustedProxies, so a direct client cannot mint a
// fresh bucket per request by rotating a forged header.
//
// Limiter errors fail open: the request is served and the error logged.
package ratelimit
