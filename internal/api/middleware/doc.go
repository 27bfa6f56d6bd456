// Package middleware provides the HTTP middleware stack for filedesk.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing for the browser UI
//   - RateLimit: Per-IP token bucket rate limiting with idle cleanup
//   - GlobalRateLimit: One bucket shared by all clients
//   - RequestID: X-Request-ID propagation
//   - AccessLog: One zap line per request
//
// Rejected requests get the same JSON envelope as handler errors.
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.AccessLog(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
