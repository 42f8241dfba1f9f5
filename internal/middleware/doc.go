// Package middleware provides HTTP middleware for the content API.
//
// It includes:
//   - Request logging with log injection sanitization
//   - Prometheus request metrics
//   - Bearer token verification and role checks
//   - Per-client rate limiting
package middleware
