// Package ratelimit provides per-client request limiting behind a small
// Store interface, with a fixed-window in-memory implementation for
// single-instance deployments.
package ratelimit
