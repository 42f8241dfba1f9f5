// Package metrics declares the Prometheus collectors for the freecipies
// content service: HTTP traffic, database queries, object-store operations,
// and the encode pipeline.
//
// All collectors are registered with the default registry using promauto.
// To expose them, mount promhttp.Handler() on a router:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
package metrics
