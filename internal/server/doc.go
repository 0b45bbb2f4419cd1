// Package server implements the HTTP API using the Echo framework.
//
// Routes: patients and biomarkers (read-only), analysis (proxied to the
// analysis service), live update stats, the /ws WebSocket endpoint, and
// health/metrics/version probes.
// Handlers split by domain: handlers_patients.go, handlers_analysis.go, handlers_health.go.
package server
