// Package analysis implements the biomarker analysis tool service and the
// client the API uses to call it.
//
// The tool service exposes three tools over HTTP+JSON (analyze_biomarkers,
// suggest_monitoring_priorities, generate_health_summary). Its answers come
// from a Runner; RuleAnalyzer is the deterministic rule-based implementation.
//
// Client runs all three tools concurrently for one patient, collapses
// concurrent requests for the same patient into a single flight, and fails
// fast through a circuit breaker while the tool service is down.
package analysis
