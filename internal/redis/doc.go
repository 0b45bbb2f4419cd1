// Package redis implements the Redis-backed patient and biomarker store.
//
// Patients live as JSON in the "patients" hash with their display order in the
// "patients:order" list; each patient's biomarkers are a JSON list under
// "biomarkers:<patientId>". Every command passes through a metrics hook and a
// circuit breaker hook.
package redis
