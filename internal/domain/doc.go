// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (patient.go, biomarker.go, live.go, errors.go) hold shared
// types and the contracts between the stores, the live update broadcaster and the
// connection gateway. No implementation code - just contracts.
package domain
