package domain

import (
	"context"
	"time"
)

// Metric is a single named, valued, unit-tagged measurement belonging to a topic.
type Metric struct {
	ID    string
	Name  string
	Value float64
	Unit  string
}

// MetricStore is the read-only view the live update broadcaster pulls from on every tick.
// Implementations must be safe for concurrent use and return snapshots, never shared slices.
type MetricStore interface {
	ListMetrics(ctx context.Context, topicID string) ([]Metric, error)
}

type MetricUpdate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Unit      string    `json:"unit"`
}

// UpdateEvent is the payload pushed to every subscriber of a topic on a tick.
type UpdateEvent struct {
	PatientID string         `json:"patientId"`
	Updates   []MetricUpdate `json:"updates"`
	Timestamp time.Time      `json:"timestamp"`
}

// Gateway routes events to connections grouped by topic.
// Join and Leave are idempotent; SendToTopic reaches only connections joined at call time.
type Gateway interface {
	Join(connID, topicID string)
	Leave(connID, topicID string)
	SendToTopic(topicID string, event UpdateEvent)
}

// Random is the source of randomness for timer periods and value perturbation.
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	Float64() float64
	IntN(n int) int
}
