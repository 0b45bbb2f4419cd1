// Package broadcast implements the live update broadcaster.
//
// Each patient topic with at least one subscriber owns one goroutine driven by a clockwork ticker
// with a randomized 2-3s period. On every tick it pulls the topic's metrics from the MetricStore,
// perturbs a random subset of 2-3 of them and pushes the delta through the Gateway.
// Subscriptions are reference counted: the ticker starts on the first subscriber and is cancelled
// when the last one leaves (unsubscribe or disconnect). Registries are guarded by a single mutex
// that is never held across MetricStore I/O.
package broadcast
