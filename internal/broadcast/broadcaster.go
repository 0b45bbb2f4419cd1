package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/logging"
	"github.com/pscheid92/biomarkerpulse/internal/metrics"
)

const (
	minTickPeriod    = 2000 * time.Millisecond
	tickPeriodSpread = 1000 * time.Millisecond
	minUpdates       = 2
	maxUpdates       = 3
	maxJitter        = 5.0
	lookupTimeout    = 2 * time.Second
	stopTimeout      = 10 * time.Second
)

// ErrStopped is returned by Subscribe once the broadcaster has been stopped.
var ErrStopped = errors.New("broadcaster stopped")

// topicTimer is the cancellable handle of one topic's recurring update goroutine.
type topicTimer struct {
	period time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

// Stats is a point-in-time view of the registries.
type Stats struct {
	ActiveTopics  int `json:"activeTopics"`
	Subscriptions int `json:"subscriptions"`
}

// Broadcaster owns the subscription and timer registries.
//
// Lock order: mu is taken before any Gateway lock. The Gateway must never call back
// into the Broadcaster while holding its own lock.
type Broadcaster struct {
	store   domain.MetricStore
	gateway domain.Gateway
	clock   clockwork.Clock

	rngMu sync.Mutex
	rng   domain.Random

	mu          sync.Mutex
	subscribers map[string]map[string]struct{}
	timers      map[string]*topicTimer
	stopped     bool
	stopTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroadcaster creates a broadcaster with empty registries.
// store is read on every tick, gateway receives joins, leaves and update events,
// rng drives timer periods and value perturbation.
func NewBroadcaster(store domain.MetricStore, gateway domain.Gateway, rng domain.Random, clock clockwork.Clock) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broadcaster{
		store:       store,
		gateway:     gateway,
		clock:       clock,
		rng:         rng,
		subscribers: make(map[string]map[string]struct{}),
		timers:      make(map[string]*topicTimer),
		stopTimeout: stopTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe adds connID to the topic's subscriber set and joins it to the topic on the gateway.
// The first subscriber of a topic starts its timer. Re-subscribing is a no-op.
func (b *Broadcaster) Subscribe(connID, topicID string) error {
	if topicID == "" {
		return domain.ErrEmptyTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}

	subs, exists := b.subscribers[topicID]
	if !exists {
		subs = make(map[string]struct{})
		b.subscribers[topicID] = subs
	}
	if _, already := subs[connID]; already {
		return nil
	}
	subs[connID] = struct{}{}

	if _, running := b.timers[topicID]; !running {
		t := b.startTimerLocked(topicID)
		b.timers[topicID] = t
		slog.Info("Live updates started", "patient_id", topicID, "period", t.period)
	}

	b.gateway.Join(connID, topicID)
	b.updateGaugesLocked()

	slog.Debug("Subscribed", "conn_id", connID, "patient_id", topicID, "subscribers", len(subs))
	return nil
}

// Unsubscribe removes connID from the topic. The last subscriber leaving cancels the timer.
// Unsubscribing an absent pair is a no-op.
func (b *Broadcaster) Unsubscribe(connID, topicID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.removeLocked(connID, topicID) {
		b.gateway.Leave(connID, topicID)
		b.updateGaugesLocked()
	}
}

// HandleDisconnect removes connID from every topic it is subscribed to and cancels the
// timers of topics left without subscribers.
func (b *Broadcaster) HandleDisconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []string
	for topicID := range b.subscribers {
		if b.removeLocked(connID, topicID) {
			removed = append(removed, topicID)
		}
	}
	if len(removed) == 0 {
		return
	}

	for _, topicID := range removed {
		b.gateway.Leave(connID, topicID)
	}
	b.updateGaugesLocked()

	slog.Debug("Connection cleaned up", "conn_id", connID, "topics", len(removed))
}

// SubscriberCount returns the number of connections subscribed to a topic.
func (b *Broadcaster) SubscriberCount(topicID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topicID])
}

// HasTimer reports whether a recurring update timer is registered for the topic.
func (b *Broadcaster) HasTimer(topicID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.timers[topicID]
	return ok
}

// Stats returns the number of active topics and subscriptions.
func (b *Broadcaster) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{ActiveTopics: len(b.timers), Subscriptions: b.subscriptionCountLocked()}
}

// Stop cancels every timer and waits for in-flight ticks to finish, at most
// stopTimeout of real time.
// Subsequent Subscribe calls return ErrStopped.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	topics := len(b.timers)
	for topicID := range b.timers {
		b.stopTimerLocked(topicID)
	}
	clear(b.subscribers)
	b.updateGaugesLocked()
	b.mu.Unlock()

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	// Bounded in wall-clock time, independent of the injected clock.
	select {
	case <-done:
		slog.Info("Broadcaster stopped", "cancelled_topics", topics)
	case <-time.After(b.stopTimeout):
		slog.Warn("Broadcaster stop timeout exceeded, abandoning in-flight ticks", "timeout", b.stopTimeout)
	}
}

func (b *Broadcaster) removeLocked(connID, topicID string) bool {
	subs, exists := b.subscribers[topicID]
	if !exists {
		return false
	}
	if _, ok := subs[connID]; !ok {
		return false
	}

	delete(subs, connID)
	if len(subs) == 0 {
		delete(b.subscribers, topicID)
		b.stopTimerLocked(topicID)
		slog.Info("Live updates stopped", "patient_id", topicID)
	}
	return true
}

func (b *Broadcaster) startTimerLocked(topicID string) *topicTimer {
	ctx, cancel := context.WithCancel(b.ctx)
	t := &topicTimer{
		period: b.nextPeriod(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go b.runTopic(ctx, topicID, t)
	return t
}

func (b *Broadcaster) stopTimerLocked(topicID string) {
	t, ok := b.timers[topicID]
	if !ok {
		return
	}
	t.cancel()
	delete(b.timers, topicID)
}

func (b *Broadcaster) runTopic(ctx context.Context, topicID string, t *topicTimer) {
	defer b.wg.Done()
	defer close(t.done)

	ticker := b.clock.NewTicker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			b.tick(ctx, topicID, t)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context, topicID string, t *topicTimer) {
	// A cancelled timer may still have a tick buffered; never act on it.
	if ctx.Err() != nil {
		return
	}

	ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())
	start := b.clock.Now()
	result := "error"

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Live update tick panic recovered", "patient_id", topicID, "panic", r)
			result = "error"
		}
		metrics.LiveUpdateTicksTotal.WithLabelValues(result).Inc()
		metrics.LiveUpdateTickDuration.Observe(b.clock.Since(start).Seconds())
	}()

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	current, err := b.store.ListMetrics(lookupCtx, topicID)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "Metric lookup failed, retrying next tick", "patient_id", topicID, "error", err)
		}
		return
	}

	if len(current) == 0 {
		result = "empty"
		return
	}

	event := b.buildEvent(topicID, current)

	if !b.isCurrent(topicID, t) {
		result = "discarded"
		return
	}

	b.gateway.SendToTopic(topicID, event)
	result = "sent"
	slog.DebugContext(ctx, "Live update sent", "patient_id", topicID, "updates", len(event.Updates))
}

// isCurrent reports whether t is still the registered timer for the topic,
// i.e. the topic has not gone back to having no subscribers since the tick began.
func (b *Broadcaster) isCurrent(topicID string, t *topicTimer) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timers[topicID] == t
}

func (b *Broadcaster) buildEvent(topicID string, current []domain.Metric) domain.UpdateEvent {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()

	count := min(minUpdates+b.rng.IntN(maxUpdates-minUpdates+1), len(current))
	picked := pickDistinct(b.rng, current, count)

	now := b.clock.Now().UTC()
	updates := make([]domain.MetricUpdate, 0, len(picked))
	for _, m := range picked {
		updates = append(updates, domain.MetricUpdate{
			ID:        m.ID,
			Name:      m.Name,
			Value:     perturb(b.rng, m.Value),
			Timestamp: now,
			Unit:      m.Unit,
		})
	}

	return domain.UpdateEvent{PatientID: topicID, Updates: updates, Timestamp: now}
}

func (b *Broadcaster) nextPeriod() time.Duration {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	return minTickPeriod + time.Duration(b.rng.Float64()*float64(tickPeriodSpread))
}

func (b *Broadcaster) subscriptionCountLocked() int {
	total := 0
	for _, subs := range b.subscribers {
		total += len(subs)
	}
	return total
}

func (b *Broadcaster) updateGaugesLocked() {
	metrics.LiveUpdateActiveTopics.Set(float64(len(b.timers)))
	metrics.LiveUpdateSubscriptions.Set(float64(b.subscriptionCountLocked()))
}

// pickDistinct selects n metrics without replacement using a partial Fisher-Yates
// shuffle over a copy, leaving the caller's slice untouched.
func pickDistinct(rng domain.Random, from []domain.Metric, n int) []domain.Metric {
	pool := make([]domain.Metric, len(from))
	copy(pool, from)
	for i := range n {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// perturb applies an absolute jitter uniform in [-maxJitter, +maxJitter) and rounds to 2 decimals.
func perturb(rng domain.Random, value float64) float64 {
	delta := (rng.Float64()*2 - 1) * maxJitter
	return round2(value + delta)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
