package events

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SubscriberQueueSize bounds the number of undelivered events per subscriber.
const SubscriberQueueSize = 64

// SubscriberID identifies a bus subscription.
type SubscriberID uint64

type subscription struct {
	filter map[string]struct{}
	ch     chan Event
}

func (s *subscription) wants(eventType string) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[eventType]
	return ok
}

type busMetrics struct {
	published   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// Bus fans committed events out to in-process subscribers. Delivery never
// blocks the publisher: a subscriber whose queue is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[SubscriberID]*subscription
	lastID  SubscriberID
	closed  bool
	logger  *slog.Logger
	metrics *busMetrics
}

// NewBus creates an event bus. reg and logger are optional.
func NewBus(reg prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subs:   make(map[SubscriberID]*subscription),
		logger: logger,
	}
	if reg != nil {
		m := &busMetrics{
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "leasex",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Events published on the node bus segmented by type.",
			}, []string{"type"}),
			dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "leasex",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Events dropped because a subscriber queue was full.",
			}, []string{"type"}),
			subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "leasex",
				Subsystem: "events",
				Name:      "subscribers",
				Help:      "Active event bus subscribers.",
			}),
		}
		reg.MustRegister(m.published, m.dropped, m.subscribers)
		b.metrics = m
	}
	return b
}

// Subscribe registers a subscriber for the supplied event types (all types
// when none are given). The returned cancel function unsubscribes and closes
// the channel; it is safe to call more than once.
func (b *Bus) Subscribe(types ...string) (SubscriberID, <-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, SubscriberQueueSize)}
	if len(types) > 0 {
		sub.filter = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.filter[t] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return 0, sub.ch, func() {}
	}
	b.lastID++
	id := b.lastID
	b.subs[id] = sub
	if b.metrics != nil {
		b.metrics.subscribers.Inc()
	}
	b.mu.Unlock()

	var once sync.Once
	return id, sub.ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	if b.metrics != nil {
		b.metrics.subscribers.Dec()
	}
}

// Emit implements Emitter by publishing evt to every matching subscriber.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	eventType := evt.EventType()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, sub := range b.subs {
		if !sub.wants(eventType) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			if b.metrics != nil {
				b.metrics.dropped.WithLabelValues(eventType).Inc()
			}
			b.logger.Warn("event subscriber queue full, dropping event",
				slog.Uint64("subscriber", uint64(id)),
				slog.String("type", eventType))
		}
	}
	if b.metrics != nil {
		b.metrics.published.WithLabelValues(eventType).Inc()
	}
}

// Close unsubscribes everyone. Further publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	if b.metrics != nil {
		b.metrics.subscribers.Set(0)
	}
}
