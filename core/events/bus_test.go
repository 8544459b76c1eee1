package events

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leasex/core/types"
)

type testEvent struct {
	evt *types.Event
}

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func newTestEvent(kind string) testEvent {
	return testEvent{evt: &types.Event{Type: kind, Attributes: map[string]string{"k": "v"}}}
}

func TestBusDeliversToMatchingSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus(nil, nil)
	_, all, cancelAll := bus.Subscribe()
	_, votes, cancelVotes := bus.Subscribe("VoteOnLeaseDispute")

	var wg sync.WaitGroup
	var received []string
	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range all {
			received = append(received, evt.EventType())
		}
	}()

	bus.Emit(newTestEvent("PaymentMade"))
	bus.Emit(newTestEvent("VoteOnLeaseDispute"))

	got := <-votes
	require.Equal(t, "VoteOnLeaseDispute", got.EventType())
	require.Len(t, votes, 0)

	cancelVotes()
	cancelVotes()
	cancelAll()
	wg.Wait()
	require.Equal(t, []string{"PaymentMade", "VoteOnLeaseDispute"}, received)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := NewBus(reg, nil)
	_, ch, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < SubscriberQueueSize+3; i++ {
		bus.Emit(newTestEvent("PaymentAccepted"))
	}
	require.Len(t, ch, SubscriberQueueSize)
	require.Equal(t, float64(3), testutil.ToFloat64(bus.metrics.dropped.WithLabelValues("PaymentAccepted")))
	require.Equal(t, float64(SubscriberQueueSize+3), testutil.ToFloat64(bus.metrics.published.WithLabelValues("PaymentAccepted")))
}

func TestBusCloseClosesChannels(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewBus(nil, nil)
	_, ch, cancel := bus.Subscribe()
	bus.Close()
	_, ok := <-ch
	require.False(t, ok)
	cancel()

	_, late, _ := bus.Subscribe()
	_, ok = <-late
	require.False(t, ok)
	bus.Emit(newTestEvent("ignored"))
}

func TestBufferDrain(t *testing.T) {
	var buf Buffer
	buf.Emit(newTestEvent("a"))
	buf.Emit(nil)
	buf.Emit(newTestEvent("b"))
	require.Equal(t, 2, buf.Len())
	drained := buf.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, 0, buf.Len())

	payload := Payload(drained[0])
	require.Equal(t, "a", payload.Type)
	require.Equal(t, "v", payload.Attributes["k"])
}
