package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"leasex/core/types"
	"leasex/native/marketplace"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func TestMetricsRecordOperationsAndEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.ObserveOperation("market_apply", nil, time.Millisecond)
	m.ObserveOperation("market_apply", marketplace.ErrPropertyFull, time.Millisecond)
	m.ObserveOperation("market_apply", errors.New("disk"), time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("market_apply", "committed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("market_apply", "rejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("market_apply", "failed")))

	m.Emit(testEvent{evt: &types.Event{Type: "LeaseDisputeResolved", Attributes: map[string]string{"status": "DRAW"}}})
	m.Emit(testEvent{evt: &types.Event{Type: "PaymentMade", Attributes: map[string]string{}}})
	require.Equal(t, 1.0, testutil.ToFloat64(m.resolved.WithLabelValues("DRAW")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("PaymentMade")))

	m.ObserveRequest("dispute_vote", -32010, time.Millisecond)
	m.RecordThrottle("rate_limit")
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("dispute_vote", "rejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.throttles.WithLabelValues("rate_limit")))

	_, err = NewMetrics(reg)
	require.Error(t, err)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("x", nil, 0)
	m.ObserveRequest("x", 0, 0)
	m.RecordThrottle("")
	m.Emit(nil)
}
