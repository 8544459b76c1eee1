package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"leasex/observability"
)

const meterName = "leasex/core"

// OperationMeter records node operations as OTel instruments. It satisfies
// core.Observer and runs next to the Prometheus collectors.
type OperationMeter struct {
	operations metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewOperationMeter creates the instruments on mp, or on the global provider
// when mp is nil.
func NewOperationMeter(mp metric.MeterProvider) (*OperationMeter, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	operations, err := meter.Int64Counter("leasex.node.operations",
		metric.WithDescription("Node operations by name and outcome."))
	if err != nil {
		return nil, fmt.Errorf("otel: operations counter: %w", err)
	}
	latency, err := meter.Float64Histogram("leasex.node.operation.duration",
		metric.WithDescription("Time spent applying a node operation."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("otel: operation histogram: %w", err)
	}
	return &OperationMeter{operations: operations, latency: latency}, nil
}

func (m *OperationMeter) ObserveOperation(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", observability.OperationOutcome(err)),
	)
	ctx := context.Background()
	m.operations.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)
}
