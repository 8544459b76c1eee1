// Package otel wires OTLP trace and metric export for leasexd and tags every
// signal with the node's storage backend and dispute economics.
package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultEndpoint = "localhost:4318"
	exportInterval  = 15 * time.Second
)

// Config selects which signals leave the process and where they go.
type Config struct {
	ServiceName string
	Environment string
	Endpoint    string
	Insecure    bool
	Headers     map[string]string
	Traces      bool
	Metrics     bool
	Node        NodeInfo
}

// NodeInfo describes the running node. Zero fields are left off the
// resource.
type NodeInfo struct {
	InstanceID    string
	Backend       string
	Resolver      string
	MinimumVotes  uint64
	VotingPeriod  time.Duration
	ProtectionFee uint64
	VoterReward   uint64
	VotePrice     uint64
}

func (n NodeInfo) attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if n.InstanceID != "" {
		attrs = append(attrs, semconv.ServiceInstanceIDKey.String(n.InstanceID))
	}
	if n.Backend != "" {
		attrs = append(attrs, attribute.String("leasex.storage.backend", n.Backend))
	}
	if n.Resolver != "" {
		attrs = append(attrs, attribute.String("leasex.dispute.resolver", n.Resolver))
	}
	if n.MinimumVotes > 0 {
		attrs = append(attrs, attribute.Int64("leasex.dispute.minimum_votes", int64(n.MinimumVotes)))
	}
	if n.VotingPeriod > 0 {
		attrs = append(attrs, attribute.Int64("leasex.dispute.voting_period_seconds", int64(n.VotingPeriod/time.Second)))
	}
	if n.ProtectionFee > 0 {
		attrs = append(attrs, attribute.Int64("leasex.escrow.protection_fee", int64(n.ProtectionFee)))
	}
	if n.VoterReward > 0 {
		attrs = append(attrs, attribute.Int64("leasex.escrow.voter_reward", int64(n.VoterReward)))
	}
	if n.VotePrice > 0 {
		attrs = append(attrs, attribute.Int64("leasex.escrow.vote_price", int64(n.VotePrice)))
	}
	return attrs
}

// Resource builds the OTel resource shared by every provider.
func Resource(cfg Config) (*resource.Resource, error) {
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return nil, errors.New("otel: service name required")
	}
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(cfg.Environment))
	}
	attrs = append(attrs, cfg.Node.attributes()...)
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("otel: build resource: %w", err)
	}
	return res, nil
}

// Providers holds the installed providers. The meter provider is a no-op
// when metric export is disabled.
type Providers struct {
	meter    metric.MeterProvider
	shutdown []func(context.Context) error
}

// MeterProvider returns the provider node instruments record through.
func (p *Providers) MeterProvider() metric.MeterProvider { return p.meter }

// Shutdown flushes and stops the providers in reverse install order and
// returns the first error.
func (p *Providers) Shutdown(ctx context.Context) error {
	var first error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Init installs the global tracer and meter providers requested by cfg.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	res, err := Resource(cfg)
	if err != nil {
		return nil, err
	}
	p := &Providers{meter: noop.NewMeterProvider()}
	if !cfg.Traces && !cfg.Metrics {
		return p, nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}

	if cfg.Traces {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		p.shutdown = append(p.shutdown, tp.Shutdown)
	}
	if cfg.Metrics {
		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		otel.SetMeterProvider(mp)
		p.meter = mp
		p.shutdown = append(p.shutdown, mp.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	), nil
}

// ParseHeaders splits "key=value,key2=value2" as found in
// OTEL_EXPORTER_OTLP_HEADERS. Malformed pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}
