package indexer

import (
	"context"
	"log/slog"
	"time"

	"leasex/core/events"
)

const (
	pipelineQueueSize = 1024
	writeTimeout      = 5 * time.Second
)

// Pipeline decouples event recording from the node: Emit only enqueues and
// Run drains the queue into the store.
type Pipeline struct {
	store  *Store
	logger *slog.Logger
	queue  chan events.Event
}

// NewPipeline returns a pipeline writing into store.
func NewPipeline(store *Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:  store,
		logger: logger.With(slog.String("component", "indexer")),
		queue:  make(chan events.Event, pipelineQueueSize),
	}
}

// Emit implements events.Emitter. Events are dropped when the queue is full.
func (p *Pipeline) Emit(evt events.Event) {
	if p == nil || evt == nil {
		return
	}
	select {
	case p.queue <- evt:
	default:
		p.logger.Warn("indexer queue full, dropping event", slog.String("type", evt.EventType()))
	}
}

// Run writes queued events until ctx is cancelled, then flushes whatever is
// still queued.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case evt := <-p.queue:
			p.write(context.Background(), evt)
		}
	}
}

func (p *Pipeline) flush() {
	for {
		select {
		case evt := <-p.queue:
			p.write(context.Background(), evt)
		default:
			return
		}
	}
}

func (p *Pipeline) write(parent context.Context, evt events.Event) {
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	if _, err := p.store.Record(ctx, evt); err != nil {
		p.logger.Error("record event", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}
