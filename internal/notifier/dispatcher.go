package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/pkg/metrics"
)

type OutboxSource interface {
	FetchReady(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Dispatcher drains the outbox in the background. Events that fail to
// publish stay in ready state and are retried on the next poll, so the
// request path never waits on the broker.
type Dispatcher struct {
	source    OutboxSource
	pub       Publisher
	interval  time.Duration
	batch     int
	collector *metrics.Collector
	log       *zap.Logger
	done      chan struct{}
	stopped   chan struct{}
}

// NewDispatcher builds a dispatcher. collector may be nil.
func NewDispatcher(source OutboxSource, pub Publisher, interval time.Duration, batch int, collector *metrics.Collector, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		source:    source,
		pub:       pub,
		interval:  interval,
		batch:     batch,
		collector: collector,
		log:       log,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) Shutdown() {
	close(d.done)
	select {
	case <-d.stopped:
	case <-time.After(10 * time.Second):
		d.log.Warn("outbox dispatcher shutdown timed out")
	}
}

func (d *Dispatcher) run() {
	defer close(d.stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events, err := d.source.FetchReady(ctx, d.batch)
	if err != nil {
		d.log.Error("fetching outbox events", zap.Error(err))
		return
	}
	if d.collector != nil {
		d.collector.OutboxPendingGauge.Set(float64(len(events)))
	}

	for _, event := range events {
		if err := d.pub.Publish(ctx, event); err != nil {
			d.log.Warn("publishing outbox event",
				zap.String("event_id", event.ID.String()),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
			// Leave it ready; the next poll retries.
			continue
		}
		if err := d.source.MarkPublished(ctx, event.ID); err != nil {
			d.log.Error("marking outbox event published",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if d.collector != nil {
			d.collector.OutboxPublishedTotal.Inc()
		}
	}
}
