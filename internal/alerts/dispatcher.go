package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"testdrive/internal/platform/metrics"
)

// Publisher delivers one alert to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Dispatcher decouples alert delivery from position processing: Enqueue never
// blocks the caller, and the worker publishes from its own context so an
// alert survives the originating request being cancelled or answered.
// Delivery is best-effort; a failed publish is logged and dropped, never
// retried here and never surfaced to the position-processing caller.
type Dispatcher struct {
	inbox     chan Alert
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records enqueue/publish/drop counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher builds a dispatcher with a bounded inbox.
func NewDispatcher(publisher Publisher, queueSize int, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inbox:     make(chan Alert, queueSize),
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands an alert to the worker without blocking. When the inbox is
// full the alert is dropped and counted; position processing must not stall
// on a slow broker.
func (d *Dispatcher) Enqueue(alert Alert) bool {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now()
	}

	select {
	case d.inbox <- alert:
		if d.metrics != nil {
			d.metrics.AlertsEnqueued.Inc()
		}
		return true
	default:
		if d.metrics != nil {
			d.metrics.AlertsDropped.Inc()
		}
		d.logger.Warn("alert queue full, dropping alert",
			"vehicle_id", alert.VehicleID,
			"classification", alert.Classification,
		)
		return false
	}
}

// Run consumes the inbox until ctx is cancelled, then drains whatever is
// already buffered so accepted alerts still get a delivery attempt during
// shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		case alert := <-d.inbox:
			d.publish(alert)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case alert := <-d.inbox:
			d.publish(alert)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(alert Alert) {
	// Detached from the request context: the caller's response has usually
	// already been written by now.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.publisher.Publish(ctx, alert); err != nil {
		if d.metrics != nil {
			d.metrics.AlertsDropped.Inc()
		}
		d.logger.Error("failed to publish alert",
			"alert_id", alert.ID,
			"vehicle_id", alert.VehicleID,
			"error", err,
		)
		return
	}
	if d.metrics != nil {
		d.metrics.AlertsPublished.Inc()
	}
}
