package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Rental-Listing-Facets/pkg/metrics"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Publisher is the part of kafka.Producer the collector needs.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers FilterEvents and publishes them in batches from a single
// goroutine. Track never blocks; events beyond the buffer are dropped.
type Collector struct {
	publisher     Publisher
	eventCh       chan FilterEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewCollector creates a Collector. m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan FilterEvent, bufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until Close is called; ctx only
// bounds individual publish calls.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

// Track enqueues event without blocking.
func (c *Collector) Track(event FilterEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case c.eventCh <- event:
	default:
		if c.metrics != nil {
			c.metrics.EventsDroppedTotal.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops accepting events, publishes what is buffered and waits for
// the loop to exit. Track must not be called after Close.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.eventCh) })
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("failed to publish filter events", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(drainCtx)
				cancel()
				return
			}
			batch = append(batch, kafka.Event{Key: event.SessionID, Value: event})
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}
