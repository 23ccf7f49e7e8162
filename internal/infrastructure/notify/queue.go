package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
	"github.com/davidleathers/credential-fraud-engine/internal/metrics"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

// Notifier delivers a persisted alert to a downstream channel (webhook,
// message bus, case-management system).
type Notifier interface {
	Notify(ctx context.Context, alert *fraud.FraudAlert) error
}

// deliveryTimeout bounds one downstream delivery attempt.
const deliveryTimeout = 5 * time.Second

// Queue is a bounded, channel-backed alert notification queue. Enqueue
// never blocks the evaluation path: when the queue is full the alert is
// dropped and counted. A background drainer delivers alerts one at a
// time to the downstream notifier.
type Queue struct {
	ch       chan *fraud.FraudAlert
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Registry

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	drained chan struct{}
}

var _ detection.AlertNotifier = (*Queue)(nil)

// NewQueue starts a queue of the given capacity with its drainer running.
func NewQueue(size int, notifier Notifier, logger *slog.Logger, m *metrics.Registry) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		ch:       make(chan *fraud.FraudAlert, size),
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		done:     make(chan struct{}),
		drained:  make(chan struct{}),
	}
	go q.drain()
	return q
}

// Enqueue hands an alert to the delivery pipeline. It returns an error
// only when the queue is full or closed; the alert itself is already
// durable by the time this is called.
func (q *Queue) Enqueue(ctx context.Context, alert *fraud.FraudAlert) error {
	// The read lock excludes Close: a send observed here happens before
	// the closed flag is set, so the drainer's final flush will see it.
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- alert:
		if q.metrics != nil {
			q.metrics.RecordNotifyEnqueued(ctx)
		}
		return nil
	default:
		if q.metrics != nil {
			q.metrics.RecordNotifyDropped(ctx)
		}
		return ErrQueueFull
	}
}

// Depth reports how many alerts are waiting for delivery.
func (q *Queue) Depth() int {
	return len(q.ch)
}

// Close stops accepting alerts and waits for the queued ones to be
// delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	q.mu.Unlock()
	<-q.drained
}

// drain delivers alerts until Close signals done, then flushes whatever
// is still buffered. The data channel is never closed so a concurrent
// Enqueue can never panic on it.
func (q *Queue) drain() {
	defer close(q.drained)
	for {
		select {
		case alert := <-q.ch:
			q.deliver(alert)
		case <-q.done:
			for {
				select {
				case alert := <-q.ch:
					q.deliver(alert)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) deliver(alert *fraud.FraudAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if q.metrics != nil {
		defer q.metrics.RecordNotifyDelivered(ctx)
	}

	if q.notifier == nil {
		return
	}
	if err := q.notifier.Notify(ctx, alert); err != nil && q.logger != nil {
		q.logger.ErrorContext(ctx, "alert notification failed",
			slog.String("alert_id", alert.ID.String()),
			slog.String("merchant_id", alert.MerchantID.String()),
			slog.String("error", err.Error()),
		)
	}
}
