package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

type recordingNotifier struct {
	mu      sync.Mutex
	alerts  []*fraud.FraudAlert
	block   chan struct{}
	failErr error
}

func (n *recordingNotifier) Notify(ctx context.Context, alert *fraud.FraudAlert) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	n.alerts = append(n.alerts, alert)
	n.mu.Unlock()
	return n.failErr
}

func (n *recordingNotifier) delivered() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func testAlert() *fraud.FraudAlert {
	return &fraud.FraudAlert{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		AlertType:  fraud.AlertTypeGeneralFraud,
		Severity:   fraud.SeverityMedium,
		Status:     fraud.StatusNew,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestQueue_DeliversEnqueuedAlerts(t *testing.T) {
	downstream := &recordingNotifier{}
	queue := NewQueue(16, downstream, nil, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	}
	queue.Close()

	assert.Equal(t, 5, downstream.delivered())
}

func TestQueue_FullQueueDropsWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	downstream := &recordingNotifier{block: block}
	queue := NewQueue(2, downstream, nil, nil)

	// The drainer is stuck on the first alert; two more fill the buffer.
	require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	require.Eventually(t, func() bool { return queue.Depth() == 0 },
		time.Second, time.Millisecond)
	require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	require.NoError(t, queue.Enqueue(context.Background(), testAlert()))

	err := queue.Enqueue(context.Background(), testAlert())
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	queue.Close()
	assert.Equal(t, 3, downstream.delivered())
}

func TestQueue_CloseFlushesAndRejects(t *testing.T) {
	downstream := &recordingNotifier{}
	queue := NewQueue(16, downstream, nil, nil)

	require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	queue.Close()

	assert.Equal(t, 1, downstream.delivered())

	err := queue.Enqueue(context.Background(), testAlert())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_DeliveryFailureDoesNotStopDraining(t *testing.T) {
	downstream := &recordingNotifier{failErr: assert.AnError}
	queue := NewQueue(16, downstream, nil, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	}
	queue.Close()

	assert.Equal(t, 3, downstream.delivered())
}

func TestQueue_ConcurrentEnqueueAndCloseDoesNotPanic(t *testing.T) {
	downstream := &recordingNotifier{}
	queue := NewQueue(64, downstream, nil, nil)

	var accepted int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := queue.Enqueue(context.Background(), testAlert())
				if err == ErrQueueClosed {
					return
				}
				if err == nil {
					atomic.AddInt64(&accepted, 1)
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	queue.Close()
	wg.Wait()

	// Close flushes the buffer, so every accepted alert is delivered.
	assert.Equal(t, int(atomic.LoadInt64(&accepted)), downstream.delivered())
}

func TestQueue_NilDownstreamDiscards(t *testing.T) {
	queue := NewQueue(4, nil, nil, nil)
	require.NoError(t, queue.Enqueue(context.Background(), testAlert()))
	queue.Close()
}
