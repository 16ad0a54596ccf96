package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agalitsyn/taskboard/internal/model"
)

// gatedNotifier blocks every delivery until release is closed.
type gatedNotifier struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	delivered []model.TaskEvent
}

func newGatedNotifier() *gatedNotifier {
	return &gatedNotifier{started: make(chan struct{}, 10), release: make(chan struct{})}
}

func (n *gatedNotifier) NotifyTask(ctx context.Context, event model.TaskEvent) error {
	n.started <- struct{}{}
	select {
	case <-n.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, event)
	return nil
}

func (n *gatedNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

func TestQueue_DoesNotWaitForDelivery(t *testing.T) {
	next := newGatedNotifier()
	q := NewQueue(next, 1, lgr.NoOp)

	start := time.Now()
	require.NoError(t, q.NotifyTask(context.Background(), testEvent()))
	<-next.started

	require.NoError(t, q.NotifyTask(context.Background(), testEvent()), "buffered")
	require.NoError(t, q.NotifyTask(context.Background(), testEvent()), "dropped")
	assert.Less(t, time.Since(start), time.Second)

	close(next.release)
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 2, next.count())

	assert.ErrorIs(t, q.NotifyTask(context.Background(), testEvent()), ErrQueueClosed)
	assert.NoError(t, q.Close(context.Background()), "close twice")
}

func TestQueue_CloseDrains(t *testing.T) {
	next := newGatedNotifier()
	close(next.release)
	q := NewQueue(next, DefaultQueueSize, lgr.NoOp)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.NotifyTask(context.Background(), testEvent()))
	}
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, 5, next.count())
}

func TestQueue_CloseTimesOut(t *testing.T) {
	next := newGatedNotifier()
	q := NewQueue(next, DefaultQueueSize, lgr.NoOp)

	require.NoError(t, q.NotifyTask(context.Background(), testEvent()))
	<-next.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	select {
	case <-q.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after close timed out")
	}
	assert.Equal(t, 0, next.count())
}
