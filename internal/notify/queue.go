package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/model"
)

// DefaultQueueSize is the number of events buffered ahead of a slow channel.
const DefaultQueueSize = 100

var ErrQueueClosed = errors.New("notification queue is closed")

type Notifier interface {
	NotifyTask(ctx context.Context, event model.TaskEvent) error
}

// Queue hands events to a single background worker, so callers never wait for
// delivery. Events that do not fit into the buffer are dropped.
type Queue struct {
	next   Notifier
	log    lgr.L
	events chan model.TaskEvent
	done   chan struct{}

	// ctx is given to next and cancelled when Close runs out of time.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewQueue(next Notifier, size int, log lgr.L) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		next:   next,
		log:    log,
		events: make(chan model.TaskEvent, size),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go q.run()
	return q
}

// NotifyTask enqueues event and returns at once. The request context is not
// kept, delivery outlives the request.
func (q *Queue) NotifyTask(_ context.Context, event model.TaskEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
	default:
		q.log.Logf("[WARN] notification queue is full, dropped %s event for task id=%s", event.Kind, event.Task.ID)
	}
	return nil
}

// Close stops accepting events and waits until the buffered ones are
// delivered or ctx is done. Delivery still in flight after that is cancelled.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.events {
		if err := q.next.NotifyTask(q.ctx, event); err != nil {
			q.log.Logf("[WARN] could not deliver %s notification for task id=%s: %v", event.Kind, event.Task.ID, err)
		}
	}
}
