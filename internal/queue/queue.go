// Package queue holds the process-local job queue: an unbounded FIFO with a
// single consumer. It is deliberately not safe for multi-process deployment;
// the recovery scan assumes exactly one runner instance.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/you/tg-faceswap/internal/store"
)

// Queue is an in-memory unbounded FIFO of jobs. Enqueue never blocks;
// Dequeue blocks until an item arrives or the context is done.
type Queue struct {
	mu    sync.Mutex
	items []store.Job
	wake  chan struct{}
}

func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(j store.Job) {
	q.mu.Lock()
	q.items = append(q.items, j)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Dequeue(ctx context.Context) (store.Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			j := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return j, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return store.Job{}, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// LoadPending repopulates the queue from the store, oldest first. This is the
// sole recovery path for jobs that were queued but never started before a
// prior shutdown; jobs caught mid-processing by a crash are not recovered.
func (q *Queue) LoadPending(ctx context.Context, s store.Store) (int, error) {
	jobs, err := s.ListPendingJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending jobs: %w", err)
	}
	for _, j := range jobs {
		q.Enqueue(j)
		log.Info().Int64("job_id", j.ID).Int64("user_id", j.UserID).Msg("pending job loaded")
	}
	return len(jobs), nil
}
