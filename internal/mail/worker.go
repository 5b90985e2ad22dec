package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// pollTimeout bounds each blocking dequeue so workers notice shutdown.
const pollTimeout = 5 * time.Second

// Source yields queued tasks.
type Source interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
}

// Worker delivers queued tasks with a fixed number of goroutines.
// Delivery is best-effort: failed tasks are logged and dropped.
type Worker struct {
	source  Source
	sender  Sender
	workers int
	backoff time.Duration
}

// NewWorker creates a worker pool of n goroutines.
func NewWorker(source Source, sender Sender, n int) *Worker {
	if n < 1 {
		n = 1
	}
	return &Worker{source: source, sender: sender, workers: n, backoff: time.Second}
}

// Run consumes tasks until ctx is cancelled, then waits for in-flight
// deliveries to finish.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("mail worker started", "workers", w.workers)

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()

	slog.Info("mail worker stopped")
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.source.Dequeue(ctx, pollTimeout)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("mail dequeue failed", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
			continue
		}

		w.deliver(ctx, id, task)
	}
}

// deliver renders and sends one task.
func (w *Worker) deliver(ctx context.Context, id int, t *Task) {
	msg, err := Render(*t)
	if err != nil {
		slog.Error("mail render failed", "worker", id, "task", t.ID, "error", err)
		return
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		slog.Error("mail send failed", "worker", id, "task", t.ID, "kind", t.Kind, "to", t.Email, "error", err)
		return
	}
	slog.Info("mail sent", "worker", id, "task", t.ID, "kind", t.Kind, "to", t.Email)
}
