package notify

import (
	"context"
	"sync"

	"github.com/aashamedix/booking-platform/pkg/logging"
)

// Worker consumes notification jobs from the queue and dispatches them.
// Multiple workers may run against the same queue.
type Worker struct {
	queue      queueClient
	dispatcher *Dispatcher
	logger     *logging.Logger
	waitSecs   int
	batchSize  int
}

// NewWorker creates a queue consumer for the dispatcher.
func NewWorker(queue queueClient, dispatcher *Dispatcher, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("notify: queue required")
	}
	if dispatcher == nil {
		panic("notify: dispatcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		logger:     logger,
		waitSecs:   10,
		batchSize:  5,
	}
}

// Run consumes until ctx is cancelled. Partially dispatched jobs at
// shutdown are abandoned; notifications are best-effort.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := w.queue.Receive(ctx, w.batchSize, w.waitSecs)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("notification queue receive failed", "error", err)
			continue
		}

		for _, msg := range msgs {
			job, err := decodeJob(msg.Body)
			if err != nil {
				w.logger.Error("dropping undecodable notification job", "error", err, "message_id", msg.ID)
				// Delete so a poison message does not redeliver forever.
				_ = w.queue.Delete(ctx, msg.ReceiptHandle)
				continue
			}

			w.dispatcher.Dispatch(ctx, job)

			if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
				w.logger.Error("failed to delete queue message", "error", err, "message_id", msg.ID)
			}
		}
	}
}

// RunPool starts n workers sharing this worker's queue and dispatcher and
// blocks until all exit.
func (w *Worker) RunPool(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Wait()
}
