package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/trackwell/attribution-service/internal/models"
)

// ClickEventStore persists one audit row per click.
type ClickEventStore interface {
	InsertClickEvent(ctx context.Context, ev models.ClickEvent) error
}

// ClickRecorder drains click audit events onto the store from a pool of
// workers, keeping the redirect path free of the extra insert. The audit log
// is advisory: a full queue drops the event (the click itself was already
// counted atomically on the link), and a failed insert is logged, not retried.
type ClickRecorder struct {
	events chan models.ClickEvent
	store  ClickEventStore
	wg     sync.WaitGroup
}

func NewClickRecorder(queueSize int, store ClickEventStore) *ClickRecorder {
	return &ClickRecorder{
		events: make(chan models.ClickEvent, queueSize),
		store:  store,
	}
}

// Start launches workerCount drain goroutines.
func (r *ClickRecorder) Start(workerCount int) {
	log.Printf("starting %d click audit worker(s)", workerCount)
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
}

func (r *ClickRecorder) worker(id int) {
	defer r.wg.Done()
	for ev := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.InsertClickEvent(ctx, ev); err != nil {
			log.Printf("[click worker %d] insert click event: %v", id, err)
		}
		cancel()
	}
}

// Enqueue hands an event to the pool without blocking the request path.
// Reports whether the event was accepted.
func (r *ClickRecorder) Enqueue(ev models.ClickEvent) bool {
	select {
	case r.events <- ev:
		return true
	default:
		return false
	}
}

// Shutdown stops intake and waits for queued events to drain.
func (r *ClickRecorder) Shutdown() {
	close(r.events)
	r.wg.Wait()
}
