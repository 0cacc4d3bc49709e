package workers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

type recordingStore struct {
	mu     sync.Mutex
	events []models.ClickEvent
	err    error
}

func (s *recordingStore) InsertClickEvent(_ context.Context, ev models.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestClickRecorderDrainsQueue(t *testing.T) {
	store := &recordingStore{}
	rec := NewClickRecorder(64, store)
	rec.Start(3)

	const n = 50
	for i := 0; i < n; i++ {
		if !rec.Enqueue(models.ClickEvent{TrackingLinkID: uuid.New()}) {
			t.Fatalf("enqueue %d rejected with room in the queue", i)
		}
	}
	rec.Shutdown()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != n {
		t.Fatalf("persisted %d events, want %d", len(store.events), n)
	}
}

func TestClickRecorderDropsWhenFull(t *testing.T) {
	// No workers started: the queue fills and stays full.
	rec := NewClickRecorder(1, &recordingStore{})

	if !rec.Enqueue(models.ClickEvent{}) {
		t.Fatal("first enqueue should fit")
	}
	if rec.Enqueue(models.ClickEvent{}) {
		t.Fatal("second enqueue should be dropped, not block")
	}
}

func TestClickRecorderSurvivesStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("connection refused")}
	rec := NewClickRecorder(8, store)
	rec.Start(1)

	for i := 0; i < 5; i++ {
		rec.Enqueue(models.ClickEvent{})
	}
	// Shutdown returning at all proves the workers kept draining past errors.
	rec.Shutdown()
}
