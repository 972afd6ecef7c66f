package audit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// memStorage копит события в памяти; по желанию отказывает
// первые failFirst вызовов.
type memStorage struct {
	mu        sync.Mutex
	events    []Event
	batches   int
	failFirst int
}

func (m *memStorage) WriteBatch(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFirst > 0 {
		m.failFirst--
		return errors.New("storage temporarily down")
	}
	m.batches++
	m.events = append(m.events, events...)
	return nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func event(i int) Event {
	return Event{
		ID:       strconv.Itoa(i),
		ActionID: "act-" + strconv.Itoa(i),
		Status:   "SUCCESS",
	}
}

func TestTrailFlushesEverythingOnStop(t *testing.T) {
	storage := &memStorage{}
	trail := NewTrail(storage, Config{FlushInterval: time.Hour}, zap.NewNop())
	trail.Start()

	const n = 25
	for i := 0; i < n; i++ {
		trail.Log(event(i))
	}
	trail.Stop()

	// Drain-паттерн: штатная остановка не теряет события
	if storage.count() != n {
		t.Fatalf("stored %d events, want %d", storage.count(), n)
	}
	for i, e := range storage.events {
		if e.ID != strconv.Itoa(i) {
			t.Fatalf("event %d out of order: id=%s", i, e.ID)
		}
	}
}

func TestTrailBatchesBySize(t *testing.T) {
	storage := &memStorage{}
	trail := NewTrail(storage, Config{BatchSize: 10, FlushInterval: time.Hour}, zap.NewNop())
	trail.Start()

	for i := 0; i < 30; i++ {
		trail.Log(event(i))
	}
	trail.Stop()

	if storage.count() != 30 {
		t.Fatalf("stored %d events, want 30", storage.count())
	}
	// Три полных пачки, без финального недобора
	if storage.batches != 3 {
		t.Errorf("batches = %d, want 3", storage.batches)
	}
}

func TestTrailFlushesByTimer(t *testing.T) {
	storage := &memStorage{}
	trail := NewTrail(storage, Config{BatchSize: 1000, FlushInterval: 20 * time.Millisecond}, zap.NewNop())
	trail.Start()
	defer trail.Stop()

	trail.Log(event(0))

	deadline := time.Now().Add(2 * time.Second)
	for storage.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timer flush never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTrailRetriesTransientStorageFailure(t *testing.T) {
	// Два отказа подряд поглощаются ретраями внутри одной записи
	storage := &memStorage{failFirst: 2}
	trail := NewTrail(storage, Config{FlushInterval: time.Hour}, zap.NewNop())
	trail.Start()

	trail.Log(event(0))
	trail.Stop()

	if storage.count() != 1 {
		t.Fatalf("stored %d events, want 1 after retries", storage.count())
	}
}

func TestTrailDropsAfterStop(t *testing.T) {
	storage := &memStorage{}
	trail := NewTrail(storage, Config{}, zap.NewNop())
	trail.Start()
	trail.Stop()

	// Log после Stop не паникует и не пишет
	trail.Log(event(99))
	if storage.count() != 0 {
		t.Errorf("stored %d events, want 0", storage.count())
	}
}

func TestTrailTimestampsEvents(t *testing.T) {
	storage := &memStorage{}
	trail := NewTrail(storage, Config{}, zap.NewNop())
	trail.Start()

	trail.Log(Event{ID: "x", Status: "FAILED"})
	trail.Stop()

	if storage.count() != 1 {
		t.Fatal("event lost")
	}
	if storage.events[0].Timestamp.IsZero() {
		t.Error("missing timestamp must be filled in")
	}
}
