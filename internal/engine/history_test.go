package engine

import (
	"strconv"
	"testing"
	"time"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
)

func entry(id string) (action.Action, Result) {
	a := action.New(action.TypePointer, action.PointerClick)
	a.Name = id
	return a, newResult(a, true, "ok", CodeNone, time.Now())
}

func TestHistoryEvictsOldestBeyondLimit(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(entry(strconv.Itoa(i)))
	}

	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}

	// Остаться должны три последние записи в исходном порядке
	got := h.Tail(0)
	for i, want := range []string{"2", "3", "4"} {
		if got[i].Action.Name != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Action.Name, want)
		}
	}
}

func TestHistoryTailLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 5; i++ {
		h.Append(entry(strconv.Itoa(i)))
	}

	got := h.Tail(2)
	if len(got) != 2 {
		t.Fatalf("tail len = %d, want 2", len(got))
	}
	if got[0].Action.Name != "3" || got[1].Action.Name != "4" {
		t.Errorf("tail = [%s %s], want [3 4]", got[0].Action.Name, got[1].Action.Name)
	}

	// limit больше размера — все записи
	if got := h.Tail(100); len(got) != 5 {
		t.Errorf("tail(100) len = %d, want 5", len(got))
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(10)
	h.Append(entry("x"))
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", h.Len())
	}
	if got := h.Tail(0); len(got) != 0 {
		t.Errorf("tail after clear = %d entries, want 0", len(got))
	}
}
