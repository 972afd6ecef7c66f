package engine

import (
	"sync"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
)

// Entry — пара «действие + результат» в журнале исполнения.
type Entry struct {
	Action action.Action `json:"action"`
	Result Result        `json:"result"`
}

// History — ограниченный по размеру журнал с FIFO-вытеснением.
// Владеет им исключительно движок; читатели получают копии.
type History struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1000
	}
	return &History{
		entries: make([]Entry, 0, limit),
		limit:   limit,
	}
}

// Append добавляет запись, вытесняя самые старые сверх лимита.
func (h *History) Append(a action.Action, r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, Entry{Action: a, Result: r})
	if over := len(h.entries) - h.limit; over > 0 {
		// Сдвиг вместо переаллокации: хвост остаётся в том же массиве
		copy(h.entries, h.entries[over:])
		h.entries = h.entries[:h.limit]
	}
}

// Tail возвращает копию последних limit записей (limit<=0 — все).
func (h *History) Tail(limit int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// Len — текущий размер журнала.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear очищает журнал.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}
