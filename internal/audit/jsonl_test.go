package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLStorageAppendsOneEventPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")

	s, err := NewJSONLStorage(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.WriteBatch(context.Background(), []Event{event(0), event(1)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Повторное открытие дописывает, не перетирая
	s, err = NewJSONLStorage(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := s.WriteBatch(context.Background(), []Event{event(2)}); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	s.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		ids = append(ids, e.ID)
	}

	want := []string{"0", "1", "2"}
	if len(ids) != len(want) {
		t.Fatalf("got %d lines, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("line %d: id = %q, want %q", i, ids[i], want[i])
		}
	}
}
