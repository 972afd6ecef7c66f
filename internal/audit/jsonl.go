package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLStorage пишет события в локальный append-only файл,
// по событию на строку. Дефолтное хранилище: движку не нужна БД,
// чтобы вести журнал действий.
type JSONLStorage struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSONLStorage(path string) (*JSONLStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &JSONLStorage{file: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONLStorage) WriteBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if err := s.enc.Encode(e); err != nil {
			return fmt.Errorf("append audit event: %w", err)
		}
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
