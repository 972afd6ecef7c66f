// Package mapping — слой привязок «жест → действие».
// Хранилище в памяти: персистентность привязок не входит
// в зону ответственности движка.
package mapping

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
)

// Kind — происхождение жеста: встроенный или обученный пользователем.
type Kind string

const (
	KindPredefined Kind = "predefined"
	KindCustom     Kind = "custom"
)

// Mapping — привязка распознанного жеста к действию плюс счётчики
// использования.
type Mapping struct {
	ID        string        `json:"id"`
	GestureID string        `json:"gesture_id"`
	Kind      Kind          `json:"kind"`
	Action    action.Action `json:"action"`
	Enabled   bool          `json:"enabled"`
	UseCount  int           `json:"use_count"`
	LastUsed  time.Time     `json:"last_used,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type key struct {
	gestureID string
	kind      Kind
}

// Store — потокобезопасный реестр привязок. Горячий путь — Lookup
// из обработчика жестов, поэтому RWMutex.
type Store struct {
	mu     sync.RWMutex
	byKey  map[key]*Mapping
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{
		byKey:  make(map[key]*Mapping),
		logger: logger.Named("mapping"),
	}
}

// Put регистрирует или замещает привязку для пары (жест, вид).
func (s *Store) Put(gestureID string, kind Kind, act action.Action, enabled bool) *Mapping {
	m := &Mapping{
		ID:        uuid.New().String(),
		GestureID: gestureID,
		Kind:      kind,
		Action:    act,
		Enabled:   enabled,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.byKey[key{gestureID, kind}] = m
	s.mu.Unlock()

	s.logger.Info("mapping registered",
		zap.String("gesture", gestureID),
		zap.String("kind", string(kind)),
		zap.String("action", act.Label()),
	)
	return m
}

// Lookup возвращает действие для распознанного жеста.
// Второе значение — флаг enabled, третье — хэндл для RecordUsage.
func (s *Store) Lookup(gestureID string, kind Kind) (action.Action, bool, *Mapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byKey[key{gestureID, kind}]
	if !ok {
		return action.Action{}, false, nil, false
	}
	return m.Action, m.Enabled, m, true
}

// RecordUsage инкрементирует счётчики. Вызывается вызывающим слоем
// после успешной диспетчеризации, не движком.
func (s *Store) RecordUsage(m *Mapping) {
	if m == nil {
		return
	}
	s.mu.Lock()
	m.UseCount++
	m.LastUsed = time.Now()
	s.mu.Unlock()
}

// SetEnabled переключает привязку без удаления.
func (s *Store) SetEnabled(gestureID string, kind Kind, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byKey[key{gestureID, kind}]
	if !ok {
		return fmt.Errorf("mapping not found: %s/%s", gestureID, kind)
	}
	m.Enabled = enabled
	return nil
}

// Remove удаляет привязку.
func (s *Store) Remove(gestureID string, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{gestureID, kind}
	if _, ok := s.byKey[k]; !ok {
		return false
	}
	delete(s.byKey, k)
	return true
}

// List — снимок всех привязок для выдачи наружу.
func (s *Store) List() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, len(s.byKey))
	for _, m := range s.byKey {
		out = append(out, *m)
	}
	return out
}
