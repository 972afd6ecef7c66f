package audit

import (
	"github.com/google/uuid"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
)

// Hooks возвращает пару хуков движка, конвертирующих итог
// диспетчеризации в событие журнала.
func (t *Trail) Hooks() (engine.Hook, engine.Hook) {
	record := func(status string) engine.Hook {
		return func(a action.Action, r engine.Result) {
			t.Log(Event{
				ID:         uuid.New().String(),
				ActionID:   a.ID,
				ActionType: string(a.Type),
				Subtype:    a.Subtype,
				Label:      a.Label(),
				Status:     status,
				ErrorCode:  string(r.ErrorCode),
				Message:    r.Message,
				DurationMs: int64(r.Duration * 1000),
				Timestamp:  r.Timestamp,
			})
		}
	}
	return record("SUCCESS"), record("FAILED")
}
