package audit

import "time"

type Event struct {
	ID         string `json:"id"`          // UUID события
	ActionID   string `json:"action_id"`   // Какое действие исполнялось
	ActionType string `json:"action_type"` // pointer / keyboard / application / macro
	Subtype    string `json:"subtype"`
	Label      string `json:"label"` // Человекочитаемое имя действия

	// Результат
	Status     string    `json:"status"` // "SUCCESS" или "FAILED"
	ErrorCode  string    `json:"error_code,omitempty"`
	Message    string    `json:"message"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
