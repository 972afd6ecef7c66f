package engine

import (
	"time"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
)

// Code — закрытая таксономия кодов отказа.
// Пустой код у неуспешного результата — явный класс
// «не поддерживается / не реализовано»: вызывающий не должен
// рассчитывать на непустой код при каждой ошибке.
type Code string

const (
	CodeNone          Code = ""
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeEmergencyStop Code = "EMERGENCY_STOP"
	CodeExecution     Code = "EXECUTION_ERROR"
)

// Result — итог одной диспетчеризации. Инвариант: ровно один Result
// на каждый вызов примитива исполнения, даже при внутренней панике.
type Result struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Duration  float64   `json:"execution_time_seconds"`
	ActionID  string    `json:"action_id"`
	ErrorCode Code      `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newResult(a action.Action, success bool, msg string, code Code, started time.Time) Result {
	return Result{
		Success:   success,
		Message:   msg,
		Duration:  time.Since(started).Seconds(),
		ActionID:  a.ID,
		ErrorCode: code,
		Timestamp: time.Now(),
	}
}

// Pending — обещание результата. Для синхронных и отклонённых вызовов
// возвращается уже разрешённым.
type Pending struct {
	done chan struct{}
	res  Result
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolvedPending(r Result) *Pending {
	p := newPending()
	p.resolve(r)
	return p
}

func (p *Pending) resolve(r Result) {
	p.res = r
	close(p.done)
}

// Wait блокируется до разрешения и возвращает результат.
func (p *Pending) Wait() Result {
	<-p.done
	return p.res
}

// Done позволяет ждать результат в select.
func (p *Pending) Done() <-chan struct{} { return p.done }

// TryResult возвращает результат без блокировки, если он уже готов.
func (p *Pending) TryResult() (Result, bool) {
	select {
	case <-p.done:
		return p.res, true
	default:
		return Result{}, false
	}
}
