package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/mapping"
)

// InterlockPublisher рассылает изменение аварийного стопа соседним
// процессам. Присутствует, только когда включён Redis.
type InterlockPublisher interface {
	Publish(ctx context.Context, engaged bool) error
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"emergency_stop": s.exec.EmergencyStopped(),
	})
}

// statusFor отображает мгновенный отказ движка в HTTP-статус.
// Неразрешённый Pending — действие принято в очередь.
func statusFor(r engine.Result) int {
	if r.Success {
		return http.StatusOK
	}
	switch r.ErrorCode {
	case engine.CodeValidation:
		return http.StatusUnprocessableEntity
	case engine.CodeEmergencyStop:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

// handleExecute — прямая отправка действия.
// POST /v1/actions/execute?sync=true
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	act, err := action.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sync := r.URL.Query().Get("sync") == "true"
	if sync {
		res := s.exec.ExecuteMode(r.Context(), act, false).Wait()
		writeJSON(w, statusFor(res), res)
		return
	}

	// Асинхронная задача переживает запрос, поэтому фоновый контекст:
	// контекст запроса умирает вместе с ответом
	p := s.exec.ExecuteMode(context.Background(), act, true)
	if res, ok := p.TryResult(); ok {
		// Мгновенный отказ: валидация, интерлок или полная очередь
		status := statusFor(res)
		if !res.Success && res.ErrorCode == engine.CodeNone {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":    true,
		"action_id": act.ID,
	})
}

type gestureRequest struct {
	GestureID string       `json:"gesture_id"`
	Kind      mapping.Kind `json:"kind,omitempty"`

	// Подтверждение пользователя для действий, требующих его
	Confirmed bool `json:"confirmed,omitempty"`

	Sync bool `json:"sync,omitempty"`
}

// handleGesture — горячий путь: распознанный жест превращается
// в диспетчеризацию привязанного действия.
// POST /v1/gestures
func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GestureID == "" {
		writeError(w, http.StatusBadRequest, "gesture_id is required")
		return
	}
	if req.Kind == "" {
		req.Kind = mapping.KindCustom
	}

	act, enabled, m, found := s.store.Lookup(req.GestureID, req.Kind)
	if !found {
		writeError(w, http.StatusNotFound, "no mapping for gesture "+req.GestureID)
		return
	}
	if !enabled {
		writeError(w, http.StatusConflict, "mapping is disabled")
		return
	}

	// Совещательная проверка подтверждения: движок не блокируется,
	// но API не отправит действие без явного confirmed
	if s.validator.RequiresConfirmation(act) && !req.Confirmed {
		writeJSON(w, http.StatusPreconditionRequired, map[string]interface{}{
			"confirmation_required": true,
			"action":                act.Label(),
		})
		return
	}

	if req.Sync {
		res := s.exec.ExecuteMode(r.Context(), act, false).Wait()
		if res.Success {
			s.store.RecordUsage(m)
		}
		writeJSON(w, statusFor(res), res)
		return
	}

	p := s.exec.ExecuteMode(context.Background(), act, true)
	if res, ok := p.TryResult(); ok {
		status := statusFor(res)
		if !res.Success && res.ErrorCode == engine.CodeNone {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, res)
		return
	}

	// Счётчик использования обновляется по факту успеха
	go func() {
		if res := p.Wait(); res.Success {
			s.store.RecordUsage(m)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":    true,
		"action_id": act.ID,
	})
}

func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	s.exec.EmergencyStopAll()
	s.publishInterlock(r.Context(), true)
	writeJSON(w, http.StatusOK, map[string]bool{"emergency_stop": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.exec.ResumeExecution()
	s.publishInterlock(r.Context(), false)
	writeJSON(w, http.StatusOK, map[string]bool{"emergency_stop": false})
}

func (s *Server) publishInterlock(ctx context.Context, engaged bool) {
	if s.interlock == nil {
		return
	}
	if err := s.interlock.Publish(ctx, engaged); err != nil {
		s.logger.Error("failed to publish interlock state", zap.Error(err))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"emergency_stop": s.exec.EmergencyStopped(),
		"history_size":   s.exec.HistoryLen(),
		"notify_clients": s.hub.Clients(),
	})
}

// handleHistory — последние записи журнала.
// GET /v1/history?limit=50
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.exec.HistoryTail(limit))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.exec.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

type putMappingRequest struct {
	GestureID string        `json:"gesture_id"`
	Kind      mapping.Kind  `json:"kind,omitempty"`
	Action    action.Action `json:"action"`
	Enabled   *bool         `json:"enabled,omitempty"`
}

// handlePutMapping регистрирует привязку. Действие проходит валидацию
// на входе: нерабочая привязка не должна дожить до жеста.
func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	var req putMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GestureID == "" {
		writeError(w, http.StatusBadRequest, "gesture_id is required")
		return
	}
	if req.Kind == "" {
		req.Kind = mapping.KindCustom
	}

	if ok, reason := s.validator.Validate(req.Action); !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid action: "+reason)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	m := s.store.Put(req.GestureID, req.Kind, req.Action, enabled)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func kindParam(r *http.Request) mapping.Kind {
	k := mapping.Kind(r.URL.Query().Get("kind"))
	if k == "" {
		k = mapping.KindCustom
	}
	return k
}

func (s *Server) handleRemoveMapping(w http.ResponseWriter, r *http.Request) {
	gestureID := chi.URLParam(r, "gestureID")
	if !s.store.Remove(gestureID, kindParam(r)) {
		writeError(w, http.StatusNotFound, "mapping not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnableMapping(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gestureID := chi.URLParam(r, "gestureID")
		if err := s.store.SetEnabled(gestureID, kindParam(r), enabled); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
	}
}
