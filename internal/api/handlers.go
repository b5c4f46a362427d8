// Package api exposes HTTP handlers for the adherence service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goshak24/ScolioFrontend-sub001/internal/auth"
	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
	"github.com/goshak24/ScolioFrontend-sub001/internal/orchestrator"
	"github.com/goshak24/ScolioFrontend-sub001/internal/session"
	"github.com/goshak24/ScolioFrontend-sub001/internal/tracking"
)

// Handler coordinates HTTP requests with per-patient sessions.
type Handler struct {
	sessions *session.Registry
}

// NewHandler builds a Handler.
func NewHandler(sessions *session.Registry) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.reportActivity)
	mux.HandleFunc("/v1/state", h.state)
	mux.HandleFunc("/v1/display/streak-ended", h.streakEnded)
	mux.HandleFunc("/v1/display/badge-ended", h.badgeEnded)
	mux.HandleFunc("/v1/rollover", h.rollover)
	mux.HandleFunc("/v1/brace/start", h.braceStart)
	mux.HandleFunc("/v1/brace/stop", h.braceStop)
	mux.HandleFunc("/v1/walking", h.walking)
	mux.HandleFunc("/v1/recovery/tasks", h.recoveryTasks)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// resolve authorizes the request and resolves the caller's session. It writes
// the error response itself and reports whether the handler may continue.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, method, scope string) (*session.Session, bool) {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return nil, false
	}

	claims, err := auth.Authorize(r.Context(), scope)
	if errors.Is(err, auth.ErrForbidden) {
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return nil, false
	}

	s, err := h.sessions.For(r.Context(), claims.Subject, claims.Raw)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return nil, false
	}
	return s, true
}

func (h *Handler) reportActivity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}

	var req ReportActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	event, err := req.Event(s.Orchestrator.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	res, err := s.Orchestrator.ReportActivity(r.Context(), event)
	writeOutcome(w, event.ID, res, err, s.Orchestrator.Snapshot())
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodGet, auth.ScopeAdherenceRead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Orchestrator.Snapshot())
}

func (h *Handler) streakEnded(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	acknowledged := s.Orchestrator.StreakAnimationEnded()
	writeJSON(w, http.StatusOK, DisplayResponse{Acknowledged: acknowledged, State: s.Orchestrator.Snapshot()})
}

func (h *Handler) badgeEnded(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	acknowledged := s.Orchestrator.BadgeDisplayEnded()
	writeJSON(w, http.StatusOK, DisplayResponse{Acknowledged: acknowledged, State: s.Orchestrator.Snapshot()})
}

func (h *Handler) rollover(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	reset, err := s.RolloverNow(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if reset == nil {
		reset = []string{}
	}
	writeJSON(w, http.StatusOK, RolloverResponse{Date: s.Orchestrator.Today(), Reset: reset})
}

func (h *Handler) braceStart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	if err := s.StartBrace(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) braceStop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	hours, res, err := s.StopBrace(r.Context())
	if errors.Is(err, tracking.ErrTimerNotRunning) {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	if err != nil && res.Outcome == "" {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, statusFor(res.Outcome), BraceStopResponse{
		Hours:            hours,
		ActivityResponse: activityResponse("", res, err, s.Orchestrator.Snapshot()),
	})
}

func (h *Handler) walking(w http.ResponseWriter, r *http.Request) {
	s, ok := h.resolve(w, r, http.MethodPost, auth.ScopeAdherenceWrite)
	if !ok {
		return
	}
	var req WalkingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	total, err := s.AddWalking(r.Context(), req.Minutes)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, WalkingResponse{TotalMinutes: total})
}

func (h *Handler) recoveryTasks(w http.ResponseWriter, r *http.Request) {
	method := r.Method
	scope := auth.ScopeAdherenceRead
	if method == http.MethodPut {
		scope = auth.ScopeAdherenceWrite
	} else {
		method = http.MethodGet
	}
	s, ok := h.resolve(w, r, method, scope)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var req RecoveryTasksRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		if err := s.Recovery.SetTasks(r.Context(), req.Tasks); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
	}

	tasks, err := s.Recovery.Tasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if tasks == nil {
		tasks = []tracking.RecoveryTask{}
	}
	writeJSON(w, http.StatusOK, RecoveryTasksResponse{Tasks: tasks})
}

// ReportActivityRequest is the payload for POST /v1/activities.
type ReportActivityRequest struct {
	Kind   string  `json:"kind"`
	Date   string  `json:"date,omitempty"`
	TaskID string  `json:"task_id,omitempty"`
	Hours  float64 `json:"hours,omitempty"`
}

// Event converts the request into a validated activity event. An omitted date means today.
func (r ReportActivityRequest) Event(today domain.CalendarDate) (domain.ActivityEvent, error) {
	kind, err := domain.ParseActivityKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return domain.ActivityEvent{}, err
	}
	date := today
	if strings.TrimSpace(r.Date) != "" {
		if date, err = domain.ParseCalendarDate(strings.TrimSpace(r.Date)); err != nil {
			return domain.ActivityEvent{}, err
		}
	}
	event := domain.NewActivityEvent(kind, date).WithTask(strings.TrimSpace(r.TaskID)).WithHours(r.Hours)
	if err := event.Validate(); err != nil {
		return domain.ActivityEvent{}, err
	}
	return event, nil
}

// ActivityResponse describes the outcome of one reporting cycle.
type ActivityResponse struct {
	EventID        string             `json:"event_id,omitempty"`
	Outcome        string             `json:"outcome"`
	SuccessMessage string             `json:"success_message,omitempty"`
	Badges         []domain.Badge     `json:"badges,omitempty"`
	Error          string             `json:"error,omitempty"`
	State          orchestrator.State `json:"state"`
}

// BraceStopResponse adds the worn hours to the reported outcome.
type BraceStopResponse struct {
	Hours float64 `json:"hours"`
	ActivityResponse
}

// DisplayResponse acknowledges a UI display event.
type DisplayResponse struct {
	Acknowledged bool               `json:"acknowledged"`
	State        orchestrator.State `json:"state"`
}

// RolloverResponse lists the subsystems reset for date.
type RolloverResponse struct {
	Date  domain.CalendarDate `json:"date"`
	Reset []string            `json:"reset"`
}

// WalkingRequest is the payload for POST /v1/walking.
type WalkingRequest struct {
	Minutes int `json:"minutes"`
}

// WalkingResponse reports today's walking total.
type WalkingResponse struct {
	TotalMinutes int `json:"total_minutes"`
}

// RecoveryTasksRequest replaces today's recovery checklist.
type RecoveryTasksRequest struct {
	Tasks []tracking.RecoveryTask `json:"tasks"`
}

// Validate ensures every task has a unique id.
func (r RecoveryTasksRequest) Validate() error {
	seen := make(map[string]struct{}, len(r.Tasks))
	for _, task := range r.Tasks {
		id := strings.TrimSpace(task.ID)
		if id == "" {
			return errors.New("task id is required")
		}
		if _, dup := seen[id]; dup {
			return errors.New("duplicate task id " + id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// RecoveryTasksResponse lists the checklist.
type RecoveryTasksResponse struct {
	Tasks []tracking.RecoveryTask `json:"tasks"`
}

// writeOutcome maps orchestrator results onto HTTP. Remote and storage failures
// still answer 200 with outcome "failed"; only a busy orchestrator or a
// malformed event is an HTTP error.
func writeOutcome(w http.ResponseWriter, eventID string, res orchestrator.Result, err error, state orchestrator.State) {
	if res.Outcome == orchestrator.OutcomeRejected {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	writeJSON(w, statusFor(res.Outcome), activityResponse(eventID, res, err, state))
}

func statusFor(outcome orchestrator.Outcome) int {
	if outcome == orchestrator.OutcomeBusy {
		return http.StatusConflict
	}
	return http.StatusOK
}

func activityResponse(eventID string, res orchestrator.Result, err error, state orchestrator.State) ActivityResponse {
	resp := ActivityResponse{
		EventID:        eventID,
		Outcome:        string(res.Outcome),
		SuccessMessage: res.SuccessMessage,
		Badges:         res.Badges,
		State:          state,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
