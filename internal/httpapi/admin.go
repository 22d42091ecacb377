package httpapi

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/queue"
	"qms/clinic-queue/internal/store"
)

type adminQueueResponse struct {
	CurrentQueue    *models.Ticket  `json:"current_queue"`
	WaitingQueues   []models.Ticket `json:"waiting_queues"`
	CompletedQueues []models.Ticket `json:"completed_queues"`
	TodayTotal      int             `json:"today_total"`
	Success         string          `json:"success,omitempty"`
}

type queueActionRequest struct {
	Action string `json:"action"`
}

type reportResponse struct {
	Filter string      `json:"filter"`
	Date   string      `json:"date"`
	Stats  interface{} `json:"stats"`
}

var actionMessages = map[string][2]string{
	store.ActionCallNext:        {"Next queue called successfully!", "No tickets waiting."},
	store.ActionCompleteCurrent: {"Queue completed successfully!", "No ticket is currently called."},
}

func (h *Handler) handleAdminQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeAdminQueue(w, r, "")
	case http.MethodPatch:
		staff, ok := staffFromContext(r.Context())
		if !ok {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		action, ok := decodeAction(w, r)
		if !ok {
			return
		}
		_, moved, err := h.queue.Dispatch(r.Context(), action, h.queue.Today(), staff.StaffID)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		messages := actionMessages[action]
		message := messages[0]
		if !moved {
			message = messages[1]
		}
		h.writeAdminQueue(w, r, message)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) writeAdminQueue(w http.ResponseWriter, r *http.Request, success string) {
	today := h.queue.Today()
	resp := adminQueueResponse{Success: success}

	current, ok, err := h.queue.CurrentlyCalled(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if ok {
		resp.CurrentQueue = &current
	}
	if resp.WaitingQueues, err = h.queue.WaitingList(r.Context(), today); err != nil {
		writeFailure(w, r, err)
		return
	}
	if resp.CompletedQueues, err = h.queue.CompletedList(r.Context(), today); err != nil {
		writeFailure(w, r, err)
		return
	}
	summary, err := h.queue.DailySummary(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp.TodayTotal = summary.Total
	if resp.WaitingQueues == nil {
		resp.WaitingQueues = []models.Ticket{}
	}
	if resp.CompletedQueues == nil {
		resp.CompletedQueues = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeAction reads the action from a JSON body or a form body.
func decodeAction(w http.ResponseWriter, r *http.Request) (string, bool) {
	var action string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req queueActionRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return "", false
		}
		action = req.Action
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "invalid form payload")
			return "", false
		}
		action = r.Form.Get("action")
	}

	action = strings.TrimSpace(action)
	if _, ok := actionMessages[action]; !ok {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_action", "action must be call_next or complete_current")
		return "", false
	}
	return action, true
}

func (h *Handler) handleAdminReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	filter := strings.TrimSpace(query.Get("filter"))
	if filter == "" {
		filter = queue.FilterDaily
	}
	date := h.queue.Today()
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	stats, err := h.queue.Report(r.Context(), filter, date)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Filter: filter,
		Date:   models.FormatDate(date),
		Stats:  stats,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	Staff     models.Staff `json:"staff"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	session, staff, err := h.staff.Login(r.Context(), req.Email, req.Password, h.sessionTTL)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
		Staff:     staff,
	})
}
