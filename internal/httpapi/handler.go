package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"qms/clinic-queue/internal/hub"
	"qms/clinic-queue/internal/log"
	"qms/clinic-queue/internal/queue"
	"qms/clinic-queue/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const displayRefreshSeconds = 5

type Handler struct {
	queue      *queue.Service
	staff      store.StaffStore
	sessionTTL time.Duration
	limiter    *RateLimiter
	events     *hub.Hub
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Options struct {
	SessionTTL time.Duration
	RateLimit  RateLimitConfig
	// Events enables the live display stream when set.
	Events     *hub.Hub
}

func NewHandler(svc *queue.Service, staff store.StaffStore, options Options) *Handler {
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{
		queue:      svc,
		staff:      staff,
		sessionTTL: ttl,
		limiter:    NewRateLimiter(options.RateLimit),
		events:     options.Events,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", h.limiter.Middleware(http.HandlerFunc(h.handleKiosk)))
	mux.HandleFunc("/display", h.handleDisplay)
	mux.HandleFunc("/health-check", h.handleHealth)
	mux.Handle("/login", h.limiter.Middleware(http.HandlerFunc(h.handleLogin)))
	mux.HandleFunc("/admin/queue", h.handleAdminQueue)
	mux.HandleFunc("/admin/reports", h.handleAdminReports)
	mux.Handle("/metrics", promhttp.Handler())
	if h.events != nil {
		mux.Handle(livePrefix+"/", h.liveHandler(h.events))
	}
	return mux
}

// Handler returns the routes wrapped in request logging and staff
// authentication.
func (h *Handler) Handler() http.Handler {
	return LoggingMiddleware(AuthMiddleware(h.staff, h.Routes()))
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: h.queue.Now()})
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrUnknownAction):
		return http.StatusBadRequest, "invalid_action", "action must be call_next or complete_current"
	case errors.Is(err, queue.ErrUnknownFilter):
		return http.StatusBadRequest, "invalid_filter", "filter must be daily or monthly"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

// writeFailure logs err on the request entry and writes the mapped error.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
