package httpapi

import (
	"net/http"

	"qms/clinic-queue/internal/models"

	"github.com/samber/lo"
)

type kioskResponse struct {
	CurrentQueue   *int   `json:"current_queue"`
	WaitingCount   int    `json:"waiting_count"`
	NewQueueNumber *int   `json:"new_queue_number,omitempty"`
	Success        string `json:"success,omitempty"`
}

type displayResponse struct {
	CurrentQueue           *int   `json:"current_queue"`
	WaitingQueues          []int  `json:"waiting_queues"`
	LastUpdated            string `json:"last_updated"`
	RefreshIntervalSeconds int    `json:"refresh_interval_seconds"`
}

func (h *Handler) handleKiosk(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "page not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.writeKiosk(w, r, http.StatusOK, kioskResponse{})
	case http.MethodPost:
		ticket, err := h.queue.Issue(r.Context(), h.queue.Today())
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		number := ticket.Number
		h.writeKiosk(w, r, http.StatusCreated, kioskResponse{
			NewQueueNumber: &number,
			Success:        "Your queue number has been generated!",
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) writeKiosk(w http.ResponseWriter, r *http.Request, status int, resp kioskResponse) {
	today := h.queue.Today()
	current, ok, err := h.queue.CurrentlyCalled(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	waiting, err := h.queue.WaitingList(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp.CurrentQueue = numberOf(current, ok)
	resp.WaitingCount = len(waiting)
	writeJSON(w, status, resp)
}

func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	today := h.queue.Today()
	current, ok, err := h.queue.CurrentlyCalled(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	waiting, err := h.queue.WaitingList(r.Context(), today)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, displayResponse{
		CurrentQueue:           numberOf(current, ok),
		WaitingQueues:          ticketNumbers(waiting),
		LastUpdated:            h.queue.Now().Format("15:04:05"),
		RefreshIntervalSeconds: displayRefreshSeconds,
	})
}

func numberOf(ticket models.Ticket, ok bool) *int {
	if !ok {
		return nil
	}
	number := ticket.Number
	return &number
}

func ticketNumbers(tickets []models.Ticket) []int {
	return lo.Map(tickets, func(ticket models.Ticket, _ int) int {
		return ticket.Number
	})
}
