package httpapi

import (
	"net/http"

	"qms/clinic-queue/internal/hub"
	"qms/clinic-queue/internal/log"
	"qms/clinic-queue/internal/models"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

const livePrefix = "/display/live"

// liveHandler streams ticket events to display screens over SockJS. Clients
// follow the current queue date until they subscribe to a fixed date;
// subscribing without a date goes back to following today.
func (h *Handler) liveHandler(events *hub.Hub) http.Handler {
	return sockjs.NewHandler(livePrefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{
			ID:           uuid.NewString(),
			Send:         make(chan []byte, 16),
			Subscription: hub.Subscription{Today: true},
		}
		events.Register(client)
		defer events.Unregister(client)

		logger := log.FromContext(session.Request().Context()).WithField("client_id", client.ID)
		logger.Debug("display connected")

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				logger.Debug("display disconnected")
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				events.UpdateSubscription(client, hub.Subscription{Paused: true})
				continue
			}
			if parsed.Date == "" {
				events.UpdateSubscription(client, hub.Subscription{Today: true})
				continue
			}
			if _, err := models.ParseDate(parsed.Date); err != nil {
				_ = session.Close(4000, "invalid date")
				return
			}
			events.UpdateSubscription(client, hub.Subscription{Date: parsed.Date})
		}
	})
}
