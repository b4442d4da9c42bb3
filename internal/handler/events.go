package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bullmarketlab/keymarket/internal/domain"
	"github.com/bullmarketlab/keymarket/internal/service"
)

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler streams committed market events over websocket.
type EventsHandler struct {
	hub    *service.EventHub
	logger *slog.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *service.EventHub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// eventMessage is a single event frame on the stream.
type eventMessage struct {
	TxID       string              `json:"tx_id"`
	Type       string              `json:"type"`
	Timestamp  string              `json:"timestamp"`
	Attributes []attributeResponse `json:"attributes"`
	Transfers  []transferResponse  `json:"transfers"`
}

// Stream handles GET /events. An optional comma-separated types query
// parameter restricts the stream to those event types.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter := parseTypeFilter(r.URL.Query().Get("types"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, events := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	// Drain client frames so close and pong control messages are handled.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			deadline := time.Now().Add(eventWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				// Dropped by the hub for lagging.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber lagging"),
					time.Now().Add(eventWriteTimeout))
				return
			}
			if filter != nil && !filter[ev.Type] {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(buildEventMessage(ev)); err != nil {
				return
			}
		}
	}
}

func parseTypeFilter(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[t] = true
		}
	}
	return filter
}

func buildEventMessage(ev domain.Event) eventMessage {
	return eventMessage{
		TxID:       ev.TxID,
		Type:       ev.Type,
		Timestamp:  ev.Timestamp.UTC().Format(time.RFC3339),
		Attributes: buildAttributeResponses(ev.Attributes),
		Transfers:  buildTransferResponses(ev.Transfers),
	}
}
