package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"github.com/vanpelt/catnip-pty/internal/logger"
	"github.com/vanpelt/catnip-pty/internal/metrics"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// HeartbeatEvent keeps idle SSE connections open.
const HeartbeatEvent models.SessionEventType = "heartbeat"

const (
	defaultHeartbeat  = 30 * time.Second
	clientBuffer      = 100
	clientGracePeriod = 2 * time.Second
)

type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
	Uptime    int64 `json:"uptime"`
}

// SSEMessage is one server-sent event.
type SSEMessage struct {
	Event     models.SessionEvent `json:"event"`
	Timestamp int64               `json:"timestamp"`
	ID        string              `json:"id"`
}

// EventsHandler fans PTY lifecycle events out to SSE clients.
type EventsHandler struct {
	service            *services.PTYService
	clients            map[string]chan SSEMessage
	clientsMux         sync.RWMutex
	clientConnectTimes map[string]time.Time
	startTime          time.Time
	heartbeat          time.Duration
}

// NewEventsHandler creates the handler and subscribes it to service events.
func NewEventsHandler(service *services.PTYService) *EventsHandler {
	h := &EventsHandler{
		service:            service,
		clients:            make(map[string]chan SSEMessage),
		clientConnectTimes: make(map[string]time.Time),
		startTime:          time.Now(),
		heartbeat:          defaultHeartbeat,
	}
	if service != nil {
		service.SetEventListener(h.Publish)
	}
	return h
}

// HandleSSE streams PTY lifecycle events.
// @Summary Server-Sent Events endpoint for PTY lifecycle events
// @Description On connect the client receives a heartbeat and one pty:created event per live session, then events as they happen.
// @Description
// @Description - **pty:created**: `pid`, `shell`, `cols`, `rows`
// @Description - **pty:resized**: `cols`, `rows`
// @Description - **pty:exited**: `pid`, `exitCode`
// @Description - **pty:closed**: no payload
// @Description - **heartbeat**: `timestamp`, `uptime`
// @Tags events
// @Produce text/event-stream
// @Success 200 {object} SSEMessage
// @Failure 400 {object} ErrorResponse
// @Router /v1/events [get]
func (h *EventsHandler) HandleSSE(c *fiber.Ctx) error {
	if ah := c.Get("Accept"); ah != "" && !strings.Contains(ah, "text/event-stream") && !strings.Contains(ah, "*/*") {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "This endpoint only accepts Server-Sent Events (text/event-stream)",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	ch := make(chan SSEMessage, clientBuffer)
	h.addClient(clientID, ch)
	logger.Infof("SSE client connected: %s from %s", clientID, c.IP())

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.removeClient(clientID)

		send := func(msg SSEMessage) bool {
			if msg.Event.Type == "" {
				return true
			}
			b, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("Failed to encode event %s: %v", msg.Event.Type, err)
				return true
			}
			if _, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", msg.ID, b); err != nil {
				return false
			}
			return w.Flush() == nil
		}

		for _, msg := range h.initialState() {
			if !send(msg) {
				return
			}
		}

		tick := time.NewTicker(h.heartbeat)
		defer tick.Stop()

		for {
			select {
			case msg, ok := <-ch:
				if !ok || !send(msg) {
					return
				}
			case <-tick.C:
				if !send(h.makeHeartbeat()) {
					return
				}
			}
		}
	}))

	return nil
}

// Publish broadcasts a lifecycle event. It never blocks.
func (h *EventsHandler) Publish(event models.SessionEvent) {
	h.broadcastEvent(event)
}

func (h *EventsHandler) initialState() []SSEMessage {
	msgs := []SSEMessage{h.makeHeartbeat()}
	if h.service == nil {
		return msgs
	}
	for _, info := range h.service.ListSessions() {
		if !info.Running {
			continue
		}
		msgs = append(msgs, newSSEMessage(models.SessionEvent{
			Type:      models.SessionCreatedEvent,
			SessionID: info.ID,
			Payload: models.SessionCreatedPayload{
				PID:   info.PID,
				Shell: info.Shell,
				Cols:  info.Cols,
				Rows:  info.Rows,
			},
		}))
	}
	return msgs
}

func (h *EventsHandler) addClient(id string, ch chan SSEMessage) {
	h.clientsMux.Lock()
	h.clients[id] = ch
	h.clientConnectTimes[id] = time.Now()
	h.clientsMux.Unlock()

	metrics.EventSubscribers.Inc()
	logger.Debugf("Added event client %s", id)
}

func (h *EventsHandler) removeClient(id string) {
	h.clientsMux.Lock()
	ch, ok := h.clients[id]
	if ok {
		close(ch)
		delete(h.clients, id)
	}
	delete(h.clientConnectTimes, id)
	h.clientsMux.Unlock()

	if ok {
		metrics.EventSubscribers.Dec()
		logger.Debugf("Removed event client %s", id)
	}
}

func (h *EventsHandler) makeHeartbeat() SSEMessage {
	return newSSEMessage(models.SessionEvent{
		Type: HeartbeatEvent,
		Payload: HeartbeatPayload{
			Timestamp: time.Now().UnixMilli(),
			Uptime:    time.Since(h.startTime).Milliseconds(),
		},
	})
}

func newSSEMessage(event models.SessionEvent) SSEMessage {
	return SSEMessage{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
		ID:        uuid.New().String(),
	}
}

func (h *EventsHandler) broadcastEvent(event models.SessionEvent) {
	if event.Type == "" {
		logger.Warnf("Attempting to broadcast event with empty type")
		return
	}

	message := newSSEMessage(event)

	h.clientsMux.RLock()
	var clientsToRemove []string
	for clientID, clientChan := range h.clients {
		select {
		case clientChan <- message:
		default:
			// Slow clients get a short grace period after connecting
			// before they are dropped.
			if connectTime, ok := h.clientConnectTimes[clientID]; ok && time.Since(connectTime) < clientGracePeriod {
				logger.Debugf("Client %s in grace period, not removing", clientID)
				continue
			}
			clientsToRemove = append(clientsToRemove, clientID)
		}
	}
	h.clientsMux.RUnlock()

	for _, clientID := range clientsToRemove {
		h.removeClient(clientID)
	}
}

// Stop disconnects every client.
func (h *EventsHandler) Stop() {
	logger.Info("Stopping events handler...")
	if h.service != nil {
		h.service.SetEventListener(nil)
	}

	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for id, clientChan := range h.clients {
		close(clientChan)
		metrics.EventSubscribers.Dec()
		delete(h.clients, id)
	}
	h.clientConnectTimes = make(map[string]time.Time)
}
