package handlers

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/vanpelt/catnip-pty/internal/logger"
	"github.com/vanpelt/catnip-pty/internal/metrics"
	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/recovery"
	"github.com/vanpelt/catnip-pty/internal/services"
)

const streamWriteTimeout = 10 * time.Second

// PTYHandler exposes the PTY command surface over HTTP and streams session
// output over a websocket.
type PTYHandler struct {
	service      *services.PTYService
	streamBuffer int

	// lifecycleMu keeps the registry and streams in step: create and close
	// change both under it.
	lifecycleMu sync.Mutex
	streams     map[string]*streamHub
	streamsMu   sync.Mutex
}

// SessionListResponse is returned by GET /v1/pty.
type SessionListResponse struct {
	Sessions []models.PTYSessionInfo `json:"sessions"`
	Count    int                     `json:"count"`
}

// CreatePTYResponse is returned by POST /v1/pty.
type CreatePTYResponse struct {
	ID string `json:"id"`
}

// NewPTYHandler creates a handler. streamBuffer is the number of output
// messages held per session while no consumer is attached.
func NewPTYHandler(service *services.PTYService, streamBuffer int) *PTYHandler {
	return &PTYHandler{
		service:      service,
		streamBuffer: streamBuffer,
		streams:      make(map[string]*streamHub),
	}
}

// RegisterRoutes registers all PTY-related routes
func (h *PTYHandler) RegisterRoutes(v1 fiber.Router) {
	v1.Post("/pty", h.CreatePTY)
	v1.Get("/pty", h.ListSessions)
	v1.Get("/pty/:id", h.GetSession)
	v1.Post("/pty/:id/write", h.WritePTY)
	v1.Post("/pty/:id/resize", h.ResizePTY)
	v1.Delete("/pty/:id", h.ClosePTY)
	v1.Get("/pty/:id/stream", h.HandleStream)
}

// CreatePTY spawns a shell for a new session.
// @Summary Create PTY session
// @Description Spawns a login shell on a new pseudo-terminal. An existing session with the same id is closed and replaced.
// @Tags pty
// @Accept json
// @Produce json
// @Param request body models.CreatePTYRequest true "Session id, size and optional working directory"
// @Success 201 {object} CreatePTYResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/pty [post]
func (h *PTYHandler) CreatePTY(c *fiber.Ctx) error {
	var req models.CreatePTYRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body: " + err.Error()})
	}

	hub := newStreamHub(req.ID, h.streamBuffer)

	h.lifecycleMu.Lock()
	if err := h.service.CreatePTY(req.ID, req.Cols, req.Rows, req.Cwd, hub); err != nil {
		h.lifecycleMu.Unlock()
		return respondError(c, err)
	}
	h.streamsMu.Lock()
	prev := h.streams[req.ID]
	h.streams[req.ID] = hub
	h.streamsMu.Unlock()
	h.lifecycleMu.Unlock()

	if prev != nil {
		prev.abandon()
	}

	return c.Status(fiber.StatusCreated).JSON(CreatePTYResponse{ID: req.ID})
}

// WritePTY forwards input to the shell.
// @Summary Write to PTY session
// @Tags pty
// @Accept json
// @Param id path string true "Session ID"
// @Param request body models.WritePTYRequest true "Input bytes"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/pty/{id}/write [post]
func (h *PTYHandler) WritePTY(c *fiber.Ctx) error {
	var req models.WritePTYRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body: " + err.Error()})
	}
	if err := h.service.WritePTY(c.Params("id"), []byte(req.Data)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResizePTY changes the terminal size.
// @Summary Resize PTY session
// @Tags pty
// @Accept json
// @Param id path string true "Session ID"
// @Param request body models.ResizePTYRequest true "New size"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/pty/{id}/resize [post]
func (h *PTYHandler) ResizePTY(c *fiber.Ctx) error {
	var req models.ResizePTYRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body: " + err.Error()})
	}
	if err := h.service.ResizePTY(c.Params("id"), req.Cols, req.Rows); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClosePTY terminates a session. Closing an unknown session succeeds.
// @Summary Close PTY session
// @Tags pty
// @Param id path string true "Session ID"
// @Success 204
// @Router /v1/pty/{id} [delete]
func (h *PTYHandler) ClosePTY(c *fiber.Ctx) error {
	id := c.Params("id")

	h.lifecycleMu.Lock()
	err := h.service.ClosePTY(id)
	if err == nil {
		h.dropStream(id)
	}
	h.lifecycleMu.Unlock()

	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSessions returns all sessions, oldest first.
// @Summary List PTY sessions
// @Tags pty
// @Produce json
// @Success 200 {object} SessionListResponse
// @Router /v1/pty [get]
func (h *PTYHandler) ListSessions(c *fiber.Ctx) error {
	sessions := h.service.ListSessions()
	return c.JSON(SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// GetSession returns one session.
// @Summary Get PTY session
// @Tags pty
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.PTYSessionInfo
// @Failure 404 {object} ErrorResponse
// @Router /v1/pty/{id} [get]
func (h *PTYHandler) GetSession(c *fiber.Ctx) error {
	info, err := h.service.GetSession(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(info)
}

// HandleStream upgrades to a websocket that carries the session's output.
// @Summary Stream PTY output
// @Description WebSocket carrying models.StreamMessage JSON. The server sends output, error and exit messages; the client may send input and resize messages. One consumer per session.
// @Tags pty
// @Param id path string true "Session ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} ErrorResponse
// @Failure 426 {object} ErrorResponse
// @Router /v1/pty/{id}/stream [get]
func (h *PTYHandler) HandleStream(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	id := c.Params("id")
	hub := h.stream(id)
	if hub == nil {
		return respondError(c, services.ErrSessionNotFound)
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.handleStreamConnection(conn, hub)
	})(c)
}

// Shutdown releases every stream so blocked coalescers can finish.
func (h *PTYHandler) Shutdown() {
	h.streamsMu.Lock()
	streams := h.streams
	h.streams = make(map[string]*streamHub)
	h.streamsMu.Unlock()

	for _, hub := range streams {
		hub.abandon()
	}
}

func (h *PTYHandler) stream(id string) *streamHub {
	h.streamsMu.Lock()
	defer h.streamsMu.Unlock()
	return h.streams[id]
}

func (h *PTYHandler) dropStream(id string) {
	h.streamsMu.Lock()
	hub := h.streams[id]
	delete(h.streams, id)
	h.streamsMu.Unlock()

	if hub != nil {
		hub.abandon()
	}
}

// streamConn serializes writes to a websocket shared by the output loop and
// error replies from the input loop.
type streamConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *streamConn) send(msg models.StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *PTYHandler) handleStreamConnection(conn *websocket.Conn, hub *streamHub) {
	connID := uuid.New().String()
	log := logger.ForSession(hub.sessionID).With().Str("conn_id", connID).Logger()
	sc := &streamConn{conn: conn}

	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("Error closing websocket connection")
		}
	}()

	if !hub.attach() {
		log.Warn().Msg("🚫 Rejecting second stream consumer")
		_ = sc.send(models.StreamMessage{
			Type:      models.StreamError,
			SessionID: hub.sessionID,
			Error:     "session already has a stream consumer",
		})
		return
	}
	defer hub.detach()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("📡 Stream consumer attached")

	clientGone := make(chan struct{})
	recovery.SafeGoWithCleanup("pty-stream-input:"+hub.sessionID, func() {
		h.readClientMessages(sc, hub.sessionID)
	}, func() { close(clientGone) })

	for {
		select {
		case msg, ok := <-hub.messages:
			if !ok {
				_ = sc.send(models.StreamMessage{Type: models.StreamExit, SessionID: hub.sessionID})
				log.Info().Msg("🏁 Stream ended")
				return
			}
			if err := sc.send(msg); err != nil {
				log.Debug().Err(err).Uint64("seq", msg.Seq).Msg("❌ Stream write failed")
				return
			}
		case <-clientGone:
			log.Info().Msg("🔌 Stream consumer detached")
			return
		}
	}
}

// readClientMessages applies input and resize messages sent by the client
// until the connection fails.
func (h *PTYHandler) readClientMessages(sc *streamConn, sessionID string) {
	for {
		_, data, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("Stream read error for session %s: %v", sessionID, err)
			}
			return
		}

		var msg models.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = sc.send(models.StreamMessage{Type: models.StreamError, SessionID: sessionID, Error: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case models.StreamInput:
			err = h.service.WritePTY(sessionID, []byte(msg.Data))
		case models.StreamResize:
			err = h.service.ResizePTY(sessionID, msg.Cols, msg.Rows)
		default:
			err = fiber.NewError(fiber.StatusBadRequest, "unknown message type "+string(msg.Type))
		}
		if err != nil {
			_ = sc.send(models.StreamMessage{Type: models.StreamError, SessionID: sessionID, Error: err.Error()})
		}
	}
}
