package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vanpelt/catnip-pty/internal/models"
)

// Stream is an attached output stream for one session.
type Stream struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	messages chan models.StreamMessage
	done     chan struct{}
	closed   chan struct{}
	once     sync.Once
	err      error
}

// Stream attaches to a session's output. Messages are delivered in order
// on Messages until the session's output ends or the connection fails.
func (c *Client) Stream(ctx context.Context, id string) (*Stream, error) {
	u, err := url.Parse(c.endpoint("/v1/pty/" + url.PathEscape(id) + "/stream"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to attach to session %s", id)}
		}
		return nil, fmt.Errorf("failed to attach to session %s: %w", id, err)
	}

	s := &Stream{
		conn:     conn,
		messages: make(chan models.StreamMessage, 64),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Stream) readLoop() {
	defer close(s.done)
	defer close(s.messages)

	for {
		var msg models.StreamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.err = err
			}
			return
		}
		select {
		case s.messages <- msg:
		case <-s.closed:
			return
		}
		if msg.Type == models.StreamExit {
			return
		}
	}
}

// Messages yields output, error and exit messages. It is closed when the
// stream ends.
func (s *Stream) Messages() <-chan models.StreamMessage {
	return s.messages
}

// Err returns the connection error that ended the stream, if any. Valid
// after Messages is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// SendInput writes data to the session through the stream.
func (s *Stream) SendInput(data string) error {
	return s.send(models.StreamMessage{Type: models.StreamInput, Data: data})
}

// Resize changes the session's window size through the stream.
func (s *Stream) Resize(cols, rows uint16) error {
	return s.send(models.StreamMessage{Type: models.StreamResize, Cols: cols, Rows: rows})
}

func (s *Stream) send(msg models.StreamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Close detaches from the session. The session keeps running.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.closed) })
	s.mu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.mu.Unlock()
	return s.conn.Close()
}
