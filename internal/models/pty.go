package models

import "time"

// CreatePTYRequest is the body of a create_pty command.
type CreatePTYRequest struct {
	ID   string `json:"id"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
	Cwd  string `json:"cwd,omitempty"`
}

// WritePTYRequest is the body of a write_pty command.
type WritePTYRequest struct {
	Data string `json:"data"`
}

// ResizePTYRequest is the body of a resize_pty command.
type ResizePTYRequest struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// OutputChunk is one coalesced, UTF-8 safe piece of terminal output.
// Seq starts at 1 and increases by one per delivered chunk of a session.
type OutputChunk struct {
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
	Data      string `json:"data"`
}

// PTYSessionInfo is the public view of a registered session
type PTYSessionInfo struct {
	ID        string    `json:"id"`
	Shell     string    `json:"shell"`
	Cwd       string    `json:"cwd,omitempty"`
	Cols      uint16    `json:"cols"`
	Rows      uint16    `json:"rows"`
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
	Running   bool      `json:"running"`
	ExitCode  *int      `json:"exit_code,omitempty"`
}

// StreamMessageType tags messages on the per-session output websocket.
type StreamMessageType string

const (
	StreamOutput StreamMessageType = "output"
	StreamExit   StreamMessageType = "exit"
	StreamError  StreamMessageType = "error"
	StreamInput  StreamMessageType = "input"
	StreamResize StreamMessageType = "resize"
)

// StreamMessage is the JSON envelope used in both directions on the
// output stream. Server → client uses output/exit/error, client → server
// uses input/resize.
type StreamMessage struct {
	Type      StreamMessageType `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Seq       uint64            `json:"seq,omitempty"`
	Data      string            `json:"data,omitempty"`
	Cols      uint16            `json:"cols,omitempty"`
	Rows      uint16            `json:"rows,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// SessionEventType names a PTY lifecycle transition.
type SessionEventType string

const (
	SessionCreatedEvent SessionEventType = "pty:created"
	SessionResizedEvent SessionEventType = "pty:resized"
	SessionExitedEvent  SessionEventType = "pty:exited"
	SessionClosedEvent  SessionEventType = "pty:closed"
)

// SessionEvent is published on every lifecycle transition.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"session_id"`
	Payload   any              `json:"payload,omitempty"`
}

// SessionCreatedPayload accompanies pty:created
type SessionCreatedPayload struct {
	PID   int    `json:"pid"`
	Shell string `json:"shell"`
	Cols  uint16 `json:"cols"`
	Rows  uint16 `json:"rows"`
}

// SessionResizedPayload accompanies pty:resized
type SessionResizedPayload struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// SessionExitedPayload accompanies pty:exited
type SessionExitedPayload struct {
	PID      int `json:"pid"`
	ExitCode int `json:"exitCode"`
}
