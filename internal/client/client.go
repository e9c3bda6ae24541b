package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vanpelt/catnip-pty/internal/models"
	"github.com/vanpelt/catnip-pty/internal/services"
)

// APIError is a non-2xx response from the host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Is lets callers test API errors against the service sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case services.ErrSessionNotFound:
		return e.StatusCode == http.StatusNotFound
	case services.ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest
	case services.ErrInvalidDimensions:
		return e.StatusCode == http.StatusBadRequest && strings.HasPrefix(e.Message, services.ErrInvalidDimensions.Error())
	}
	return false
}

// Client talks to a catnip-pty host over HTTP and websockets.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// New creates a client for the host at baseURL (http or https). token may
// be empty when the host runs without auth.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// CreatePTY starts a session.
func (c *Client) CreatePTY(ctx context.Context, req models.CreatePTYRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/pty", req, nil)
}

// WritePTY sends input to a session.
func (c *Client) WritePTY(ctx context.Context, id, data string) error {
	return c.do(ctx, http.MethodPost, "/v1/pty/"+url.PathEscape(id)+"/write", models.WritePTYRequest{Data: data}, nil)
}

// ResizePTY changes a session's window size.
func (c *Client) ResizePTY(ctx context.Context, id string, cols, rows uint16) error {
	return c.do(ctx, http.MethodPost, "/v1/pty/"+url.PathEscape(id)+"/resize", models.ResizePTYRequest{Cols: cols, Rows: rows}, nil)
}

// ClosePTY terminates a session.
func (c *Client) ClosePTY(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/pty/"+url.PathEscape(id), nil, nil)
}

// ListSessions returns every session on the host.
func (c *Client) ListSessions(ctx context.Context) ([]models.PTYSessionInfo, error) {
	var resp struct {
		Sessions []models.PTYSessionInfo `json:"sessions"`
		Count    int                     `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/pty", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession returns one session.
func (c *Client) GetSession(ctx context.Context, id string) (models.PTYSessionInfo, error) {
	var info models.PTYSessionInfo
	err := c.do(ctx, http.MethodGet, "/v1/pty/"+url.PathEscape(id), nil, &info)
	return info, err
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
