// Package client talks to a running care-map server over HTTP and its live
// WebSocket endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Clark-Hu/care-map/internal/live"
	"github.com/Clark-Hu/care-map/internal/snapshot"
)

// ErrNotFound is returned when the server does not know the institution.
var ErrNotFound = errors.New("client: institution not found")

// APIError carries a non-2xx response the client has no sentinel for.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: server returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client: server returned %d", e.Status)
}

// Rating is the stored rating echoed back on a successful submit.
type Rating struct {
	ID          int64     `json:"id"`
	Institution string    `json:"institution"`
	Value       int       `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Client is an HTTP client for the care-map API.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// New constructs a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	return &Client{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		logger: logger,
	}, nil
}

// SubmitRating posts one rating for institutionID.
func (c *Client) SubmitRating(ctx context.Context, institutionID string, value int) (Rating, error) {
	body, err := json.Marshal(map[string]any{"institution": institutionID, "rating": value})
	if err != nil {
		return Rating{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/ratings/submit"), bytes.NewReader(body))
	if err != nil {
		return Rating{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Rating{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Rating{}, c.statusError(resp)
	}
	var payload struct {
		Rating Rating `json:"rating"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Rating{}, fmt.Errorf("decode submit response: %w", err)
	}
	return payload.Rating, nil
}

// Data fetches the current snapshot.
func (c *Client) Data(ctx context.Context) (snapshot.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/data"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	var snap snapshot.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode data response: %w", err)
	}
	return snap, nil
}

// Watch subscribes to live updates and calls fn for every message until ctx
// is cancelled, the server closes the connection, or fn returns an error.
// A normal close or cancellation returns nil.
func (c *Client) Watch(ctx context.Context, fn func(live.Message) error) error {
	wsURL := *c.baseURL
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/data/ws"

	conn, resp, err := c.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("dial live endpoint: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial live endpoint: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.SetReadDeadline(deadline)
	})
	defer stop()

	for {
		var msg live.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read live message: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path}).String()
}

func (c *Client) statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
	}
	c.logger.Debug("client: unexpected status", "status", resp.StatusCode, "code", apiErr.Code)
	return apiErr
}
