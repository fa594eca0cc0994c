// Package deskclient is a small JSON client for the desk API, used by
// the deskcheck probe and by anything that wants to drive a session
// without a board attached.
package deskclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/deskchess/deskchess/pkg/deskdto"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health pings /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil)
}

// CreateSession starts a game; timeControl zero picks the server
// default.
func (c *Client) CreateSession(ctx context.Context, timeControl int) (*deskdto.SessionState, error) {
	req := deskdto.CreateSessionRequest{TimeControl: timeControl}
	var state deskdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Sessions lists the live session ids.
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	var list deskdto.SessionList
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions", nil, &list); err != nil {
		return nil, err
	}
	return list.Sessions, nil
}

// State fetches the current derived state of a session.
func (c *Client) State(ctx context.Context, id string) (*deskdto.SessionState, error) {
	var state deskdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions/"+id, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Move attempts from-to on a session. A rejected move comes back with
// Accepted false and a reason, not an error.
func (c *Client) Move(ctx context.Context, id, from, to string) (*deskdto.MoveResponse, error) {
	req := deskdto.MoveRequest{From: from, To: to}
	var resp deskdto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/move", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Undo pops the latest move.
func (c *Client) Undo(ctx context.Context, id string) (*deskdto.SessionState, error) {
	var state deskdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/undo", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Reset restarts the session, optionally switching time control.
func (c *Client) Reset(ctx context.Context, id string, timeControl int) (*deskdto.SessionState, error) {
	req := deskdto.ResetRequest{TimeControl: timeControl}
	var state deskdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/reset", req, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		var apiErr deskdto.APIError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("desk api error: status=%d: %w", status, apiErr)
		}
		return fmt.Errorf("desk api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
