// Package gatewayclient is a thin client for the gateway HTTP API. The
// gatecheck tool uses it for smoke checks; it works as an embedding client
// for Go callers as well.
package gatewayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-gateway/pkg/gatewaydto"
)

// APIError is a non-2xx gateway response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway api error: status=%d code=%s message=%s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Healthz(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil, true)
}

func (c *Client) CreateSession(ctx context.Context, req gatewaydto.CreateSessionRequest) (*gatewaydto.CreateSessionResponse, error) {
	var resp gatewaydto.CreateSessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) State(ctx context.Context, id string) (*gatewaydto.StateResponse, error) {
	var resp gatewaydto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions/"+id, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Release(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, "/api/sessions/"+id, nil, nil, false)
}

func (c *Client) SetPosition(ctx context.Context, id, fen string) (*gatewaydto.StateResponse, error) {
	var resp gatewaydto.StateResponse
	req := gatewaydto.SetPositionRequest{FEN: fen}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/position", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Move(ctx context.Context, id string, req gatewaydto.MoveRequest) (*gatewaydto.StateResponse, error) {
	var resp gatewaydto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/moves", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Think(ctx context.Context, id string) (*gatewaydto.ThinkResponse, error) {
	var resp gatewaydto.ThinkResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/think", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Undo(ctx context.Context, id string) (*gatewaydto.StateResponse, error) {
	var resp gatewaydto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/undo", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) NewGame(ctx context.Context, id string) (*gatewaydto.StateResponse, error) {
	var resp gatewaydto.StateResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/new-game", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Draw(ctx context.Context, id string) (*gatewaydto.DrawResponse, error) {
	var resp gatewaydto.DrawResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions/"+id+"/draw", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) LegalMoves(ctx context.Context, id string) (*gatewaydto.LegalMovesResponse, error) {
	var resp gatewaydto.LegalMovesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions/"+id+"/legal-moves", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MatchMoves(ctx context.Context, id string, req gatewaydto.MatchRequest) (bool, error) {
	var resp gatewaydto.MatchResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/legal-moves/match", req, &resp, false); err != nil {
		return false, err
	}
	return resp.Match, nil
}

func (c *Client) SetOption(ctx context.Context, id, name, value string) error {
	req := gatewaydto.SetOptionRequest{Name: name, Value: value}
	return c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions/"+id+"/options", req, nil, false)
}

func (c *Client) Options(ctx context.Context, id string) (*gatewaydto.OptionsResponse, error) {
	var resp gatewaydto.OptionsResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/sessions/"+id+"/options", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Tiers(ctx context.Context) (*gatewaydto.TiersResponse, error) {
	var resp gatewaydto.TiersResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/tiers", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := apiError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func apiError(status int, body []byte) error {
	var eb gatewaydto.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Code != "" {
		return &APIError{Status: status, Code: eb.Code, Message: eb.Message}
	}
	return &APIError{Status: status, Message: truncate(string(body), 512)}
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

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
