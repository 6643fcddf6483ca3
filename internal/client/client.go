// Package client talks to the price API on behalf of the shell: triggers,
// item prices, search terms and recommendations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/apperr"
)

// AuthGateway supplies the bearer credential. Session implements it.
type AuthGateway interface {
	CurrentSession(ctx context.Context) (string, error)
}

type authMode int

const (
	authOptional authMode = iota // attach when available, else anonymous
	authRequired                 // fail with apperr.ErrAuthRequired before sending
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Auth    AuthGateway // nil means every request is anonymous
	Logger  *zap.Logger
}

func New(baseURL string, auth AuthGateway, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Auth:    auth,
		Logger:  logger,
	}
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var token string
	if c.Auth != nil {
		tok, err := c.Auth.CurrentSession(ctx)
		switch {
		case err == nil:
			token = tok
		case r.auth == authRequired:
			return errors.WithMessage(err, r.op)
		default:
			c.Logger.Debug("anonymous_request", zap.String("op", r.op), zap.Error(err))
		}
	} else if r.auth == authRequired {
		return errors.WithMessage(apperr.ErrAuthRequired, r.op)
	}

	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(err, r.op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return &apperr.TransportError{Op: r.op, Err: errors.WithStack(err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &apperr.TransportError{Op: r.op, Err: errors.WithStack(err)}
	}
	defer resp.Body.Close()

	c.Logger.Debug("api_call",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Bool("authenticated", token != ""),
		zap.Float64("latency_ms", time.Since(start).Seconds()*1000),
	)

	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusUnauthorized && r.auth == authRequired {
			return errors.WithMessage(apperr.ErrAuthRequired, r.op)
		}
		return &apperr.TransportError{Op: r.op, StatusCode: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.TransportError{Op: r.op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

// errorDetail pulls the message out of {"detail": ...} or {"error": ...}.
func errorDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(b, &payload) != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}
