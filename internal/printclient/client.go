// Package printclient calls the print server over HTTP.
package printclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one print request, including rendering on the server.
const DefaultTimeout = 15 * time.Second

// ErrPrintRejected is returned when the server answers with status "error".
var ErrPrintRejected = errors.New("print rejected")

// Request is the body of POST /api/print.
type Request struct {
	Name           string  `json:"name,omitempty"`
	WatchSeconds   int     `json:"watchSeconds"`
	WatchedPercent float64 `json:"watchedPercent"`
}

// Response is the server reply.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	ID     string `json:"id,omitempty"`
}

// Client talks to one print server.
type Client struct {
	http *resty.Client
}

// New creates a Client for baseURL such as "http://127.0.0.1:4000".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Print submits a slip. A 500 reply is returned as an error wrapping
// ErrPrintRejected that carries the server message.
func (c *Client) Print(ctx context.Context, req Request) (*Response, error) {
	var ok, failed Response

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&ok).
		SetError(&failed).
		Post("/api/print")
	if err != nil {
		return nil, fmt.Errorf("post print request: %w", err)
	}

	if resp.IsError() {
		msg := failed.Msg
		if msg == "" {
			msg = resp.Status()
		}
		return &failed, fmt.Errorf("%w: %s", ErrPrintRejected, msg)
	}

	return &ok, nil
}

// Ping checks the server liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("ping print server: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ping print server: %s", resp.Status())
	}
	return nil
}
