// Package api delivers records to the application's REST API, one request per record.
//
// The API offers no multi-record transaction, so the client reports a maximum
// batch size of one and every record is its own atomic unit.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept in the failure message.
const maxErrorBody = 512

type songRequest struct {
	Title    string `json:"title"`
	Lyrics   string `json:"lyrics"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Client is a storage.Destination posting records to <base>/songs.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *slog.Logger
}

var (
	_ storage.Destination  = (*Client)(nil)
	_ storage.BatchLimiter = (*Client)(nil)
	_ storage.Describer    = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL (for example http://localhost:8080/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

// Describe names the API for the confirmation prompt.
func (c *Client) Describe() string {
	return "API at " + c.baseURL
}

// MaxBatchSize implements storage.BatchLimiter.
func (c *Client) MaxBatchSize() int {
	return 1
}

// Ping checks <base>/health answers with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, classify(err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: health check returned %s", storage.ErrUnavailable, resp.Status)
	}
	return nil
}

// Commit posts a single record. A 201 response is success.
func (c *Client) Commit(ctx context.Context, records []*core.Record) (storage.CommitResult, error) {
	switch len(records) {
	case 0:
		return storage.CommitResult{}, nil
	case 1:
	default:
		return storage.CommitResult{}, fmt.Errorf("%w: api accepts one record per request, got %d", storage.ErrRejected, len(records))
	}

	if err := c.post(ctx, records[0]); err != nil {
		return storage.CommitResult{}, err
	}
	return storage.CommitResult{Inserted: 1}, nil
}

func (c *Client) post(ctx context.Context, r *core.Record) error {
	body, err := json.Marshal(songRequest{
		Title:    r.Title,
		Lyrics:   r.Body,
		Language: r.Label,
		Content:  r.Body,
	})
	if err != nil {
		return core.NewReasonError(core.ReasonLoadError, fmt.Errorf("encode: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/songs", bytes.NewReader(body))
	if err != nil {
		return core.NewReasonError(core.ReasonLoadError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("api rejected record", "title", r.Title, "status", resp.StatusCode)
		return core.NewReasonError(core.ReasonLoadError,
			fmt.Errorf("%w: API error %d: %s", storage.ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// classify maps transport errors onto reason codes.
func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewReasonError(core.ReasonTimeout, fmt.Errorf("API timeout: %w", err))
	}
	return core.NewReasonError(core.ReasonNetworkError, fmt.Errorf("connection error: %w", err))
}

// Finalize is a no-op: the API maintains its own edit counter.
func (c *Client) Finalize(ctx context.Context, committed int) error {
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}
