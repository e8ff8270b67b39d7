// Package reindex asks the application to rebuild its search index after an import.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrReindexFailed indicates the reindex call did not succeed.
var ErrReindexFailed = errors.New("reindex failed")

// Path is appended to the application base URL.
const Path = "/api/admin/reindex"

// Trigger starts an index rebuild.
type Trigger interface {
	Trigger(ctx context.Context) error
}

// HTTPTrigger POSTs to <base>/api/admin/reindex.
type HTTPTrigger struct {
	url string
	hc  *http.Client
}

// NewHTTPTrigger creates a trigger for the application at baseURL
// (for example http://localhost:8080).
func NewHTTPTrigger(baseURL string, hc *http.Client) *HTTPTrigger {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPTrigger{
		url: strings.TrimRight(baseURL, "/") + Path,
		hc:  hc,
	}
}

// URL returns the endpoint that will be called.
func (t *HTTPTrigger) URL() string {
	return t.url
}

// Trigger implements Trigger. Any 2xx response is success.
func (t *HTTPTrigger) Trigger(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReindexFailed, err)
	}
	resp, err := t.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReindexFailed, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s: %s", ErrReindexFailed, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Recommendation is printed when no trigger is configured.
func Recommendation(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return fmt.Sprintf("Rebuild the search index so imported documents become searchable:\n  curl -X POST %s%s",
		strings.TrimRight(baseURL, "/"), Path)
}
