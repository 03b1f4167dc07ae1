package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rovshanmuradov/launchlab/internal/export"
	"github.com/rovshanmuradov/launchlab/internal/storage"
)

// StatusError is a non-2xx response. It unwraps to the storage error the
// status was mapped from, if any.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusServiceUnavailable:
		return storage.ErrStorageUnavailable
	}
	return nil
}

// Client reads a remote curvectl serve instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListCurves returns every curve, newest first.
func (c *Client) ListCurves(ctx context.Context) ([]export.CurveJSON, error) {
	var out []export.CurveJSON
	if err := c.get(ctx, "/curves", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Curve returns one curve.
func (c *Client) Curve(ctx context.Context, tokenID string) (export.CurveJSON, error) {
	var out export.CurveJSON
	err := c.get(ctx, "/curves/"+url.PathEscape(tokenID), nil, &out)
	return out, err
}

// Quote quotes side ("buy" or "sell") for amount in whole units.
func (c *Client) Quote(ctx context.Context, tokenID, side, amount string) (QuoteResponse, error) {
	var out QuoteResponse
	q := url.Values{"side": {side}, "amount": {amount}}
	err := c.get(ctx, "/curves/"+url.PathEscape(tokenID)+"/quote", q, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
