package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const previewLimit = 500

// Destination is a named backend system reachable over HTTP.
type Destination struct {
	Name          string
	URL           string
	Authorization string
}

// Client issues GET requests against one destination. Requests of all
// clients sharing a limiter are paced together.
type Client struct {
	dest    Destination
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(dest Destination, httpClient *http.Client, limiter *rate.Limiter, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		dest:    dest,
		http:    httpClient,
		limiter: limiter,
		logger:  logger.With(zap.String("destination", dest.Name)),
	}
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// Get fetches path relative to the destination URL and returns the body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	url := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.dest.Authorization != "" {
		req.Header.Set("Authorization", c.dest.Authorization)
	}

	c.logger.Debug("Calling backend service", zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Backend service call failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Backend service returned error status",
			zap.String("path", path),
			zap.Int("http_status", resp.StatusCode),
			zap.String("body_preview", preview(body)))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: preview(body)}
	}

	c.logger.Info("Backend service success",
		zap.String("path", path),
		zap.Int("http_status", resp.StatusCode),
		zap.String("body_preview", preview(body)))
	return body, nil
}

func (c *Client) resolve(path string) string {
	path = strings.ReplaceAll(path, " ", "%20")
	if c.dest.URL == "" {
		return path
	}
	return strings.TrimRight(c.dest.URL, "/") + "/" + strings.TrimLeft(path, "/")
}

func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit])
	}
	return string(body)
}
