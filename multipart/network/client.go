// Package network performs single fragment transfers against the upload service.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Fragment request headers.
const (
	HeaderContentType = "Content-Type"
	HeaderPartNumber  = "Part-Number"
	HeaderPartsTotal  = "Parts-Total"
	HeaderContentMD5  = "Content-MD5"
)

// DefaultTimeout is applied to every fragment request.
const DefaultTimeout = 30 * time.Second

const maxErrorBodySize = 64 * 1024

// ResponseData is the raw outcome of an accepted fragment request.
type ResponseData struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends fragments with PUT requests. Apart from the session identifier it keeps no
// state between calls, and it never retries rejected requests.
type Client struct {
	httpClient *retryablehttp.Client
	timeout    time.Duration
	logger     log.Logger

	mu        sync.RWMutex
	sessionID string
}

// NewClient creates a Client. connectionRetries only applies to requests that failed before a
// response arrived; a zero value disables retrying altogether.
func NewClient(timeout time.Duration, connectionRetries int, logger log.Logger) *Client {
	return NewClientWithHTTPClient(retryhttp.NewClient(logger), timeout, connectionRetries, logger)
}

// NewClientWithHTTPClient creates a Client on top of an existing retryablehttp client.
// The retry policy and error handler of httpClient are overridden.
func NewClientWithHTTPClient(httpClient *retryablehttp.Client, timeout time.Duration, connectionRetries int, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if connectionRetries < 0 {
		connectionRetries = 0
	}

	httpClient.RetryMax = connectionRetries
	httpClient.CheckRetry = connectionRetryPolicy
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

// SetSessionID binds the client to an upload session.
func (c *Client) SetSessionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// SessionID returns the bound session identifier.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Timeout returns the per request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Put uploads body to url and blocks until the response arrives or the timeout elapses.
// Non-2xx responses are returned as *RemoteRejectedError, timeouts as *TimeoutError.
func (c *Client) Put(ctx context.Context, url string, headers map[string]string, body []byte) (ResponseData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// An empty slice would be sent chunked, without a length.
	var rawBody interface{}
	if len(body) > 0 {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, rawBody)
	if err != nil {
		return ResponseData{}, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if sessionID := c.SessionID(); sessionID != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sessionID))
	}
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(body)))
	req.ContentLength = int64(len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return ResponseData{}, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return ResponseData{}, fmt.Errorf("do request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Printf("close response body: %s", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			c.logger.Warnf("failed to read rejected response body: %s", err)
		}
		return ResponseData{}, &RemoteRejectedError{StatusCode: resp.StatusCode, Body: errorBody}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return ResponseData{}, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return ResponseData{}, fmt.Errorf("read response: %w", err)
	}

	return ResponseData{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// CloseIdleConnections closes idle connections in the HTTP client.
func (c *Client) CloseIdleConnections() {
	if c.httpClient.HTTPClient != nil {
		c.httpClient.HTTPClient.CloseIdleConnections()
	}
}

// connectionRetryPolicy retries only when no response was received.
// Status codes are never retried: rejections are terminal for the fragment.
func connectionRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
