// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talia-ai/webchat/lib/netutil"
	"github.com/talia-ai/webchat/lib/version"
)

// DefaultCloseTimeout bounds a closure request when the caller gives
// no deadline of its own (beacons).
const DefaultCloseTimeout = 5 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the absolute URL of the webchat API, for example
	// "https://talia.example/api/webchat".
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// CloseTimeout bounds beacon delivery. Zero means DefaultCloseTimeout.
	CloseTimeout time.Duration
	// DisableBeacon makes Beacon report false so callers fall back to
	// a direct CloseSession.
	DisableBeacon bool
}

// Client talks to one webchat backend. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logger        *slog.Logger
	closeTimeout  time.Duration
	beaconEnabled bool

	mu       sync.Mutex
	shutdown bool
	beacons  sync.WaitGroup
}

// NewClient creates a Client for the API rooted at config.BaseURL.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("webchat: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("webchat: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("webchat: BaseURL %q must be absolute", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	closeTimeout := config.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = DefaultCloseTimeout
	}

	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		httpClient:    httpClient,
		logger:        logger,
		closeTimeout:  closeTimeout,
		beaconEnabled: !config.DisableBeacon,
	}, nil
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// SendMessage posts one user message and returns the decoded reply.
// Only HTTP-level failures are errors here; an empty reply is a valid
// response and the caller decides whether it is acceptable.
func (c *Client) SendMessage(ctx context.Context, request SendMessageRequest) (*SendMessageResponse, error) {
	if request.SessionID == "" {
		return nil, fmt.Errorf("webchat: session ID is required to send a message")
	}
	if request.Author == "" {
		request.Author = AuthorUser
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/messages", nil, request, nil)
	if err != nil {
		return nil, err
	}
	var response SendMessageResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return &response, nil
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("webchat: failed to parse send response: %w", err)
	}
	return &response, nil
}

// History fetches the latest limit messages for a session, oldest
// first. A limit of zero or less omits the parameter and lets the
// backend choose.
func (c *Client) History(ctx context.Context, sessionID string, limit int) (*HistoryResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("webchat: session ID is required to fetch history")
	}
	query := url.Values{"session_id": {sessionID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	header := http.Header{"Cache-Control": {"no-cache"}}
	body, err := c.doRequest(ctx, http.MethodGet, "/messages", query, nil, header)
	if err != nil {
		return nil, err
	}
	var response HistoryResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return &response, nil
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("webchat: failed to parse history response: %w", err)
	}
	return &response, nil
}

// CloseSession tells the backend the session has ended. The response
// body is ignored. The request is bounded by ctx, so callers tearing
// down should pass a short deadline.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("webchat: session ID is required to close a session")
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/close", nil, CloseRequest{SessionID: sessionID}, nil)
	return err
}

// Beacon queues a closure notice that is delivered in the background,
// detached from any caller context, so it outlives the engine that
// sent it. It reports whether the notice was queued; false means the
// caller should fall back to CloseSession. Delivery failures are only
// logged.
func (c *Client) Beacon(sessionID string) bool {
	if sessionID == "" || !c.beaconEnabled {
		return false
	}
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return false
	}
	c.beacons.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.beacons.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.closeTimeout)
		defer cancel()
		if err := c.CloseSession(ctx, sessionID); err != nil {
			c.logger.Debug("webchat closure beacon failed",
				"session_id", sessionID,
				"error", err,
			)
		}
	}()
	return true
}

// Shutdown stops accepting beacons and waits for queued ones to
// finish or for ctx to end.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.beacons.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("webchat: waiting for closure beacons: %w", ctx.Err())
	}
}

// doRequest performs one request against the API and returns the
// response body. Non-2xx statuses become *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, requestBody any, header http.Header) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("webchat: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("webchat: failed to create request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("webchat: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: response.StatusCode,
			Method:     method,
			Path:       path,
			Body:       netutil.ErrorBody(response.Body),
		}
	}

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("webchat: failed to read response body: %w", err)
	}
	return responseBody, nil
}
