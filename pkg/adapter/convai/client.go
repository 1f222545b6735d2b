package convai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.elevenlabs.io"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 5.0
	DefaultReadRetries = 3
	DefaultRetryDelay  = 500 * time.Millisecond

	headerAPIKey = "xi-api-key"

	maxErrorBody    = 64 * 1024
	maxResponseBody = 16 * 1024 * 1024
)

// Client is the shared transport for the remote conversational AI service.
// Documents, Indexes and Agents expose the typed clients built on it.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	readRetries int
	retryDelay  time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout is used as is.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit sets requests per second. Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithReadRetries sets the number of attempts for idempotent GET requests.
func WithReadRetries(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.readRetries = attempts
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// New creates a client authenticated with apiKey
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		readRetries: DefaultReadRetries,
		retryDelay:  DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, goerr.Wrap(err, "invalid base url", goerr.V("base_url", c.baseURL))
	}

	return c, nil
}

// Documents returns the Document Store Client
func (c *Client) Documents() *DocumentStore {
	return &DocumentStore{client: c}
}

// Indexes returns the Index Compute Client
func (c *Client) Indexes() *IndexClient {
	return &IndexClient{client: c}
}

// Agents returns the Agent Configuration Client
func (c *Client) Agents() *AgentClient {
	return &AgentClient{client: c}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, goerr.Wrap(err, "failed to marshal request body", goerr.V("path", path))
	}
	return request{
		method:      method,
		path:        path,
		body:        body,
		contentType: "application/json",
	}, nil
}

// validator is implemented by response types that check their own shape after decoding.
type validator interface {
	validate() error
}

// do sends req and decodes the body into out when out is not nil.
// Only GET is retried; mutating calls have no idempotency key on the remote side.
func (c *Client) do(ctx context.Context, req request, out any) error {
	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.readRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay << (attempt - 2)
			logging.From(ctx).Debug("retrying read request",
				"path", req.path,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return goerr.Wrap(ctx.Err(), "request cancelled during backoff", goerr.V("path", req.path))
			case <-timer.C:
			}
		}

		retry, err := c.send(ctx, req, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return lastErr
}

func (c *Client) send(ctx context.Context, req request, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, goerr.Wrap(err, "rate limiter wait aborted", goerr.V("path", req.path))
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return false, goerr.Wrap(err, "failed to create request", goerr.V("path", req.path))
	}
	httpReq.Header.Set(headerAPIKey, c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ctx.Err() == nil, goerr.Wrap(err, "failed to send request",
			goerr.V("method", req.method),
			goerr.V("path", req.path))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ctx.Err() == nil, goerr.Wrap(err, "failed to read response body",
			goerr.V("method", req.method),
			goerr.V("path", req.path))
	}

	logging.From(ctx).Debug("remote call",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upErr := &model.UpstreamError{
			Method: req.method,
			Path:   req.path,
			Status: resp.StatusCode,
			Body:   truncate(data, maxErrorBody),
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, goerr.Wrap(upErr, "remote service returned error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", upErr.Body))
	}

	if out == nil {
		return false, nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return false, malformed(req, resp.StatusCode, data, goerr.New("empty response body"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, malformed(req, resp.StatusCode, data, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return false, malformed(req, resp.StatusCode, data, err)
		}
	}

	return false, nil
}

func malformed(req request, status int, data []byte, cause error) error {
	upErr := &model.UpstreamError{
		Method: req.method,
		Path:   req.path,
		Status: status,
		Body:   truncate(data, maxErrorBody),
	}
	return goerr.Wrap(upErr, "malformed response from remote service",
		goerr.V("reason", cause.Error()),
		goerr.V("path", req.path))
}

func truncate(data []byte, limit int) string {
	if len(data) > limit {
		return string(data[:limit])
	}
	return string(data)
}
