// Package apiclient talks to the remote LinkStride REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"linkstride-client/internal/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Client wraps two http.Clients: a public one for login/register and an
// authenticated one whose transport attaches the bearer token.
type Client struct {
	baseURL string
	public  *http.Client
	authed  *http.Client
	limiter *rate.Limiter
	logger  logger.ILogger

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

func NewClient(cfg Config, tokens oauth2.TokenSource, log logger.ILogger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimitRPS > 0 {
		limit = rate.Limit(cfg.RateLimitRPS)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		public:  &http.Client{Timeout: timeout},
		authed: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   http.DefaultTransport,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}
}

// OnUnauthorized registers the hook run after any authenticated call answered 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

type request struct {
	method string
	path   string
	body   interface{}
	authed bool
}

type errorBody struct {
	Message      string `json:"message"`
	Error        string `json:"error"`
	UpgradeToPro bool   `json:"upgradeToPro"`
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return classifyTransportError(err)
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return NewError(KindValidation, "encode request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return NewError(KindValidation, "build request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("APIClient", "API Request", map[string]interface{}{
		"method":     r.method,
		"path":       r.path,
		"request_id": requestID,
	})

	httpClient := c.public
	if r.authed {
		httpClient = c.authed
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		apiErr := classifyTransportError(err)
		c.logger.Warn("APIClient", "API Request Error", map[string]interface{}{
			"method":     r.method,
			"path":       r.path,
			"request_id": requestID,
			"kind":       string(apiErr.Kind),
			"error":      err.Error(),
		})
		if apiErr.Kind == KindUnauthorized && r.authed {
			c.unauthorized(ctx)
		}
		return apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := c.statusError(resp.StatusCode, data)
		c.logger.Warn("APIClient", "API Response Error", map[string]interface{}{
			"method":      r.method,
			"path":        r.path,
			"status":      resp.StatusCode,
			"request_id":  requestID,
			"message":     apiErr.Message,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if apiErr.Kind == KindUnauthorized && r.authed {
			c.unauthorized(ctx)
		}
		return apiErr
	}

	c.logger.Info("APIClient", "API Response", map[string]interface{}{
		"method":      r.method,
		"path":        r.path,
		"status":      resp.StatusCode,
		"request_id":  requestID,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &APIError{Kind: KindMalformed, Message: "empty response body", StatusCode: resp.StatusCode}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Kind: KindMalformed, Message: "decode response", StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) statusError(status int, data []byte) *APIError {
	apiErr := &APIError{Kind: kindForStatus(status), StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Error
		}
		apiErr.UpgradeRequired = status == http.StatusForbidden && eb.UpgradeToPro
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func (c *Client) unauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(context.WithoutCancel(ctx))
	}
}

func pathSegment(segment string) (string, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "", NewError(KindValidation, "empty path segment", nil)
	}
	return url.PathEscape(segment), nil
}

var errEmptyToken = errors.New("login response carried no token")
