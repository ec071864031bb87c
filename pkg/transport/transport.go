// Package transport executes tap requests over go-resty with rate limiting,
// authentication and retries.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/Widen/tap-rest-api-msdk/pkg/auth"
	"github.com/Widen/tap-rest-api-msdk/telemetry"
	"github.com/Widen/tap-rest-api-msdk/utils/logger"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// Config configures the client behaviour
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitTime     time.Duration
	RetryMaxWaitTime  time.Duration
	RequestsPerSecond float64
	Headers           map[string]string
	Auth              auth.Authenticator
	// RetryAfter computes the delay before the next attempt and is honoured in
	// full. Zero falls back to exponential backoff bounded by RetryMaxWaitTime.
	RetryAfter func(resp *Response) time.Duration
}

// Request is one page request relative to the base url
type Request struct {
	Method  string
	Path    string
	Params  url.Values
	Headers map[string]string
	Body    any
}

// Response is a decoded page response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	JSON       any
	RequestURL *url.URL
}

type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultRequestTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = constants.DefaultMaxRetries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.DefaultUserAgent
	}
	if cfg.RetryWaitTime <= 0 {
		cfg.RetryWaitTime = time.Second
	}
	if cfg.RetryMaxWaitTime <= 0 {
		cfg.RetryMaxWaitTime = time.Minute
	}

	client := &Client{
		resty: resty.New().
			SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeaders(cfg.Headers).
			SetRetryCount(cfg.MaxRetries).
			SetRetryWaitTime(cfg.RetryWaitTime).
			SetRetryMaxWaitTime(cfg.RetryMaxWaitTime),
	}
	client.resty.JSONMarshal = json.Marshal
	client.resty.JSONUnmarshal = json.Unmarshal

	if cfg.RequestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	client.resty.AddRetryCondition(retryable)
	if cfg.RetryAfter != nil {
		// resty clamps the returned wait to its maximum
		client.resty.SetRetryMaxWaitTime(constants.MaxComputedRetryWait)
		client.resty.SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			attempt := 1
			if r != nil && r.Request != nil {
				attempt = r.Request.Attempt
			}
			if r != nil && r.RawResponse != nil {
				if wait := cfg.RetryAfter(toResponse(r)); wait > 0 {
					return min(wait, constants.MaxComputedRetryWait), nil
				}
			}
			return exponentialWait(cfg.RetryWaitTime, cfg.RetryMaxWaitTime, attempt), nil
		})
	}

	client.resty.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Attempt > 1 {
			telemetry.RetriesTotal.Inc()
			logger.Warnf("retrying %s %s, attempt %d", r.Method, r.URL, r.Attempt)
		}
		if client.limiter != nil {
			if err := client.limiter.Wait(r.Context()); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}
		return nil
	})

	if cfg.Auth != nil {
		authenticator := cfg.Auth
		client.resty.SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
			return authenticator.Apply(req.Context(), req)
		})
	}

	client.resty.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		telemetry.ObserveRequest(r.StatusCode(), r.Time())
		return nil
	})

	return client
}

// exponentialWait doubles base for every attempt after the first, up to ceiling
func exponentialWait(base, ceiling time.Duration, attempt int) time.Duration {
	wait := base
	for i := 1; i < attempt && wait < ceiling; i++ {
		wait *= 2
	}
	return min(wait, ceiling)
}

// retryable covers rate limiting, server errors and network failures
func retryable(r *resty.Response, err error) bool {
	if r != nil && r.Request != nil && r.Request.Context().Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Execute sends req and decodes the JSON body. Non-2xx responses that survive
// the retries are returned as *HTTPError.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := c.resty.R().SetContext(ctx).SetHeaders(req.Headers)
	if len(req.Params) > 0 {
		r.SetQueryParamsFromValues(req.Params)
	}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %s", err)
		}
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request %s %s failed: %w", method, req.Path, err)
	}

	out := toResponse(resp)
	if resp.IsError() || out.StatusCode < 200 || out.StatusCode >= 300 {
		return out, &HTTPError{
			StatusCode: out.StatusCode,
			Status:     resp.Status(),
			Body:       out.Body,
			Header:     out.Header,
		}
	}

	if len(bytes.TrimSpace(out.Body)) > 0 {
		if err := json.Unmarshal(out.Body, &out.JSON); err != nil {
			return out, fmt.Errorf("%w: response from %s is not valid json: %s", constants.ErrNonRetryable, out.RequestURL, err)
		}
	}
	return out, nil
}

func toResponse(r *resty.Response) *Response {
	out := &Response{
		StatusCode: r.StatusCode(),
		Header:     r.Header(),
		Body:       r.Body(),
	}
	if r.Request != nil && r.Request.RawRequest != nil {
		out.RequestURL = r.Request.RawRequest.URL
	}
	if out.Header == nil {
		out.Header = http.Header{}
	}
	return out
}

// HTTPError reports a non-2xx response
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(body))
}

// IsRateLimited returns true for 429 responses
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Retryable reports whether another attempt could have succeeded
func (e *HTTPError) Retryable() bool {
	return e.IsRateLimited() || e.StatusCode >= http.StatusInternalServerError
}

// AsHTTPError unwraps err into an *HTTPError
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
