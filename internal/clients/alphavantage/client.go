// Package alphavantage provides a client for the Alpha Vantage API
package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
)

var _ interfaces.MarketDataClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// flexFloat64 handles JSON values that may be either a number or a string.
// Unparseable strings ("None", ".", "-") leave valid=false.
type flexFloat64 struct {
	value float64
	valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64{value: num, valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, ok := parseNumber(s); ok {
			*f = flexFloat64{value: v, valid: true}
		} else {
			*f = flexFloat64{}
		}
		return nil
	}
	if string(data) == "null" {
		*f = flexFloat64{}
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// ptr returns a pointer to the value, or nil when absent
func (f flexFloat64) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// parseNumber coerces an upstream numeric string. A trailing percent sign is ignored.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     *common.APIKey
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the clock used for generated timestamps
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Alpha Vantage client. The key holder is read on
// every request so runtime updates take effect immediately.
func NewClient(apiKey *common.APIKey, opts ...ClientOption) *Client {
	if apiKey == nil {
		apiKey = common.NewAPIKey("")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Function   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d, function: %s)", e.Message, e.StatusCode, e.Function)
}

// Unwrap lets callers match upstream failures with errors.Is
func (e *APIError) Unwrap() error {
	return common.ErrUpstream
}

// get performs a rate-limited query and decodes the JSON body into result
func (c *Client) get(ctx context.Context, params url.Values, result interface{}) error {
	function := params.Get("function")

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("apikey", c.apiKey.Get())

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("function", function).Str("symbol", params.Get("symbol")).Msg("Alpha Vantage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL; keep the key out of the message
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.baseURL + "/query"
		}
		return fmt.Errorf("%w: %s request failed: %s", common.ErrUpstream, function, redact(err.Error(), c.apiKey.Get()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", common.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Function:   function,
		}
	}

	if err := c.checkPayload(body, function); err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", common.ErrUpstream, function, err)
	}

	return nil
}

// checkPayload inspects the top-level keys Alpha Vantage uses to report
// errors and throttling inside a 200 response.
func (c *Client) checkPayload(body []byte, function string) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}

	if raw, ok := envelope["Error Message"]; ok {
		return &APIError{StatusCode: http.StatusOK, Message: rawString(raw), Function: function}
	}

	for _, key := range []string{"Information", "Note"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		msg := rawString(raw)
		c.logger.Warn().Str("function", function).Str("message", msg).Msg("Alpha Vantage API notice")
		if len(envelope) == 1 {
			return &APIError{StatusCode: http.StatusOK, Message: msg, Function: function}
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, secret, "***")
	return strings.ReplaceAll(s, url.QueryEscape(secret), "***")
}
