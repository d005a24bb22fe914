// Package binance provides a signed client for the Binance spot REST API
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

var _ interfaces.BrokerClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://api.binance.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// ErrMissingCredentials is returned by signed calls before any credentials are set
var ErrMissingCredentials = fmt.Errorf("%w: API key and secret are required", common.ErrInvalidParameter)

// Credentials holds the API key pair. It is shared between the client and
// the broker service so a runtime update applies to the next request.
type Credentials struct {
	mu     sync.RWMutex
	key    string
	secret string
}

// NewCredentials creates a holder seeded with key and secret
func NewCredentials(key, secret string) *Credentials {
	return &Credentials{key: key, secret: secret}
}

// Set replaces both values
func (c *Credentials) Set(key, secret string) {
	c.mu.Lock()
	c.key, c.secret = key, secret
	c.mu.Unlock()
}

// Get returns the current key and secret
func (c *Credentials) Get() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key, c.secret
}

// Configured reports whether both values are present
func (c *Credentials) Configured() bool {
	key, secret := c.Get()
	return key != "" && secret != ""
}

// Client implements the BrokerClient interface
type Client struct {
	baseURL    string
	creds      *Credentials
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

// WithClock sets the clock used for request timestamps
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Binance client
func NewClient(creds *Credentials, opts ...ClientOption) *Client {
	if creds == nil {
		creds = NewCredentials("", "")
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
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

// APIError represents an error body returned by Binance
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Binance API error: %s (status: %d, code: %d, path: %s)", e.Message, e.StatusCode, e.Code, e.Path)
}

// Unwrap lets callers match upstream failures with errors.Is
func (e *APIError) Unwrap() error {
	return common.ErrUpstream
}

// sign returns the hex HMAC-SHA256 of payload
func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// get performs a rate-limited request. Signed requests carry a millisecond
// timestamp, the HMAC signature over the encoded query and the API key header.
func (c *Client) get(ctx context.Context, path string, params url.Values, signed bool, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}

	var key string
	query := params.Encode()
	if signed {
		var secret string
		key, secret = c.creds.Get()
		if key == "" || secret == "" {
			return ErrMissingCredentials
		}
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		query = params.Encode()
		query += "&signature=" + sign(secret, query)
	}

	reqURL := c.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", key)
	}

	c.logger.Debug().Str("path", path).Bool("signed", signed).Msg("Binance API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %v", common.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", common.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Message: strings.TrimSpace(string(body))}
		var envelope struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Msg != "" {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Msg
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("Binance API error")
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", common.ErrUpstream, path, err)
	}
	return nil
}

// Ping checks exchange reachability
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/api/v3/ping", nil, false, nil)
}

// GetAccount retrieves the signed account snapshot
func (c *Client) GetAccount(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/v3/account", nil, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetOpenOrders retrieves open orders, optionally for one symbol
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", strings.ToUpper(symbol))
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/api/v3/openOrders", params, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string            `json:"symbol"`
		Status     string            `json:"status"`
		BaseAsset  string            `json:"baseAsset"`
		QuoteAsset string            `json:"quoteAsset"`
		Filters    []json.RawMessage `json:"filters"`
	} `json:"symbols"`
}

// GetTradingPairs lists symbols currently in TRADING status
func (c *Client) GetTradingPairs(ctx context.Context) ([]models.TradingPair, error) {
	var resp exchangeInfoResponse
	if err := c.get(ctx, "/api/v3/exchangeInfo", nil, false, &resp); err != nil {
		return nil, err
	}

	pairs := make([]models.TradingPair, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		pairs = append(pairs, models.TradingPair{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
			Filters:    s.Filters,
		})
	}
	return pairs, nil
}

// Error codes Binance uses to reject a key or signature
const (
	codeInvalidSignature = -1022
	codeBadAPIKeyFormat  = -2014
	codeRejectedAPIKey   = -2015
)

// IsAuthError reports whether err is an upstream rejection of the credentials
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case codeInvalidSignature, codeBadAPIKeyFormat, codeRejectedAPIKey:
		return true
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
