// Package broker exposes Binance account data and credential management
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bobmcallan/fihub/internal/clients/binance"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/models"
)

// Connection test outcomes
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var _ interfaces.BrokerService = (*Service)(nil)

// Service implements BrokerService
type Service struct {
	client interfaces.BrokerClient
	creds  *binance.Credentials
	logger *common.Logger

	mu         sync.RWMutex
	allowedIPs []string
}

// NewService creates a broker service. creds is the holder the client
// signs with; updates through SetCredentials apply to the next request.
func NewService(client interfaces.BrokerClient, creds *binance.Credentials, allowedIPs []string, logger *common.Logger) *Service {
	return &Service{
		client:     client,
		creds:      creds,
		logger:     logger,
		allowedIPs: cleanIPs(allowedIPs),
	}
}

func cleanIPs(ips []string) []string {
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			out = append(out, ip)
		}
	}
	return out
}

// SetCredentials replaces the key pair and allow-list, then tests the
// connection with them. Credentials are held in memory only.
func (s *Service) SetCredentials(ctx context.Context, creds models.BinanceCredentials) (models.ConnectionTest, error) {
	key, secret := strings.TrimSpace(creds.APIKey), strings.TrimSpace(creds.APISecret)
	if key == "" || secret == "" {
		return models.ConnectionTest{}, binance.ErrMissingCredentials
	}

	s.creds.Set(key, secret)
	s.mu.Lock()
	s.allowedIPs = cleanIPs(creds.AllowedIPs)
	s.mu.Unlock()

	s.logger.Info().Int("allowed_ips", len(creds.AllowedIPs)).Msg("Binance credentials updated")
	return s.TestConnection(ctx), nil
}

// TestConnection pings the exchange and then tries a signed request.
// Status is success only when both pass.
func (s *Service) TestConnection(ctx context.Context) models.ConnectionTest {
	if !s.creds.Configured() {
		return models.ConnectionTest{
			Status:  StatusFailed,
			Message: "API key and secret are required for connection test",
		}
	}

	if err := s.client.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Binance ping failed")
		return models.ConnectionTest{Status: StatusFailed, Message: "Connection failed"}
	}

	if _, err := s.client.GetAccount(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Binance authentication failed")
		return models.ConnectionTest{Status: StatusFailed, Ping: true, Message: "Authentication failed"}
	}

	return models.ConnectionTest{Status: StatusSuccess, Ping: true, Auth: true, Message: "Connection successful"}
}

// IPStatus reports whether ip is in the configured allow-list
func (s *Service) IPStatus(ip string) models.IPStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.allowedIPs) == 0 {
		return models.IPStatus{Status: models.IPStatusUnconfigured, Message: "No IP restrictions configured"}
	}
	for _, allowed := range s.allowedIPs {
		if allowed == ip {
			return models.IPStatus{Status: models.IPStatusAllowed, Message: "IP is in the allowed list"}
		}
	}
	return models.IPStatus{Status: models.IPStatusRestricted, Message: "IP is not in the allowed list"}
}

// GetAccount returns the raw account snapshot
func (s *Service) GetAccount(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.client.GetAccount(ctx)
	if err != nil {
		return nil, wrap("account", err)
	}
	return raw, nil
}

// GetOpenOrders returns open orders, optionally for one symbol
func (s *Service) GetOpenOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	raw, err := s.client.GetOpenOrders(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, wrap("open orders", err)
	}
	return raw, nil
}

// GetTradingPairs lists symbols currently trading
func (s *Service) GetTradingPairs(ctx context.Context) ([]models.TradingPair, error) {
	pairs, err := s.client.GetTradingPairs(ctx)
	if err != nil {
		return nil, wrap("trading pairs", err)
	}
	return pairs, nil
}

// wrap turns credential rejections into bad-request errors so callers
// can tell them apart from exchange outages.
func wrap(op string, err error) error {
	if binance.IsAuthError(err) {
		return fmt.Errorf("%w: binance rejected credentials for %s: %w", common.ErrInvalidParameter, op, err)
	}
	return fmt.Errorf("binance %s: %w", op, err)
}
