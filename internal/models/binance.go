package models

import "encoding/json"

// TradingPair is a tradable symbol from the exchange info endpoint.
type TradingPair struct {
	Symbol     string            `json:"symbol"`
	BaseAsset  string            `json:"base_asset"`
	QuoteAsset string            `json:"quote_asset"`
	Status     string            `json:"status"`
	Filters    []json.RawMessage `json:"filters"`
}

// ConnectionTest reports exchange reachability and credential validity.
type ConnectionTest struct {
	Status  string `json:"status"`
	Ping    bool   `json:"ping"`
	Auth    bool   `json:"auth"`
	Message string `json:"message"`
}

// IP allow-list states
const (
	IPStatusUnconfigured = "unconfigured"
	IPStatusAllowed      = "allowed"
	IPStatusRestricted   = "restricted"
)

// IPStatus reports whether an address is in the configured allow-list.
type IPStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// IPStatusReport pairs the caller address with its allow-list status.
type IPStatusReport struct {
	CurrentIP string   `json:"current_ip"`
	Status    IPStatus `json:"status"`
}

// BinanceCredentials is the body of the set-credentials request.
type BinanceCredentials struct {
	APIKey     string   `json:"api_key"`
	APISecret  string   `json:"api_secret"`
	AllowedIPs []string `json:"allowed_ips,omitempty"`
}
