package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/fihub/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Market data
	mux.HandleFunc("/api/stock/search/", s.handleStockSearch)
	mux.HandleFunc("/api/stock/", s.routeStock)
	mux.HandleFunc("/api/indicator/available/list", s.handleIndicatorList)
	mux.HandleFunc("/api/indicator/", s.handleIndicator)
	mux.HandleFunc("/api/technical/available/list", s.handleTechnicalList)
	mux.HandleFunc("/api/technical/", s.handleTechnical)
	mux.HandleFunc("/api/options/", s.handleOptions)
	mux.HandleFunc("/api/correlation", s.handleCorrelation)
	mux.HandleFunc("/api/market/movers", s.handleMarketMovers)
	mux.HandleFunc("/api/apikey", s.handleAPIKey)

	// Earnings
	mux.HandleFunc("/api/earnings/analyze/", s.handleEarningsAnalyze)
	mux.HandleFunc("/api/financials/", s.handleFinancials)

	// Broker
	mux.HandleFunc("/api/binance/set-credentials", s.handleBinanceSetCredentials)
	mux.HandleFunc("/api/binance/account", s.handleBinanceAccount)
	mux.HandleFunc("/api/binance/open-orders", s.handleBinanceOpenOrders)
	mux.HandleFunc("/api/binance/trading-pairs", s.handleBinanceTradingPairs)
	mux.HandleFunc("/api/binance/test-connection", s.handleBinanceTestConnection)
	mux.HandleFunc("/api/binance/ip-status", s.handleBinanceIPStatus)
}

// routeStock dispatches /api/stock/{symbol} and /api/stock/{symbol}/intraday.
func (s *Server) routeStock(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stock/"), "/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		s.handleStockDaily(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "intraday":
		s.handleStockIntraday(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
		"caches":  s.app.CacheStats(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
