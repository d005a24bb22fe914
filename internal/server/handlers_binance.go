package server

import (
	"net/http"

	"github.com/bobmcallan/fihub/internal/models"
)

func (s *Server) handleBinanceSetCredentials(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var creds models.BinanceCredentials
	if !DecodeJSON(w, r, &creds) {
		return
	}

	result, err := s.app.BrokerService.SetCredentials(r.Context(), creds)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Credentials updated",
		"connection_test": result,
	})
}

func (s *Server) handleBinanceAccount(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	account, err := s.app.BrokerService.GetAccount(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, account)
}

func (s *Server) handleBinanceOpenOrders(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	orders, err := s.app.BrokerService.GetOpenOrders(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, orders)
}

func (s *Server) handleBinanceTradingPairs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pairs, err := s.app.BrokerService.GetTradingPairs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, pairs)
}

func (s *Server) handleBinanceTestConnection(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.BrokerService.TestConnection(r.Context()))
}

func (s *Server) handleBinanceIPStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ip := clientIP(r)
	WriteJSON(w, http.StatusOK, models.IPStatusReport{
		CurrentIP: ip,
		Status:    s.app.BrokerService.IPStatus(ip),
	})
}
