package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/fihub/internal/models"
)

func (s *Server) handleStockDaily(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	records, err := s.app.StockService.GetStockData(r.Context(), symbol, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleStockIntraday(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "5min"
	}

	records, err := s.app.StockService.GetIntradayData(r.Context(), symbol, interval)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	keywords := strings.TrimPrefix(r.URL.Path, "/api/stock/search/")
	matches, err := s.app.StockService.SearchSymbols(r.Context(), keywords)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, matches)
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	name := PathParam(r, "/api/indicator/", "")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "indicator name is required in path")
		return
	}

	q := r.URL.Query()
	records, err := s.app.IndicatorService.GetIndicatorData(r.Context(), name, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleIndicatorList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.IndicatorService.AvailableIndicators())
}

// handleTechnical serves /api/technical/{symbol}/{indicator}.
func (s *Server) handleTechnical(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/technical/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusNotFound, "expected /api/technical/{symbol}/{indicator}")
		return
	}

	timePeriod, err := queryInt(r, "time_period", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	records, err := s.app.TechnicalService.GetIndicatorData(r.Context(), models.TechnicalQuery{
		Symbol:     parts[0],
		Indicator:  parts[1],
		Interval:   q.Get("interval"),
		TimePeriod: timePeriod,
		SeriesType: q.Get("series_type"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleTechnicalList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": s.app.TechnicalService.AvailableIndicators(),
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := PathParam(r, "/api/options/", "")
	requireGreeks, err := queryBool(r, "require_greeks", false)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	contracts, err := s.app.OptionsService.GetOptionsChain(r.Context(), symbol, requireGreeks)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, contracts)
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	result, err := s.app.CorrelationService.Calculate(r.Context(),
		queryList(r, "stocks"), queryList(r, "indicators"),
		q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleMarketMovers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	movers, err := s.app.MarketService.GetMarketMovers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, movers)
}

// handleAPIKey reads (GET) or replaces (POST) the Alpha Vantage key.
func (s *Server) handleAPIKey(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		WriteJSON(w, http.StatusOK, map[string]string{
			"apikey": s.app.MarketService.GetAPIKey(r.Context()),
		})
		return
	}

	var req struct {
		APIKey string `json:"apikey"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.app.MarketService.UpdateAPIKey(r.Context(), req.APIKey); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "API key updated successfully",
		"apikey":  s.app.MarketService.GetAPIKey(r.Context()),
	})
}
