package server

import (
	"net/http"

	"github.com/bobmcallan/fihub/internal/models"
)

func (s *Server) handleEarningsAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	req := models.TranscriptRequest{
		Symbol:  PathParam(r, "/api/earnings/analyze/", ""),
		Quarter: r.URL.Query().Get("quarter"),
	}

	var err error
	if req.AnalyzePastQuarters, err = queryBool(r, "analyze_past_quarters", false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if req.NumQuarters, err = queryInt(r, "num_quarters", 0); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if req.IncludeFinancials, err = queryBool(r, "include_financials", true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	analysis, err := s.app.TranscriptService.Analyze(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	financials, err := s.app.TranscriptService.GetFinancials(r.Context(), PathParam(r, "/api/financials/", ""))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, financials)
}
