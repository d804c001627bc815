package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/provider"
)

// Server handles the analysis HTTP endpoints.
type Server struct {
	engine  *engine.Engine
	symbols []string
	logger  *zap.Logger
}

func NewServer(eng *engine.Engine, symbols []string, logger *zap.Logger) *Server {
	return &Server{engine: eng, symbols: symbols, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"symbols": s.symbols,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	analysis, err := s.engine.Analyze(r.Context(), symbol)
	if err != nil {
		s.writeAnalysisError(w, symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	analysis, err := s.engine.Analyze(r.Context(), symbol)
	if err != nil {
		s.writeAnalysisError(w, symbol, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     analysis.Symbol,
		"spot_price": analysis.SpotPrice,
		"levels":     analysis.Levels,
		"timestamp":  analysis.Timestamp,
	})
}

// analyzeRequest is the push-mode body: the caller supplies the chain
// instead of going through the configured provider.
type analyzeRequest struct {
	Symbol    string             `json:"symbol"`
	SpotPrice float64            `json:"spot_price"`
	Chain     []gex.OptionRecord `json:"chain"`
}

func (s *Server) handleAnalyzeChain(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}
	if req.SpotPrice <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "spot_price must be positive"})
		return
	}

	analysis, err := s.engine.AnalyzeChain(strings.ToUpper(req.Symbol), req.SpotPrice, req.Chain)
	if err != nil {
		if errors.Is(err, gex.ErrInvalidSpot) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("push-mode analysis failed", zap.String("symbol", req.Symbol), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, symbol string, err error) {
	if errors.Is(err, provider.ErrSymbolNotFound) || errors.Is(err, provider.ErrNoData) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no chain data for " + symbol})
		return
	}
	s.logger.Error("analysis failed", zap.String("symbol", symbol), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
