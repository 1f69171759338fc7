package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/optispark/tiercast/internal/domain"
)

// envelope is the uniform response wrapper.
type envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, result interface{}) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Result: result})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{OK: false, Error: msg})
}

// handleByDate serves the stored record for an exact date, re-rendered as a
// full explanation.
func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["date"]
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	rec, err := s.tiers.Get(r.Context(), domain.DateOnly(date))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no tiers for "+raw)
			return
		}
		s.log.Error().Err(err).Str("date", raw).Msg("tier lookup failed")
		writeError(w, http.StatusInternalServerError, "tier lookup failed")
		return
	}

	s.explainRecord(w, r, *rec)
}

// handleLatest serves the most recent stored record.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.tiers.Latest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no tiers recorded yet")
			return
		}
		s.log.Error().Err(err).Msg("latest tier lookup failed")
		writeError(w, http.StatusInternalServerError, "tier lookup failed")
		return
	}

	s.explainRecord(w, r, *rec)
}

func (s *Server) explainRecord(w http.ResponseWriter, r *http.Request, rec domain.DailyTierRecord) {
	yesterday, err := s.tiers.LatestBefore(r.Context(), rec.Date)
	if err != nil {
		s.log.Warn().Err(err).Msg("prior tier lookup failed, explanation degrades")
		yesterday = nil
	}
	bar, err := s.prices.LatestBefore(r.Context(), s.ticker, rec.Date)
	if err != nil {
		s.log.Warn().Err(err).Msg("prior price lookup failed, explanation degrades")
		bar = nil
	}
	writeResult(w, s.generator.Generate(rec, yesterday, bar))
}

// computeRequest is the body for on-demand computation. An empty as_of
// resolves to the latest observation date.
type computeRequest struct {
	AsOf string `json:"as_of"`
}

// handleCompute runs the full pipeline for a date and returns the
// explanation. A failed durable write still returns the result with 200;
// durable=false tells callers to retry later.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := s.runner.ResolveDate(r.Context(), req.AsOf)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no observations available")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), date)
	if err != nil {
		if errors.Is(err, domain.ErrNoTargetData) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("compute failed")
		writeError(w, http.StatusInternalServerError, "compute failed")
		return
	}

	writeResult(w, struct {
		Explanation interface{} `json:"explanation"`
		Durable     bool        `json:"durable"`
	}{Explanation: res.Explanation, Durable: res.Durable})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, map[string]string{"status": "ok"})
}
