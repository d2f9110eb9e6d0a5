package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/internal/ledger"
	"github.com/quantfold/momo/pkg/logger"
)

// Handler serves ranking and ledger state through the repositories.
type Handler struct {
	ranks  contracts.RankSnapshotRepository
	ledger contracts.LedgerRepository
	logger *logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(ranks contracts.RankSnapshotRepository, ledgerRepo contracts.LedgerRepository, log *logger.Logger) *Handler {
	return &Handler{ranks: ranks, ledger: ledgerRepo, logger: log}
}

// GetRankings returns one cohort's snapshots.
// GET /api/rankings/{cohort}?period=2026-08-21 (default: latest)
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohort := contracts.Cohort(mux.Vars(r)["cohort"])
	if !cohort.Valid() {
		respondError(w, http.StatusBadRequest, "unknown cohort")
		return
	}

	var period time.Time
	if p := r.URL.Query().Get("period"); p != "" {
		var err error
		if period, err = time.Parse("2006-01-02", p); err != nil {
			respondError(w, http.StatusBadRequest, "period must be YYYY-MM-DD")
			return
		}
	} else {
		latest, ok, err := h.ranks.LatestPeriodBefore(ctx, cohort, time.Now().UTC().AddDate(0, 0, 1))
		if err != nil {
			h.logger.WithError(err).Error("Failed to resolve latest period")
			respondError(w, http.StatusInternalServerError, "failed to resolve latest period")
			return
		}
		if !ok {
			respondError(w, http.StatusNotFound, "no ranking history for cohort")
			return
		}
		period = latest
	}

	snapshots, err := h.ranks.GetPeriod(ctx, cohort, period)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load snapshots")
		respondError(w, http.StatusInternalServerError, "failed to load snapshots")
		return
	}

	respondJSON(w, map[string]interface{}{
		"cohort":    cohort,
		"period":    period.Format("2006-01-02"),
		"snapshots": snapshots,
	})
}

// GetStockLedger returns all stock entries.
// GET /api/ledger/stocks
func (h *Handler) GetStockLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.AllStockEntries(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load stock ledger")
		respondError(w, http.StatusInternalServerError, "failed to load stock ledger")
		return
	}
	respondJSON(w, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// GetOptionLedger returns all option entries.
// GET /api/ledger/options
func (h *Handler) GetOptionLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.AllOptionEntries(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load option ledger")
		respondError(w, http.StatusInternalServerError, "failed to load option ledger")
		return
	}
	respondJSON(w, map[string]interface{}{"entries": entries, "count": len(entries)})
}

// GetPerformance returns the aggregate ledger metrics.
// GET /api/performance
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := ledger.ComputePerformance(r.Context(), h.ledger)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute performance")
		respondError(w, http.StatusInternalServerError, "failed to compute performance")
		return
	}
	respondJSON(w, perf)
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
