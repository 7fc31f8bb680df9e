package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/mchmarny/top1m/pkg/data"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryParamInt returns the named parameter when it is a number within
// [lo, hi], or def otherwise.
func queryParamInt(r *http.Request, key string, def, lo, hi int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("error converting query string to int", "value", v, "error", err)
		return def
	}

	if i < lo || i > hi {
		return def
	}

	return i
}

// runIDParam resolves the run query parameter, falling back to the latest run.
func runIDParam(db *sql.DB, r *http.Request) (int64, error) {
	if v := r.URL.Query().Get("run"); v != "" {
		return strconv.ParseInt(v, 10, 64)
	}
	return data.GetLatestRunID(db)
}

func runsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryParamInt(r, "limit", runLimitDefault, 1, queryResultLimitDefault)
		list, err := data.GetRuns(db, limit)
		if err != nil {
			slog.Error("failed to get runs", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func rankingAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := runIDParam(db, r)
		if err != nil {
			writeRunError(w, err)
			return
		}

		offset := queryParamInt(r, "offset", 0, 0, math.MaxInt32)
		limit := queryParamInt(r, "limit", queryResultLimitDefault, 1, queryResultLimitMax)

		page, err := getRankingPage(db, id, offset, limit)
		if err != nil {
			writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func runSourcesAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := runIDParam(db, r)
		if err != nil {
			writeRunError(w, err)
			return
		}

		list, err := data.GetRunSources(db, id)
		if err != nil {
			slog.Error("failed to get run sources", "run", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get run sources")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func domainAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := r.URL.Query().Get("d")
		if d == "" {
			writeError(w, http.StatusBadRequest, "domain parameter d is required")
			return
		}

		limit := queryParamInt(r, "limit", runLimitDefault, 1, queryResultLimitDefault)
		list, err := data.GetDomainHistory(db, d, limit)
		if err != nil {
			slog.Error("failed to get domain history", "domain", d, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get domain history")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func stateAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, err := data.GetDataState(db)
		if err != nil {
			slog.Error("failed to get data state", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get data state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &numErr):
		writeError(w, http.StatusBadRequest, "invalid run parameter")
	case errors.Is(err, data.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	default:
		slog.Error("failed to get run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
	}
}
