package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MichalZG/gaia-targets/internal/catalog"
	"github.com/MichalZG/gaia-targets/internal/sky"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

type catalogTarget struct {
	Name   string            `json:"name"`
	RA     float64           `json:"ra"`
	Dec    float64           `json:"dec"`
	Values map[string]string `json:"values"`
}

type catalogResponse struct {
	Source   string          `json:"source"`
	LoadedAt time.Time       `json:"loaded_at"`
	Columns  []string        `json:"columns"`
	Count    int             `json:"count"`
	Targets  []catalogTarget `json:"targets"`
}

func (h *handlers) catalog(w http.ResponseWriter, r *http.Request) {
	cat := h.deps.Catalog
	resp := catalogResponse{Targets: []catalogTarget{}, Columns: []string{}}
	if cat != nil {
		resp.Source = cat.Source
		resp.LoadedAt = cat.LoadedAt
		resp.Columns = cat.Columns
		resp.Count = cat.Len()
		resp.Targets = make([]catalogTarget, 0, cat.Len())
		for _, t := range cat.Targets {
			values := make(map[string]string, len(cat.Columns))
			for _, col := range cat.Columns {
				switch col {
				case catalog.ColumnRA:
					values[col] = visibility.FormatDegrees(t.RA)
				case catalog.ColumnDec:
					values[col] = visibility.FormatDegrees(t.Dec)
				default:
					values[col] = t.Value(col)
				}
			}
			resp.Targets = append(resp.Targets, catalogTarget{Name: t.Name, RA: t.RA, Dec: t.Dec, Values: values})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type configResponse struct {
	Offsets           []int               `json:"offsets"`
	AltColumns        []string            `json:"alt_columns"`
	Defaults          visibility.Defaults `json:"defaults"`
	AltitudeThreshold float64             `json:"altitude_threshold"`
	Today             string              `json:"today"`
}

func (h *handlers) config(w http.ResponseWriter, r *http.Request) {
	cols := make([]string, len(h.deps.Offsets))
	for i, off := range h.deps.Offsets {
		cols[i] = visibility.AltColumn(off)
	}
	writeJSON(w, http.StatusOK, configResponse{
		Offsets:           h.deps.Offsets,
		AltColumns:        cols,
		Defaults:          h.deps.Defaults,
		AltitudeThreshold: AltitudeThreshold,
		Today:             h.deps.Clock.Now().UTC().Format("2006-01-02"),
	})
}

// compute resolves the query and runs it, writing the error response
// itself when it fails.
func (h *handlers) compute(w http.ResponseWriter, r *http.Request) (*visibility.Result, bool) {
	q, err := visibility.ParseQuery(r.URL.Query(), h.deps.Defaults, h.deps.Clock.Now())
	if err != nil {
		h.writeComputeError(w, r, err)
		return nil, false
	}
	req, err := q.Resolve()
	if err != nil {
		h.writeComputeError(w, r, err)
		return nil, false
	}
	res, err := h.deps.Computer.Compute(r.Context(), req)
	if err != nil {
		h.writeComputeError(w, r, err)
		return nil, false
	}
	return res, true
}

func (h *handlers) visibility(w http.ResponseWriter, r *http.Request) {
	res, ok := h.compute(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) table(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv", "invalid_parameter")
		return
	}
	res, ok := h.compute(w, r)
	if !ok {
		return
	}

	table := res.Table()
	if format != "csv" {
		writeJSON(w, http.StatusOK, table)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="visibility_`+res.Base.Format("20060102T15")+`.csv"`)
	if err := visibility.WriteCSV(w, table); err != nil {
		h.logger.Warn("csv write failed", "request_id", RequestID(r.Context()), "error", err)
	}
}

func (h *handlers) plot(w http.ResponseWriter, r *http.Request) {
	offset, hasOffset := 0, false
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer", "invalid_parameter")
			return
		}
		offset, hasOffset = n, true
	}

	res, ok := h.compute(w, r)
	if !ok {
		return
	}
	if !hasOffset {
		writeJSON(w, http.StatusOK, res.Plot)
		return
	}
	series, ok := res.PlotFor(offset)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset "+strconv.Itoa(offset)+" is not configured", "invalid_parameter")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Stats.Stats())
}

// writeComputeError maps domain errors to 400 with their kind. A client
// that went away gets nothing; anything else is a logged 500.
func (h *handlers) writeComputeError(w http.ResponseWriter, r *http.Request, err error) {
	switch kind := sky.Kind(err); {
	case kind != "internal":
		writeError(w, http.StatusBadRequest, err.Error(), kind)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		h.logger.Debug("request canceled", "request_id", RequestID(r.Context()))
	default:
		h.logger.Error("visibility computation failed",
			"request_id", RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": kind})
}
