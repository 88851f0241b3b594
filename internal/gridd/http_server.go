// Package gridd serves result tables and the run log over HTTP and gRPC.
package gridd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/gridrun/internal/store"
	"github.com/GoSim-25-26J-441/gridrun/pkg/frame"
	"github.com/GoSim-25-26J-441/gridrun/pkg/logger"
)

type HTTPServer struct {
	mux   *http.ServeMux
	store *store.Store
}

func NewHTTPServer(st *store.Store) *HTTPServer {
	s := &HTTPServer{
		mux:   http.NewServeMux(),
		store: st,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/tables", s.handleListTables)
	s.mux.HandleFunc("/v1/tables/", s.handleTable)
	s.mux.HandleFunc("/v1/runs", s.handleListRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleListTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tables, err := s.store.Tables()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tables == nil {
		tables = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// handleTable handles /v1/tables/{name} and /v1/tables/{name}/{records,count,chart}
func (s *HTTPServer) handleTable(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tables/")
	name, sub, _ := strings.Cut(path, "/")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "table name is required")
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.handleDescribeTable(w, r, name)
		case http.MethodDelete:
			s.handleDropTable(w, r, name)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "records", "count", "chart":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		f, ok := s.loadTable(w, name)
		if !ok {
			return
		}
		switch sub {
		case "records":
			s.handleRecords(w, r, f)
		case "count":
			s.handleCount(w, r, f)
		case "chart":
			s.handleChart(w, r, name, f)
		}
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

// loadTable reads a table, writing the error response when it fails.
func (s *HTTPServer) loadTable(w http.ResponseWriter, name string) (*frame.Frame, bool) {
	f, err := s.store.GetTable(name)
	if err != nil {
		s.writeStoreError(w, err)
		return nil, false
	}
	return f, true
}

func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrTableNotFound), errors.Is(err, store.ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTable):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) handleDescribeTable(w http.ResponseWriter, r *http.Request, name string) {
	f, ok := s.loadTable(w, name)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"columns": f.Columns(),
		"rows":    f.Len(),
	})
}

func (s *HTTPServer) handleDropTable(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.store.Drop(name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	logger.Info("table dropped", "table", name)
	w.WriteHeader(http.StatusNoContent)
}

// handleRecords writes the rows of a table as JSON (default), CSV or an
// aligned text table. Query parameters other than format are equality
// filters on columns.
func (s *HTTPServer) handleRecords(w http.ResponseWriter, r *http.Request, f *frame.Frame) {
	query := r.URL.Query()
	format := query.Get("format")
	query.Del("format")
	f, err := applyFilters(f, query, nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch format {
	case "", "json":
		s.writeJSON(w, http.StatusOK, map[string]any{
			"columns": f.Columns(),
			"records": f,
			"count":   f.Len(),
		})
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := f.WriteCSV(w); err != nil {
			logger.Error("failed to write csv response", "error", err)
		}
	case "table":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		f.WriteTable(w)
	default:
		s.writeError(w, http.StatusBadRequest, "format must be json, csv or table")
	}
}

// handleCount counts rows per distinct combination of the comma separated
// keys parameter.
func (s *HTTPServer) handleCount(w http.ResponseWriter, r *http.Request, f *frame.Frame) {
	raw := r.URL.Query().Get("keys")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "keys is required")
		return
	}
	counts, err := frame.CountRecords(f, strings.Split(raw, ","))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"columns": counts.Columns(),
		"records": counts,
	})
}

func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"limit": limit,
	})
}

func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	run, err := s.store.GetRun(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
