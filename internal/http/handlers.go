package http

import (
	"context"
	"net/http"
	"strconv"

	"faturamento/internal/log"
	"faturamento/internal/storage"
)

const defaultListLimit = 50

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	for _, check := range s.ready {
		if err := check(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleReport builds the report of the configured sources.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseReportOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rep, err := s.reports.Build(ctx, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportView(rep))
}

// handleReportFromBody computes a report over the posted table without
// storing it.
func (s *Server) handleReportFromBody(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseReportOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, table, err := readTable(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rep, err := s.reports.BuildFromTable(ctx, name, table, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportView(rep))
}

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseReportOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, table, err := readTable(w, r, s.maxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res, err := s.uploads.Upload(ctx, name, "upload", table, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	w.Header().Set("Location", "/api/uploads/"+res.Upload.ID)
	writeJSON(w, status, res)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Detail: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	uploads, err := s.uploads.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if uploads == nil {
		uploads = []storage.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	up, err := s.uploads.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseReportOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rep, err := s.uploads.ReportForUpload(ctx, r.PathValue("id"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportView(rep))
}
