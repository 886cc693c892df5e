package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fleettriage/fleettriage/internal/history"
	"github.com/fleettriage/fleettriage/internal/metrics"
	"github.com/fleettriage/fleettriage/internal/selfcheck"
	"github.com/fleettriage/fleettriage/internal/triage"
)

// maxUploadBytes caps dataset uploads at 50MB.
const maxUploadBytes = 50 << 20

// TriageHandlers serves the analysis endpoints.
type TriageHandlers struct {
	analyzer    *triage.Analyzer
	history     *history.Store
	defaultTopN int
}

// NewTriageHandlers creates the analysis handler set. history may be nil
// to disable run recording; defaultTopN applies when the upload does not
// choose one.
func NewTriageHandlers(analyzer *triage.Analyzer, hist *history.Store, defaultTopN int) *TriageHandlers {
	return &TriageHandlers{analyzer: analyzer, history: hist, defaultTopN: defaultTopN}
}

// HandleAnalyze handles POST /api/analyze. The request is multipart with
// a "file" part carrying the CSV and an optional "cleaning_options" part
// carrying the cleaning JSON.
func (h *TriageHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	var opts triage.Options
	if raw := r.FormValue("cleaning_options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cleaning_options: "+err.Error())
			return
		}
	}
	if opts.TopN < 1 {
		opts.TopN = h.defaultTopN
	}

	start := time.Now()
	result, err := h.analyzer.Analyze(r.Context(), file, opts)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("error").Inc()
		writeDomainError(w, err)
		return
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.MachinesScored.Add(float64(result.TotalRows))
	outcome := "ok"
	if result.KPIs.Degraded {
		outcome = "degraded"
	}
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()

	if h.history != nil {
		if _, err := h.history.Record(r.Context(), header.Filename, result); err != nil {
			log.Warn().Err(err).Msg("Failed to record analysis run")
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListAnalyses handles GET /api/analyses.
func (h *TriageHandlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.history.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleSelfcheck handles GET /api/selfcheck: the host scored with the
// fleet detector.
func (h *TriageHandlers) HandleSelfcheck(w http.ResponseWriter, r *http.Request) {
	report, err := selfcheck.Collect(r.Context(), "/")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
