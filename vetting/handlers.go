package vetting

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"phisheye/features"
)

const maxBodyBytes = 1 << 20

// AnalyzeBatchRequest is the body of POST /api/v1/analyze/batch.
type AnalyzeBatchRequest struct {
	URLs    []string `json:"urls"`
	Explain bool     `json:"explain,omitempty"`
}

// AnalyzeBatchResponse wraps per-URL results.
type AnalyzeBatchResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Results []BatchResult `json:"results"`
}

// Handler serves the HTTP API for an Analyzer.
type Handler struct {
	analyzer *Analyzer
	logger   *slog.Logger
	started  time.Time
}

// NewHandler creates a Handler; a nil logger uses slog.Default.
func NewHandler(a *Analyzer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{analyzer: a, logger: logger, started: time.Now()}
}

// NewRouter mounts the API routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/analyze/batch", h.AnalyzeBatch)
		r.Get("/model", h.ModelInfo)
	})
	return r
}

// Health reports service status, model presence and domain cache size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if _, ok := h.analyzer.ModelInfo(); !ok {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"message":        "PhishEye threat scoring service is running",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"cached_domains": h.analyzer.CachedDomains(),
	})
}

// Analyze scores the URL in a Request body and returns its Report.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, invalidRequest(err.Error()))
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AnalyzeBatch scores every URL in the body within one request timeout.
func (h *Handler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeBatchRequest
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, invalidRequest(err.Error()))
		return
	}

	reqs := make([]Request, len(body.URLs))
	for i, u := range body.URLs {
		reqs[i] = Request{URL: u, Explain: body.Explain}
	}

	results, err := h.analyzer.AnalyzeBatch(r.Context(), reqs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeBatchResponse{Success: true, Count: len(results), Results: results})
}

// ModelInfo describes the loaded classifier and its feature schema.
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := h.analyzer.ModelInfo()
	if !ok {
		h.fail(w, r, &Error{Code: CodeClassifierUnavailable, Status: http.StatusServiceUnavailable, Err: ErrClassifierUnavailable})
		return
	}
	if info.SchemaVersion == "" {
		info.SchemaVersion = features.SchemaVersion
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
