package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/docstore"
	"github.com/Champion2005/amicooked/pkg/logger"
	"github.com/Champion2005/amicooked/pkg/providers"
	"github.com/Champion2005/amicooked/pkg/scoring"
)

// Server is the REST and websocket front of a Gateway.
type Server struct {
	gw   *Gateway
	http *http.Server
}

func NewServer(gw *Gateway, addr string) *Server {
	s := &Server{gw: gw}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can drive
// it without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/users/{uid}/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/users/{uid}/result", s.handleResult)
	mux.HandleFunc("GET /api/users/{uid}/memory", s.handleMemoryStatus)
	mux.HandleFunc("POST /api/users/{uid}/memory", s.handleMemoryAdd)
	mux.HandleFunc("PUT /api/users/{uid}/memory", s.handleMemoryToggle)
	mux.HandleFunc("GET /ws/chat", s.handleChat)
	return mux
}

// Start serves until Shutdown; a closed server is not an error.
func (s *Server) Start() error {
	logger.InfoC("http", fmt.Sprintf("Listening on %s", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeRequest optionally refreshes stored metrics and overrides
// category weights for this run.
type analyzeRequest struct {
	Metrics        map[string]any `json:"metrics"`
	WeightOverride map[string]any `json:"weightOverride"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	var req analyzeRequest
	if r.Body != nil {
		// Empty bodies are fine; only malformed JSON is rejected.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	if req.Metrics != nil {
		if err := s.gw.deps.Docs.Set(r.Context(), docstore.MetricsPath(uid), req.Metrics); err != nil {
			writeError(w, http.StatusInternalServerError, "storing metrics failed")
			return
		}
	}

	a, err := s.gw.Session(r.Context(), uid, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	if req.Metrics != nil {
		a.SetMetrics(req.Metrics)
	}

	var override scoring.Weights
	if req.WeightOverride != nil {
		override = scoring.ParseWeightOverride(req.WeightOverride)
	}

	res, err := a.AnalyzeProfileWith(r.Context(), nil, "", override)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	a, err := s.gw.Session(r.Context(), uid, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	prior := a.Prior()
	if prior == nil {
		writeError(w, http.StatusNotFound, "no assessment on file")
		return
	}
	writeJSON(w, http.StatusOK, prior)
}

func (s *Server) handleMemoryStatus(w http.ResponseWriter, r *http.Request) {
	a, err := s.gw.Session(r.Context(), r.PathValue("uid"), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, a.MemoryStatus())
}

type memoryAddRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (s *Server) handleMemoryAdd(w http.ResponseWriter, r *http.Request) {
	var req memoryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	a, err := s.gw.Session(r.Context(), r.PathValue("uid"), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	status, err := a.AddMemory(r.Context(), req.Type, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "memory write failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type memoryToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleMemoryToggle(w http.ResponseWriter, r *http.Request) {
	var req memoryToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	a, err := s.gw.Session(r.Context(), r.PathValue("uid"), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	status, err := a.SetMemoryEnabled(r.Context(), req.Enabled)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "memory update failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// writeAnalysisError maps pipeline failures to transport-appropriate
// statuses: upstream throttling to 429, extraction failures to 502.
func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case providers.IsRateLimitError(err):
		writeError(w, http.StatusTooManyRequests, agent.FormatUserError(err))
	case scoring.IsScoringFailed(err), scoring.IsSynthesisFailed(err):
		writeError(w, http.StatusBadGateway, agent.FormatUserError(err))
	default:
		writeError(w, http.StatusInternalServerError, agent.FormatUserError(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnC("http", fmt.Sprintf("Encoding response: %v", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
