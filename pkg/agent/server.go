// Package agent exposes the analysis engine over HTTP for the profile
// editor frontend. The UI itself lives elsewhere; this is only the
// series-in, components-out endpoint.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/analyze"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/config"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/profile"
	"github.com/TYPOWERS/ferm-process-version-json-builder/pkg/series"
)

type Server struct {
	cfg config.Config
	log *zap.Logger
}

func NewServer(cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, log: log}
}

func (s *Server) ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)

	addr := fmt.Sprintf(":%d", port)
	s.log.Info("analysis agent listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// analyzeRequest carries a raw series and an optional per-call config
// override; absent, the server default applies.
type analyzeRequest struct {
	Samples series.Series  `json:"samples"`
	Config  *config.Config `json:"config,omitempty"`
}

type analyzeResponse struct {
	Components []profile.Component `json:"components"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	cfg := s.cfg
	if req.Config != nil {
		cfg = *req.Config
	}

	a := analyze.New(cfg, analyze.WithLogger(s.log))
	components, err := a.Run(req.Samples)
	if err != nil {
		var coverage *analyze.UnresolvedCoverageError
		switch {
		case errors.As(err, &coverage):
			// Internal invariant breach, not a caller problem.
			s.log.Error("resolver invariant breach", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		case errors.Is(err, analyze.ErrEmptySeries), errors.Is(err, config.ErrInvalidConfig):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyzeResponse{Components: components})
}
