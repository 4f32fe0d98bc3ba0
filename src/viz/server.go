// Package viz serves the graph visualization page, its sample data and
// the Prometheus metrics endpoint.
package viz

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hybridchat/src/model"
)

// Server hosts the visualization endpoints.
type Server struct {
	cfg  model.VizConfig
	log  zerolog.Logger
	http *http.Server
}

// NewServer builds the server with its routes registered.
func NewServer(cfg model.VizConfig, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/sample_graph", s.handleSampleGraph).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.cfg.Addr).Msg("Starting visualization server")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, "neo4j_viz.html"))
}

func (s *Server) handleSampleGraph(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.DataDir, "sample_graph.json")
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Sample graph not found")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sample graph not found"})
		return
	}

	// Validate before forwarding so clients never see a broken document.
	var parsed any
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("Sample graph is not valid JSON")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Sample graph is corrupt"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"message": "Visualization server is active",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
