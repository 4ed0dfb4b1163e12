// Package proxy serves the embedding pipeline over HTTP.
package proxy

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/veloce-ai/veloce/pkg/config"
	"github.com/veloce-ai/veloce/pkg/embedder"
	"github.com/veloce-ai/veloce/pkg/models"
	"github.com/veloce-ai/veloce/pkg/pipeline"
)

// Server exposes the embedding pipeline and cache management endpoints.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	mux      *http.ServeMux
}

// New creates a Server wired with its dependencies.
func New(cfg *config.Config, p *pipeline.Pipeline) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/embeddings", s.handleEmbeddings)
	s.mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("veloce listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// embeddingsRequest is the request body for POST /v1/embeddings.
type embeddingsRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// embeddingData is one vector in an OpenAI-style response.
type embeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// embeddingsResponse is the response body for POST /v1/embeddings. The
// cached and source fields extend the OpenAI shape.
type embeddingsResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  models.Usage    `json:"usage"`
	Cached bool            `json:"cached"`
	Source string          `json:"source"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, embedder.ErrKindInvalidInput, "invalid request body: "+err.Error())
		return
	}

	res := s.pipeline.Embed(r.Context(), req.Input, embedder.GenerateOptions{
		Model:      req.Model,
		Dimensions: req.Dimensions,
	})
	if !res.Success {
		writeError(w, statusForKind(res.ErrorKind), res.ErrorKind, res.Error)
		return
	}

	writeJSON(w, http.StatusOK, embeddingsResponse{
		Object: "list",
		Data: []embeddingData{
			{Object: "embedding", Index: 0, Embedding: res.Vector},
		},
		Model:  res.Model,
		Usage:  res.Usage,
		Cached: res.Cached,
		Source: res.Source,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Cache().Stats())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForKind(kind string) int {
	switch kind {
	case embedder.ErrKindInvalidInput:
		return http.StatusBadRequest
	case embedder.ErrKindExhaustedRetries:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	var resp errorResponse
	resp.Error.Message = msg
	resp.Error.Kind = kind
	writeJSON(w, status, resp)
}
