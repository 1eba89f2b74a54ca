package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
)

// Server is a JSON-RPC 2.0 HTTP server. POST / takes RPC requests and
// GET /hc reports liveness.
type Server struct {
	handler *Handler
	addr    string
	srv     *http.Server
}

// NewServer creates a Server on addr. Browser clients from origins may call
// it; an empty list allows every origin.
func NewServer(addr string, handler *Handler, origins []string, version string) *Server {
	s := &Server{handler: handler, addr: addr}

	corsOpts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}
	if len(origins) == 0 {
		corsOpts.AllowedOrigins = []string{"*"}
	}

	mux := chi.NewMux()
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(cors.New(corsOpts).Handler)
	mux.Use(logger.WithRequestID)
	mux.Get("/hc", s.healthCheck(version))
	mux.Post("/", s.serveRPC)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run binds the port and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx).WithField("addr", s.addr)

	errc := make(chan error, 1)
	go func() {
		log.Info("rpc: serving")
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("rpc: graceful shutdown failed")
		return err
	}
	return nil
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errResponse(nil, CodeParseError, err.Error()))
		return
	}
	if req.JSONRPC != "2.0" {
		writeJSON(w, errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'"))
		return
	}
	writeJSON(w, s.handler.Dispatch(r.Context(), req))
}

func (s *Server) healthCheck(version string) http.HandlerFunc {
	start := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"uptime":  time.Since(start).Truncate(time.Millisecond).String(),
			"version": version,
			"height":  s.handler.bc.Height(),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
