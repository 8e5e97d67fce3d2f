// Package api exposes the command gate over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/econ-engine/internal/config"
	"github.com/MJE43/econ-engine/internal/gate"
	"github.com/MJE43/econ-engine/internal/player"
	"github.com/MJE43/econ-engine/internal/reward"
	"github.com/MJE43/econ-engine/internal/settle"
	"github.com/MJE43/econ-engine/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Executor is the part of the gate the API drives.
type Executor interface {
	Execute(ctx context.Context, playerID string, cmd gate.Command) (gate.Result, error)
	State(ctx context.Context, playerID string) (player.State, error)
	Registry() gate.Registry
}

// Settler settles a whole match.
type Settler interface {
	Settle(ctx context.Context, m reward.MatchResult) (settle.Report, error)
}

// StatsSource reports state store usage for /health.
type StatsSource interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Options configures a Server.
type Options struct {
	Config  config.Provider
	Stats   StatsSource
	Logger  *log.Logger
	Timeout time.Duration
}

// Server handles HTTP requests.
type Server struct {
	exec      Executor
	settler   Settler
	config    config.Provider
	stats     StatsSource
	logger    *log.Logger
	timeout   time.Duration
	startTime time.Time
}

// NewServer creates a new API server.
func NewServer(exec Executor, settler Settler, opts Options) *Server {
	s := &Server{
		exec:      exec,
		settler:   settler,
		config:    opts.Config,
		stats:     opts.Stats,
		logger:    opts.Logger,
		timeout:   opts.Timeout,
		startTime: time.Now(),
	}
	if s.logger == nil {
		s.logger = log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	return s
}

// Routes sets up the HTTP routes with middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/commands", s.handleListCommands)
		r.Get("/config", s.handleConfigVersion)
		r.Get("/players/{playerID}", s.handleGetPlayer)
		r.Post("/players/{playerID}/commands", s.handleCommand)
		r.Post("/matches/settle", s.handleSettle)
	})

	return r
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var cmd gate.Command
	if err := s.decodeBody(w, r, &cmd); err != nil {
		s.writeBadBody(w, r, err)
		return
	}

	res, err := s.exec.Execute(r.Context(), playerID, cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	st, err := s.exec.State(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var m reward.MatchResult
	if err := s.decodeBody(w, r, &m); err != nil {
		s.writeBadBody(w, r, err)
		return
	}

	rep, err := s.settler.Settle(r.Context(), m)
	if err != nil && len(rep.Outcomes) == 0 {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, CommandsResponse{
		Commands:      s.exec.Registry().Types(),
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleConfigVersion(w http.ResponseWriter, r *http.Request) {
	var v uint64
	if s.config != nil {
		v = s.config.Version()
	}
	s.writeJSON(w, http.StatusOK, ConfigResponse{Version: v})
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("encode response failed status=%d err=%v", status, err)
	}
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf("request method=%s path=%s status=%d size=%s duration=%v request_id=%s remote=%s",
			r.Method, r.URL.Path, ww.Status(), humanize.Bytes(uint64(ww.BytesWritten())),
			time.Since(start), middleware.GetReqID(r.Context()), r.RemoteAddr)
	})
}
