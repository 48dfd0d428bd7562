package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/table"
)

// Server hosts one private table per WebSocket connection
type Server struct {
	cfg      Config
	rules    config.Rules
	logger   *log.Logger
	clock    quartz.Clock
	recorder table.Recorder
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Connection
	pending  int
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock sets the clock used for idle timeouts and timestamps
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithRecorder sends every completed round from every session to r. The
// recorder must be safe for concurrent use.
func WithRecorder(r table.Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// NewServer creates a server dealing the given rules
func NewServer(cfg Config, rules config.Rules, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		rules:    rules,
		logger:   log.New(io.Discard),
		clock:    quartz.NewReal(),
		sessions: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithPrefix("server")
	return s, nil
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/rules", s.handleRules)
	r.Get("/sessions", s.handleSessions)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop closes every open session
func (s *Server) Stop() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.sessions))
	for _, c := range s.sessions {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.CloseWithReason("server shutting down")
	}
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// reserve claims a session slot ahead of the upgrade. Slots held by
// connections still upgrading count against MaxSessions.
func (s *Server) reserve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxSessions > 0 && len(s.sessions)+s.pending >= s.cfg.MaxSessions {
		return false
	}
	s.pending++
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *Server) newSession() (*Session, error) {
	id := uuid.NewString()
	rng, seed := randutil.NewFromTime()
	opts := []table.Option{
		table.WithRNG(rng),
		table.WithLogger(s.logger.With("session", id)),
		table.WithClock(s.clock),
	}
	if s.recorder != nil {
		opts = append(opts, table.WithRecorder(s.recorder))
	}
	t, err := table.New(s.rules, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Created session", "session", id, "seed", seed)
	return &Session{ID: id, table: t}, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.reserve() {
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}

	session, err := s.newSession()
	if err != nil {
		s.release()
		s.logger.Error("Failed to create session", "error", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release()
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := NewConnection(conn, session, s.logger, s.clock, s.cfg.IdleTimeout)

	welcome, err := NewMessage(MessageTypeWelcome, WelcomeData{
		Session:  session.ID,
		Rules:    s.rules,
		Snapshot: session.Snapshot(),
	}, s.clock.Now())
	if err != nil {
		s.release()
		s.logger.Error("Failed to encode welcome", "error", err)
		_ = c.Close()
		return
	}
	_ = c.SendMessage(welcome)

	s.mu.Lock()
	s.pending--
	s.sessions[session.ID] = c
	s.mu.Unlock()
	s.logger.Info("Session opened", "session", session.ID)

	c.Start()
	go func() {
		<-c.Done()
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
		s.logger.Info("Session closed", "session", session.ID)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rules)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"sessions": s.SessionCount()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
