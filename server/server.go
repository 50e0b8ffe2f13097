// Package server exposes the tracking engine over HTTP: a small JSON API
// for position reports and queries, and a WebSocket feed that pushes every
// accepted presence event to connected clients.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crisisops/sitrack/config"
	"github.com/crisisops/sitrack/domain"
	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

// Server shutdown timeouts.
const (
	httpReadTimeout     = 15 * time.Second
	httpWriteTimeout    = 30 * time.Second
	httpIdleTimeout     = 120 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

// Server serves the tracking API and the presence WebSocket feed.
type Server struct {
	db        *sql.DB
	tracker   *track.Tracker
	store     *domain.Store
	locations track.LocationStore
	cfg       *config.Config
	logger    *zap.SugaredLogger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan PresenceEventMessage

	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// New creates a server around an initialized tracker and its stores.
func New(db *sql.DB, tracker *track.Tracker, store *domain.Store, locations track.LocationStore, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		db:         db,
		tracker:    tracker,
		store:      store,
		locations:  locations,
		cfg:        cfg,
		logger:     logger,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan PresenceEventMessage, 64),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Routes returns the server's HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/checkin", s.handleCheckIn)
	mux.HandleFunc("/api/v1/checkout", s.handleCheckOut)
	mux.HandleFunc("/api/v1/location", s.handleLocation)
	mux.HandleFunc("/api/v1/checkedin", s.handleCheckedIn)
	mux.HandleFunc("/api/v1/types", s.handleTypes)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.withCORS(mux)
}

// Start runs the hub loop and serves HTTP until the context is canceled.
func (s *Server) Start() error {
	s.wg.Add(1)
	go s.run()

	addr := fmt.Sprintf(":%d", s.cfg.GetServerPort())
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
	}

	s.logger.Infow("Server listening",
		"address", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown drains clients and stops the HTTP server.
func (s *Server) Shutdown() error {
	s.cancel()

	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}

	s.wg.Wait()

	s.mu.Lock()
	for client := range s.clients {
		client.close()
	}
	s.clients = make(map[*Client]bool)
	s.mu.Unlock()

	s.logger.Infow("Server stopped")
	return err
}

// run is the hub loop: client registration and presence event fan-out.
func (s *Server) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debugw("Client connected",
				"client_id", client.id,
				"clients", count)
		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
			}
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debugw("Client disconnected",
				"client_id", client.id,
				"clients", count)
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, origin := range s.cfg.GetServerAllowedOrigins() {
		allowed[origin] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
