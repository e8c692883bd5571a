package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/daniacca/mcreact/internal/kinet"
	"github.com/daniacca/mcreact/internal/kinet/notifiers"
	"github.com/daniacca/mcreact/internal/runstore"
)

// kinetLoggerAdapter adapts the server's Logger to the kinet.Logger interface
type kinetLoggerAdapter struct {
	logger *Logger
}

func (a *kinetLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *kinetLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *kinetLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *kinetLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// run bundles one live simulation with its event plumbing. The engine is
// strictly single-threaded, so every handler touching sim takes mu first.
type run struct {
	mu        sync.Mutex
	id        string
	sim       *kinet.Simulation
	events    *notifiers.WebSocketNotifier
	notifier  *kinet.NotificationManager
	nextIndex int
}

// Server exposes simulation runs over HTTP.
type Server struct {
	mu     sync.RWMutex
	cfg    ServerConfig
	logger *Logger
	store  *runstore.Store
	runs   map[string]*run
}

// NewServer creates a server over a run store.
func NewServer(cfg ServerConfig, store *runstore.Store, logger *Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
		runs:   make(map[string]*run),
	}
}

// createRun loads the configured reaction file into a fresh simulation and
// registers it under a new run ID.
func (s *Server) createRun() (*run, error) {
	adapter := &kinetLoggerAdapter{logger: s.logger}
	sim, err := kinet.LoadSimulation(s.cfg.ConfigFile, s.cfg.RateConversion, adapter)
	if err != nil {
		return nil, err
	}
	if s.cfg.Seed != 0 {
		sim.SetRandom(rand.New(rand.NewSource(s.cfg.Seed)))
	}
	sim.SetLogIllEvents(true)

	id := runstore.NewRunID()
	mgr := kinet.NewNotificationManagerWithLogger(adapter)
	events := notifiers.NewWebSocketNotifier("events-" + id)
	mgr.RegisterNotifier(events)
	if s.cfg.WebhookURL != "" {
		hook := notifiers.NewWebhookNotifier("webhook-"+id, s.cfg.WebhookURL)
		if s.cfg.WebhookToken != "" {
			hook.SetBearerToken(s.cfg.WebhookToken)
		}
		mgr.RegisterNotifier(hook)
	}
	sim.SetNotificationManager(mgr)
	sim.SetRunID(id)

	r := &run{
		id:       id,
		sim:      sim,
		events:   events,
		notifier: mgr,
	}

	s.mu.Lock()
	s.runs[id] = r
	s.mu.Unlock()

	meta := runstore.RunMeta{
		ID:        id,
		Config:    s.cfg.ConfigFile,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.store.PutRun(meta); err != nil {
		s.logger.Errorf("Failed to persist run metadata: run_id=%s error=%v", id, err)
	}

	s.logger.Infof("Run created: run_id=%s config=%s", id, s.cfg.ConfigFile)
	return r, nil
}

// getRun retrieves a live run by ID.
func (s *Server) getRun(id string) (*run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// deleteRun drops a run and everything persisted under it.
func (s *Server) deleteRun(id string) error {
	s.mu.Lock()
	r, ok := s.runs[id]
	if ok {
		delete(s.runs, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("run %s does not exist", id)
	}

	if err := r.notifier.Close(); err != nil {
		s.logger.Warnf("Error closing notifiers for run %s: %v", id, err)
	}
	if err := s.store.DeleteRun(id); err != nil {
		return fmt.Errorf("delete run %s from store: %w", id, err)
	}

	s.logger.Infof("Run deleted: run_id=%s", id)
	return nil
}

// routes builds the HTTP mux for the server.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/run/", s.handleRun)
	return mux
}

// close shuts down all runs.
func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.runs {
		if err := r.notifier.Close(); err != nil {
			s.logger.Warnf("Error closing notifiers for run %s: %v", id, err)
		}
		delete(s.runs, id)
	}
}
