package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/daniacca/mcreact/internal/kinet"
	"github.com/daniacca/mcreact/internal/runstore"
)

// extractRunID extracts the run ID from a path like "/run/{id}/..."
// Returns the run ID and the remaining path, or empty strings if not found.
func extractRunID(path string) (string, string) {
	if !strings.HasPrefix(path, "/run/") {
		return "", ""
	}
	rest := path[len("/run/"):]
	idx := strings.Index(rest, "/")
	if idx == -1 {
		return rest, ""
	}
	return rest[:idx], rest[idx:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /runs lists persisted runs; POST /runs creates a run from the
// server's configured reaction file.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := s.store.ListRuns()
		if err != nil {
			http.Error(w, "cannot list runs: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	case http.MethodPost:
		created, err := s.createRun()
		if err != nil {
			http.Error(w, "cannot create run: "+err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": created.id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRun dispatches /run/{id}[/subresource] requests.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID, rest := extractRunID(r.URL.Path)
	if runID == "" {
		http.Error(w, "run ID is required in path: /run/{id}/...", http.StatusBadRequest)
		return
	}
	live, ok := s.getRun(runID)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodDelete:
		if err := s.deleteRun(runID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("deleted"))
	case rest == "/particles" && r.Method == http.MethodPost:
		s.handleSeedParticles(w, r, live)
	case rest == "/step" && r.Method == http.MethodPost:
		s.handleStep(w, r, live)
	case rest == "/state" && r.Method == http.MethodGet:
		s.handleState(w, live)
	case rest == "/series" && r.Method == http.MethodGet:
		s.handleSeries(w, live)
	case rest == "/events" && r.Method == http.MethodGet:
		s.handleEvents(w, r, live)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// POST /run/{id}/particles
// Body: { "species": "A", "count": 3, "x": 0, "y": 0, "z": 0 }
type seedParticlesRequest struct {
	Species string  `json:"species"`
	Count   int     `json:"count"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

func (s *Server) handleSeedParticles(w http.ResponseWriter, r *http.Request, live *run) {
	defer r.Body.Close()

	var req seedParticlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	subst, ok := live.sim.Substances().ByName(req.Species)
	if !ok {
		http.Error(w, "unknown species: "+req.Species, http.StatusBadRequest)
		return
	}
	if !subst.IsDiscrete() {
		http.Error(w, "species is not discrete: "+req.Species, http.StatusBadRequest)
		return
	}

	indices := make([]int, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		live.nextIndex++
		p := &kinet.Particle{Substance: subst, X: req.X, Y: req.Y, Z: req.Z}
		live.sim.AddParticle(p, live.nextIndex)
		indices = append(indices, live.nextIndex)
	}

	writeJSON(w, http.StatusOK, map[string][]int{"indices": indices})
}

// POST /run/{id}/step
// Body: { "dt": 0.4, "walk": false }
type stepRequest struct {
	Dt   float64 `json:"dt"`
	Walk bool    `json:"walk"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, live *run) {
	defer r.Body.Close()

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Dt < 0 {
		http.Error(w, "dt must be >= 0", http.StatusBadRequest)
		return
	}

	live.mu.Lock()
	live.sim.AdvanceTimestep(req.Dt)
	for _, idx := range live.sim.LiveIndices() {
		if outcome := live.sim.React(idx, 0, req.Dt); outcome.Destroyed {
			live.sim.RemoveP(idx)
		}
	}
	if req.Walk {
		live.sim.RandomWalk()
	}
	rec := runstore.StepRecord{
		Step:           live.sim.NSteps(),
		SimTime:        live.sim.SumTimestep(),
		Concentrations: live.sim.Concentrations(),
		IllEvents:      live.sim.IllEvents(),
	}
	live.mu.Unlock()

	if err := s.store.PutStep(live.id, rec); err != nil {
		s.logger.Errorf("Failed to persist step record: run_id=%s error=%v", live.id, err)
	}

	writeJSON(w, http.StatusOK, rec)
}

// GET /run/{id}/state
func (s *Server) handleState(w http.ResponseWriter, live *run) {
	live.mu.Lock()
	snap := live.sim.Snapshot(live.id)
	live.mu.Unlock()

	writeJSON(w, http.StatusOK, snap)
}

// GET /run/{id}/series
func (s *Server) handleSeries(w http.ResponseWriter, live *run) {
	records, err := s.store.Steps(live.id)
	if err != nil {
		http.Error(w, "cannot read series: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GET /run/{id}/events upgrades to a WebSocket streaming fire events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, live *run) {
	upgrader := live.events.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade failed: run_id=%s error=%v", live.id, err)
		return
	}
	live.events.RegisterClient(conn)

	// drain the read side until the client goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				live.events.UnregisterClient(conn)
				return
			}
		}
	}()
}
