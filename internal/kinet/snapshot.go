package kinet

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ParticleRecord is the serialized form of one live particle.
type ParticleRecord struct {
	Index   int     `json:"index"`
	Species string  `json:"species"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// SimSnapshot is a point-in-time capture of a simulation: step counters,
// per-species concentrations and the registered particles.
type SimSnapshot struct {
	RunID          string           `json:"run_id,omitempty"`
	NSteps         int              `json:"n_steps"`
	SimTime        float64          `json:"sim_time"`
	IllEvents      int              `json:"ill_events"`
	Concentrations map[string]int   `json:"concentrations"`
	Particles      []ParticleRecord `json:"particles"`
}

// Snapshot captures the current simulation state. Particles are listed in
// ascending external-index order.
func (s *Simulation) Snapshot(runID string) SimSnapshot {
	snap := SimSnapshot{
		RunID:          runID,
		NSteps:         s.nSteps,
		SimTime:        s.sumTimestep,
		IllEvents:      s.illEvents,
		Concentrations: s.Concentrations(),
		Particles:      make([]ParticleRecord, 0, len(s.ionMap)),
	}
	for _, idx := range s.LiveIndices() {
		p := s.ionMap[idx]
		snap.Particles = append(snap.Particles, ParticleRecord{
			Index:   idx,
			Species: p.Substance.Name,
			X:       p.X,
			Y:       p.Y,
			Z:       p.Z,
		})
	}
	return snap
}

// Restore re-seeds the population from a snapshot. The simulation must be
// freshly constructed (empty population); counters are taken over from the
// snapshot.
func (s *Simulation) Restore(snap SimSnapshot) error {
	if s.particles.Len() != 0 {
		return fmt.Errorf("restore requires an empty population, have %d particles", s.particles.Len())
	}
	if err := ValidateSnapshot(snap, s.substances); err != nil {
		return err
	}
	for _, rec := range snap.Particles {
		subst, _ := s.substances.ByName(rec.Species)
		s.AddParticle(&Particle{Substance: subst, X: rec.X, Y: rec.Y, Z: rec.Z}, rec.Index)
	}
	s.nSteps = snap.NSteps
	s.sumTimestep = snap.SimTime
	s.illEvents = snap.IllEvents
	return nil
}

// ValidateSnapshot checks a snapshot against a substance table: particle
// indices must be unique, every particle species must be a declared
// discrete substance, and the concentration counters must match the
// particle tally. A nil table skips the species checks.
func ValidateSnapshot(snap SimSnapshot, table *SubstanceTable) error {
	seen := make(map[int]struct{}, len(snap.Particles))
	tally := make(map[string]int)
	for i, rec := range snap.Particles {
		if _, dup := seen[rec.Index]; dup {
			return fmt.Errorf("duplicate particle index %d", rec.Index)
		}
		seen[rec.Index] = struct{}{}
		tally[rec.Species]++

		if table == nil {
			continue
		}
		subst, ok := table.ByName(rec.Species)
		if !ok {
			return fmt.Errorf("particle at position %d has unknown species %q", i, rec.Species)
		}
		if !subst.IsDiscrete() {
			return fmt.Errorf("particle at position %d has non-discrete species %q", i, rec.Species)
		}
	}
	names := make([]string, 0, len(snap.Concentrations))
	for name := range snap.Concentrations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if snap.Concentrations[name] != tally[name] {
			return fmt.Errorf("concentration of %s is %d but %d particles are recorded",
				name, snap.Concentrations[name], tally[name])
		}
	}
	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
func EncodeSnapshotJSON(snap SimSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
func DecodeSnapshotJSON(data []byte) (SimSnapshot, error) {
	var snap SimSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return SimSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
