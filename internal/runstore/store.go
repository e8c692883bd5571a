// Package runstore persists simulation runs and their per-step
// concentration records in LevelDB.
package runstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB key scheme — "|" separates segments; steps are zero-padded so a
// lexicographic prefix scan returns them in numeric order.
//
//	r|<runID>              → RunMeta JSON
//	s|<runID>|<step %010d> → StepRecord JSON
const (
	prefixRun  = "r|"
	prefixStep = "s|"
)

// RunMeta describes one simulation run.
type RunMeta struct {
	ID        string `json:"id"`
	Config    string `json:"config"`
	CreatedAt int64  `json:"created_at"`
}

// StepRecord is the persisted outcome of one simulation time step.
type StepRecord struct {
	Step           int            `json:"step"`
	SimTime        float64        `json:"sim_time"`
	Concentrations map[string]int `json:"concentrations"`
	IllEvents      int            `json:"ill_events"`
}

// Store is the LevelDB-backed run store. LevelDB is single-writer; one
// Store owns the database directory for the process lifetime.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the LevelDB database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("open run store at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// NewRunID mints a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func runKey(runID string) []byte {
	return []byte(prefixRun + runID)
}

func stepKey(runID string, step int) []byte {
	return []byte(fmt.Sprintf("%s%s|%010d", prefixStep, runID, step))
}

// PutRun writes (or overwrites) run metadata.
func (s *Store) PutRun(meta RunMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", meta.ID, err)
	}
	if err := s.db.Put(runKey(meta.ID), data, nil); err != nil {
		return fmt.Errorf("put run %s: %w", meta.ID, err)
	}
	return nil
}

// Run reads run metadata. The boolean reports whether the run exists.
func (s *Store) Run(runID string) (RunMeta, bool, error) {
	data, err := s.db.Get(runKey(runID), nil)
	if err == leveldb.ErrNotFound {
		return RunMeta{}, false, nil
	}
	if err != nil {
		return RunMeta{}, false, fmt.Errorf("get run %s: %w", runID, err)
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return RunMeta{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return meta, true, nil
}

// ListRuns returns the metadata of every stored run.
func (s *Store) ListRuns() ([]RunMeta, error) {
	out := make([]RunMeta, 0)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixRun)), nil)
	defer iter.Release()
	for iter.Next() {
		var meta RunMeta
		if err := json.Unmarshal(iter.Value(), &meta); err != nil {
			return nil, fmt.Errorf("decode run at key %s: %w", iter.Key(), err)
		}
		out = append(out, meta)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// PutStep appends one step record under the run.
func (s *Store) PutStep(runID string, rec StepRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal step %d of run %s: %w", rec.Step, runID, err)
	}
	if err := s.db.Put(stepKey(runID, rec.Step), data, nil); err != nil {
		return fmt.Errorf("put step %d of run %s: %w", rec.Step, runID, err)
	}
	return nil
}

// Steps returns all step records of a run in ascending step order.
func (s *Store) Steps(runID string) ([]StepRecord, error) {
	out := make([]StepRecord, 0)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixStep+runID+"|")), nil)
	defer iter.Release()
	for iter.Next() {
		var rec StepRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode step at key %s: %w", iter.Key(), err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate steps of run %s: %w", runID, err)
	}
	return out, nil
}

// DeleteRun removes a run's metadata and all its step records in one batch.
func (s *Store) DeleteRun(runID string) error {
	batch := new(leveldb.Batch)
	batch.Delete(runKey(runID))

	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixStep+runID+"|")), nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		batch.Delete(key)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate steps of run %s: %w", runID, err)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
