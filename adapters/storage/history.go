// Package storage persists pipeline outputs: stage tables as CSV, the final
// credit lines as parquet or into Postgres, and a history of runs.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"microcredit/internal/errors"
)

// Backend is a run history backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// RunStatus is the outcome of a pipeline run
type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Store keeps run records
type Store interface {
	// Save stores a run record, assigning an ID when empty
	Save(ctx context.Context, run *RunRecord) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*RunRecord, error)

	// List lists runs, newest first
	List(ctx context.Context, filter *ListFilter) ([]*RunRecord, error)

	// Delete removes a run
	Delete(ctx context.Context, id string) error

	// GetLatest gets the most recent run
	GetLatest(ctx context.Context) (*RunRecord, error)

	// Close closes the store
	Close() error
}

// RunRecord is the persisted summary of one pipeline run
type RunRecord struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Period is the reporting period balances were standardized onto
	Period string `json:"period"`

	// InputHash fingerprints the raw extracts the run read
	InputHash string `json:"input_hash,omitempty"`

	// RulesFile is empty when built-in rules were used
	RulesFile string `json:"rules_file,omitempty"`

	// Stages holds the output row count of every completed stage
	Stages map[string]int `json:"stages"`

	Segments   map[string]int `json:"segments,omitempty"`
	Labels     map[string]int `json:"labels,omitempty"`
	Violations int            `json:"violations"`

	// Outputs maps an output name to the file written
	Outputs map[string]string `json:"outputs,omitempty"`

	// Error is set on failed runs
	Error string `json:"error,omitempty"`
}

// Duration returns the wall time of the run
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ListFilter filters run listing
type ListFilter struct {
	Status RunStatus
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

func (f *ListFilter) match(r *RunRecord) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && r.StartedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.StartedAt.After(f.Until) {
		return false
	}
	return true
}

func (f *ListFilter) page(runs []*RunRecord) []*RunRecord {
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if f == nil {
		return runs
	}
	if f.Offset > 0 {
		if f.Offset >= len(runs) {
			return nil
		}
		runs = runs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(runs) {
		runs = runs[:f.Limit]
	}
	return runs
}

func prepare(run *RunRecord) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
}

// FileStore keeps one JSON document per run in a directory
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Storage("failed to create history directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.Newf(errors.TypeInput, "invalid run id %q", id)
	}
	return filepath.Join(s.basePath, id+".json"), nil
}

func (s *FileStore) Save(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)
	path, err := s.path(run.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return errors.Storage("failed to marshal run", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Storage("failed to write run", err)
	}
	return nil
}

func (s *FileStore) read(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Storage(fmt.Sprintf("failed to unmarshal %s", filepath.Base(path)), err)
	}
	return &run, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	run, err := s.read(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFound("run", id)
	}
	return run, err
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, errors.Storage("failed to read history", err)
	}

	var runs []*RunRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		run, err := s.read(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue // Skip unreadable documents
		}
		if filter.match(run) {
			runs = append(runs, run)
		}
	}
	return filter.page(runs), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound("run", id)
		}
		return errors.Storage("failed to delete run", err)
	}
	return nil
}

func (s *FileStore) GetLatest(ctx context.Context) (*RunRecord, error) {
	return latest(s.List(ctx, &ListFilter{Limit: 1}))
}

func (s *FileStore) Close() error {
	return nil
}

func latest(runs []*RunRecord, err error) (*RunRecord, error) {
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, errors.NotFound("run", "latest")
	}
	return runs[0], nil
}

// MemoryStore is an in-memory run history (for testing and the API)
type MemoryStore struct {
	runs map[string]*RunRecord
	mu   sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*RunRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, run *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(run)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NotFound("run", id)
	}
	return run, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*RunRecord
	for _, run := range s.runs {
		if filter.match(run) {
			runs = append(runs, run)
		}
	}
	return filter.page(runs), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return errors.NotFound("run", id)
	}
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) GetLatest(ctx context.Context) (*RunRecord, error) {
	return latest(s.List(ctx, &ListFilter{Limit: 1}))
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates stores by backend type
func StoreFactory(backend Backend, config map[string]string) (Store, error) {
	switch backend {
	case BackendFile:
		path := config["path"]
		if path == "" {
			path = ".microcredit/runs"
		}
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported history backend: %s", backend)
	}
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
