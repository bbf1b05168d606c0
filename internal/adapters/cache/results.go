package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/lane/internal/core/domain"
	"go.trai.ch/lane/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ResultStore = (*ResultStore)(nil)

// ResultStore persists run records to a single JSON file keyed by instance
// name. Writes go through a temp file and rename so an interrupted run never
// leaves a truncated store behind.
type ResultStore struct {
	path string

	mu      sync.Mutex
	records map[string]domain.RunRecord
}

// NewResultStore opens (or initializes) the store backed by the file at path.
func NewResultStore(path string) (*ResultStore, error) {
	s := &ResultStore{
		path:    filepath.Clean(path),
		records: make(map[string]domain.RunRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ResultStore) load() error {
	f, err := os.Open(s.path) //nolint:gosec // Path is cleaned and provided by trusted caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.Wrap(err, "failed to open result store")
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	if err := json.NewDecoder(f).Decode(&s.records); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to decode result store"), "path", s.path)
	}
	return nil
}

// persist writes the full record map. Caller holds s.mu.
func (s *ResultStore) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal result store")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create result store directory")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil { //nolint:gosec // Under the store dir
		return zerr.Wrap(err, "failed to write result store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return zerr.Wrap(err, "failed to replace result store")
	}
	return nil
}

// Get retrieves the run record for a given instance name.
// Returns nil, nil when the instance has no stored record.
func (s *ResultStore) Get(instance string) (*domain.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[instance]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Put stores the run record and persists the store. The map update and the
// file write happen under one lock so concurrent instances cannot clobber
// each other's records on disk.
func (s *ResultStore) Put(record domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Instance] = record
	return s.persist()
}
