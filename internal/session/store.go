// Package session persists staging batches between CLI invocations, one
// YAML file per batch.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/staging"
)

const fileExt = ".yaml"

// Store keeps batches as YAML files in a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore opens a store rooted at dir, creating it when missing.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: session directory", common.ErrMissingConfig)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid batch id %q: %w", id, err)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

// Save writes b, replacing any earlier version of the same batch.
func (s *Store) Save(b *staging.Batch) error {
	path, err := s.path(b.ID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode batch %s: %w", b.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write batch %s: %w", b.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to store batch %s: %w", b.ID, err)
	}
	slog.Debug("saved batch", "id", b.ID, "rows", len(b.Rows))
	return nil
}

// Load reads a batch by id.
func (s *Store) Load(id string) (*staging.Batch, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return readBatch(path)
}

func readBatch(path string) (*staging.Batch, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path built from a validated id
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("batch %s: %w", strings.TrimSuffix(filepath.Base(path), fileExt), common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var b staging.Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode batch %s: %w", path, err)
	}
	return &b, nil
}

// List returns every stored batch, newest first.
func (s *Store) List() ([]*staging.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	batches := make([]*staging.Batch, 0, len(matches))
	for _, path := range matches {
		b, err := readBatch(path)
		if err != nil {
			slog.Warn("skipping unreadable batch", "path", path, "error", err)
			continue
		}
		batches = append(batches, b)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	return batches, nil
}

// Latest returns the newest batch that has not been committed.
func (s *Store) Latest() (*staging.Batch, error) {
	batches, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if !b.Committed {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no staged batch: %w", common.ErrNotFound)
}

// Discard deletes a batch.
func (s *Store) Discard(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("batch %s: %w", id, common.ErrNotFound)
		}
		return fmt.Errorf("failed to discard batch %s: %w", id, err)
	}
	slog.Debug("discarded batch", "id", id)
	return nil
}
