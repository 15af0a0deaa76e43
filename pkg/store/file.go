package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/workflow"
)

// FileStore stores each workflow as an indented JSON file in a directory.
// Writes go through a temporary file and rename, so a reader never sees a
// half-written workflow.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a file-based store rooted at baseDir, creating it if
// needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := errors.ValidatePath(baseDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, storageErr(err, "create store dir")
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := errors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "read workflow %s", id)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storageErr(err, "parse workflow %s", id)
	}
	return &rec, nil
}

func (s *FileStore) Put(ctx context.Context, id string, g workflow.Graph) (*Record, error) {
	if err := errors.ValidateWorkflowID(id); err != nil {
		return nil, err
	}
	rec := newRecord(id, g, s.now())
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, storageErr(err, "marshal workflow %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return nil, storageErr(err, "write workflow %s", id)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, storageErr(err, "write workflow %s", id)
	}
	if err := tmp.Close(); err != nil {
		return nil, storageErr(err, "write workflow %s", id)
	}
	if err := os.Rename(tmp.Name(), s.recordPath(id)); err != nil {
		return nil, storageErr(err, "write workflow %s", id)
	}
	return rec, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateWorkflowID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return storageErr(err, "remove workflow %s", id)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, storageErr(err, "read store dir")
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for workflow files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
