package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the key/value state as a single JSON document.
// Writes go through a temp file and rename so a crash mid-write leaves
// the previous document intact.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: file store path is required")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store: file store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := entries[key]; ok {
			out[key] = value
		}
	}
	return out, nil
}

func (s *FileStore) Set(_ context.Context, values map[string]string) error {
	if s == nil {
		return fmt.Errorf("store: file store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return err
	}
	for key, value := range values {
		entries[key] = value
	}
	return s.persistLocked(entries)
}

func (s *FileStore) Clear(_ context.Context) error {
	if s == nil {
		return fmt.Errorf("store: file store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(map[string]string{})
}

func (s *FileStore) loadLocked() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	entries := map[string]string{}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) persistLocked(entries map[string]string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}
