package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const saveInterval = time.Minute

// GroupStore keeps last groups in memory and writes them to a JSON file from
// SaveLooper.
type GroupStore struct {
	groups map[string]string
	file   *os.File
	lock   sync.Mutex
	dirty  bool
}

func NewGroupStore(filename string) (*GroupStore, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	info, err := os.Stat(filename)
	fileExists := err == nil && info.Size() > 0

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	store := &GroupStore{
		groups: make(map[string]string),
		file:   file,
	}

	if fileExists {
		if err := store.load(); err != nil {
			file.Close()
			return nil, fmt.Errorf("load: %w", err)
		}
	}

	return store, nil
}

func (s *GroupStore) load() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek to start of file: %w", err)
	}

	if err := json.NewDecoder(s.file).Decode(&s.groups); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}

// Save writes the groups to disk if they changed since the last save.
func (s *GroupStore) Save() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.dirty {
		return nil
	}

	if _, err := s.file.Seek(0, 0); err != nil {
		return fmt.Errorf("seek to start of file: %w", err)
	}

	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate file: %w", err)
	}

	if err := json.NewEncoder(s.file).Encode(s.groups); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	s.dirty = false

	return nil
}

// SaveLooper saves periodically until ctx is done, then saves once more and
// closes the file.
func (s *GroupStore) SaveLooper(ctx context.Context) error {
	defer s.file.Close()

	ticker := time.NewTicker(saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Save(); err != nil {
				return fmt.Errorf("save: %w", err)
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Save(); err != nil {
				return fmt.Errorf("save: %w", err)
			}
		}
	}
}

func (s *GroupStore) LastGroup(_ context.Context, keyboard string) (string, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	name, ok := s.groups[keyboard]
	return name, ok, nil
}

func (s *GroupStore) SetLastGroup(_ context.Context, keyboard string, name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.groups[keyboard] == name {
		return nil
	}
	s.groups[keyboard] = name
	s.dirty = true
	return nil
}
