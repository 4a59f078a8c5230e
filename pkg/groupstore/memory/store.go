package memory

import (
	"context"
	"sync"
)

type GroupStore struct {
	groups map[string]string
	lock   sync.Mutex
}

func NewGroupStore() *GroupStore {
	return &GroupStore{
		groups: make(map[string]string),
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

	s.groups[keyboard] = name
	return nil
}
