package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
)

type roleStore struct {
	store map[string]model.Role
	sync.RWMutex
}

func newRoleStore() *roleStore {
	return &roleStore{
		store: make(map[string]model.Role),
	}
}

func (s *roleStore) FetchAll() (map[string]model.Role, error) {
	s.RLock()
	defer s.RUnlock()
	models := make(map[string]model.Role, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *roleStore) FindByID(id string) (*model.Role, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *roleStore) Create(m *model.Role) error {
	s.Lock()
	defer s.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().Round(time.Second).UTC()
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *roleStore) Update(m *model.Role) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *roleStore) Delete(id string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	return nil
}
