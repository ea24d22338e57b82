package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
)

type userStore struct {
	store map[string]model.User
	sync.RWMutex
}

func newUserStore() *userStore {
	return &userStore{
		store: make(map[string]model.User),
	}
}

func (s *userStore) FetchAll() (map[string]model.User, error) {
	s.RLock()
	defer s.RUnlock()
	models := make(map[string]model.User, len(s.store))

	for id, m := range s.store {
		models[id] = m
	}

	return models, nil
}

func (s *userStore) FindByID(id string) (*model.User, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[id]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *userStore) FindByUsername(username string) (*model.User, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if strings.EqualFold(m.Username, username) {
			return &m, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *userStore) FindByEmail(email string) (*model.User, error) {
	s.RLock()
	defer s.RUnlock()

	for _, m := range s.store {
		if strings.EqualFold(m.Email, email) {
			return &m, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *userStore) Create(m *model.User) error {
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

func (s *userStore) Update(m *model.User) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[m.ID]; !ok {
		return storage.ErrNotFound
	}
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	s.store[m.ID] = *m

	return nil
}

func (s *userStore) Delete(id string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, id)

	return nil
}
