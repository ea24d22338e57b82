package memory

import (
	"sync"
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
)

type refreshTokenStore struct {
	store map[string]model.RefreshToken
	sync.RWMutex
}

func newRefreshTokenStore() *refreshTokenStore {
	return &refreshTokenStore{
		store: make(map[string]model.RefreshToken),
	}
}

func (s *refreshTokenStore) FindByToken(token string) (*model.RefreshToken, error) {
	s.RLock()
	defer s.RUnlock()
	if m, ok := s.store[token]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *refreshTokenStore) FindByUserID(userID string) ([]model.RefreshToken, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.RefreshToken, 0)
	for _, m := range s.store {
		if m.UserID == userID {
			models = append(models, m)
		}
	}

	return models, nil
}

func (s *refreshTokenStore) Create(m *model.RefreshToken) error {
	s.Lock()
	defer s.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().Round(time.Second).UTC()
	}

	s.store[m.Token] = *m

	return nil
}

func (s *refreshTokenStore) Delete(token string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.store[token]; !ok {
		return storage.ErrNotFound
	}

	delete(s.store, token)

	return nil
}

func (s *refreshTokenStore) DeleteExpiredByUserID(userID string, cutoff time.Time) error {
	s.Lock()
	defer s.Unlock()

	for token, m := range s.store {
		if m.UserID == userID && m.CreatedAt.Before(cutoff) {
			delete(s.store, token)
		}
	}

	return nil
}
