package storage

import (
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Users() UserStore
	Roles() RoleStore
	RefreshTokens() RefreshTokenStore
}

// UserStore is responsible for managing the User model
type UserStore interface {
	FetchAll() (map[string]model.User, error)
	FindByID(id string) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	Create(m *model.User) error
	Update(m *model.User) error
	Delete(id string) error
}

// RoleStore is responsible for managing the Role model
type RoleStore interface {
	FetchAll() (map[string]model.Role, error)
	FindByID(id string) (*model.Role, error)
	Create(m *model.Role) error
	Update(m *model.Role) error
	Delete(id string) error
}

// RefreshTokenStore is responsible for managing the RefreshToken model
type RefreshTokenStore interface {
	FindByToken(token string) (*model.RefreshToken, error)
	FindByUserID(userID string) ([]model.RefreshToken, error)
	Create(m *model.RefreshToken) error
	Delete(token string) error
	// DeleteExpiredByUserID removes all of the user's tokens created before
	// the cutoff instant. Used by the lazy expiry sweep at login time.
	DeleteExpiredByUserID(userID string, cutoff time.Time) error
}
