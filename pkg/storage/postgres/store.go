package postgres

import (
	"github.com/jmoiron/sqlx"
	// Registers the postgres driver for sqlx.Open.
	_ "github.com/lib/pq"
	"github.com/nsyszr/rtdb/pkg/storage"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	users         *userStore
	roles         *roleStore
	refreshTokens *refreshTokenStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		users:         newUserStore(db),
		roles:         newRoleStore(db),
		refreshTokens: newRefreshTokenStore(db),
	}
}

// Users returns a sub-store for managing the User model
func (s *store) Users() storage.UserStore {
	return s.users
}

// Roles returns a sub-store for managing the Role model
func (s *store) Roles() storage.RoleStore {
	return s.roles
}

// RefreshTokens returns a sub-store for managing the RefreshToken model
func (s *store) RefreshTokens() storage.RefreshTokenStore {
	return s.refreshTokens
}
