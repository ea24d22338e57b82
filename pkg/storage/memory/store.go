package memory

import "github.com/nsyszr/rtdb/pkg/storage"

// store contains all memory-based sub-stores for managing the persistent
// models
type store struct {
	users         *userStore
	roles         *roleStore
	refreshTokens *refreshTokenStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		users:         newUserStore(),
		roles:         newRoleStore(),
		refreshTokens: newRefreshTokenStore(),
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
