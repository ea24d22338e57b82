package model

import "time"

// User is a model of the persistency layer
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleIDs      []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the user holds the given role id.
func (u *User) HasRole(roleID string) bool {
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
