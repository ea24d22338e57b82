package auth

// Identity is the authenticated principal attached to a connection after a
// successful login. The role set is a claim snapshot, it is not re-read from
// the store while the access token is valid.
type Identity struct {
	UserID   string
	Username string
	RoleIDs  []string
}

// HasRole reports whether the identity holds the given role id.
func (id *Identity) HasRole(roleID string) bool {
	for _, r := range id.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of the given
// role ids.
func (id *Identity) HasAnyRole(roleIDs map[string]struct{}) bool {
	for _, r := range id.RoleIDs {
		if _, ok := roleIDs[r]; ok {
			return true
		}
	}
	return false
}
