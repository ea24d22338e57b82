package auth

import (
	"github.com/nsyszr/rtdb/pkg/model"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a presented password against the stored
// credentials of a user.
type CredentialVerifier interface {
	Verify(user *model.User, password string) bool
}

type bcryptVerifier struct{}

// NewBcryptVerifier returns a verifier for bcrypt password hashes.
func NewBcryptVerifier() CredentialVerifier {
	return &bcryptVerifier{}
}

func (v *bcryptVerifier) Verify(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// HashPassword derives a bcrypt hash for storing new credentials.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
