package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/storage"
	log "github.com/sirupsen/logrus"
)

const refreshTokenLength = 32

// SessionManager orchestrates the login and refresh flows: credential
// verification, access token issuance and the refresh token lifecycle with
// its lazy expiry sweep.
type SessionManager struct {
	store           storage.Interface
	verifier        CredentialVerifier
	issuer          *Issuer
	refreshValidFor time.Duration
	rotate          bool
}

// NewSessionManager creates a session manager. rotate controls whether a
// refresh token is replaced when it is used to mint a new access token.
func NewSessionManager(store storage.Interface, verifier CredentialVerifier, issuer *Issuer, refreshValidFor time.Duration, rotate bool) *SessionManager {
	return &SessionManager{
		store:           store,
		verifier:        verifier,
		issuer:          issuer,
		refreshValidFor: refreshValidFor,
		rotate:          rotate,
	}
}

// LoginResult is returned for a successful login or refresh.
type LoginResult struct {
	AuthToken    string    `json:"authToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ValidFor     float64   `json:"validFor"`
	RefreshToken string    `json:"refreshToken"`
	UserData     UserData  `json:"userData"`
	Identity     *Identity `json:"-"`
}

// UserData is the public profile snapshot sent to the client. It never
// carries credentials.
type UserData struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	RoleIDs   []string `json:"roles"`
}

// Login verifies the credentials and on success issues an access token and a
// fresh refresh token. Expired refresh tokens of the user are purged in the
// same operation, before the result is returned.
func (sm *SessionManager) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, proto.NewValidationError("Username and password cannot be empty")
	}

	user, err := sm.store.Users().FindByUsername(username)
	if err == storage.ErrNotFound {
		user, err = sm.store.Users().FindByEmail(username)
	}
	if err == storage.ErrNotFound {
		// Same generic failure as a password mismatch so that account
		// existence cannot be probed.
		return nil, proto.NewAuthenticationError("Login failed")
	}
	if err != nil {
		log.Errorf("session manager failed to look up user: %v", err)
		return nil, proto.NewStorageError("could not verify credentials")
	}

	if !sm.verifier.Verify(user, password) {
		return nil, proto.NewAuthenticationError("Login failed")
	}

	refreshToken, err := sm.issueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return sm.newLoginResult(user, refreshToken)
}

// Refresh mints a new access token for the user associated with a live
// refresh token. Depending on the rotation policy the refresh token itself
// is replaced or stays valid until its natural expiry.
func (sm *SessionManager) Refresh(refreshToken string) (*LoginResult, error) {
	rt, err := sm.store.RefreshTokens().FindByToken(refreshToken)
	if err == storage.ErrNotFound {
		return nil, proto.NewAuthenticationError("Invalid refresh token")
	}
	if err != nil {
		log.Errorf("session manager failed to look up refresh token: %v", err)
		return nil, proto.NewStorageError("could not verify refresh token")
	}

	if !rt.ExpiresWithin(sm.refreshValidFor, NowTimeFunc()) {
		if err := sm.store.RefreshTokens().Delete(rt.Token); err != nil {
			log.Warnf("session manager failed to delete expired refresh token: %v", err)
		}
		return nil, proto.NewAuthenticationError("Invalid refresh token")
	}

	user, err := sm.store.Users().FindByID(rt.UserID)
	if err == storage.ErrNotFound {
		return nil, proto.NewAuthenticationError("Invalid refresh token")
	}
	if err != nil {
		log.Errorf("session manager failed to look up user: %v", err)
		return nil, proto.NewStorageError("could not verify refresh token")
	}

	token := rt.Token
	if sm.rotate {
		if err := sm.store.RefreshTokens().Delete(rt.Token); err != nil {
			log.Errorf("session manager failed to rotate refresh token: %v", err)
			return nil, proto.NewStorageError("could not rotate refresh token")
		}
		token, err = sm.issueRefreshToken(user.ID)
		if err != nil {
			return nil, err
		}
	}

	return sm.newLoginResult(user, token)
}

// Logout invalidates the presented refresh token. A token that is already
// gone is not an error.
func (sm *SessionManager) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := sm.store.RefreshTokens().Delete(refreshToken); err != nil && err != storage.ErrNotFound {
		log.Errorf("session manager failed to delete refresh token: %v", err)
		return proto.NewStorageError("could not invalidate refresh token")
	}
	return nil
}

// issueRefreshToken purges the user's expired tokens and persists a fresh
// one. Both must be committed before the login response goes out so a client
// refreshing immediately after login never races an uncommitted token.
func (sm *SessionManager) issueRefreshToken(userID string) (string, error) {
	cutoff := NowTimeFunc().Add(-sm.refreshValidFor)
	if err := sm.store.RefreshTokens().DeleteExpiredByUserID(userID, cutoff); err != nil {
		log.Errorf("session manager failed to purge expired refresh tokens: %v", err)
		return "", proto.NewStorageError("could not store refresh token")
	}

	value, err := randomToken()
	if err != nil {
		return "", proto.NewStorageError("could not generate refresh token")
	}

	rt := model.RefreshToken{
		Token:     value,
		UserID:    userID,
		CreatedAt: NowTimeFunc().Round(time.Second).UTC(),
	}
	if err := sm.store.RefreshTokens().Create(&rt); err != nil {
		log.Errorf("session manager failed to store refresh token: %v", err)
		return "", proto.NewStorageError("could not store refresh token")
	}

	return value, nil
}

func (sm *SessionManager) newLoginResult(user *model.User, refreshToken string) (*LoginResult, error) {
	authToken, expiresAt, err := sm.issuer.Issue(user)
	if err != nil {
		log.Errorf("session manager failed to sign access token: %v", err)
		return nil, proto.NewStorageError("could not issue access token")
	}

	return &LoginResult{
		AuthToken:    authToken,
		ExpiresAt:    expiresAt,
		ValidFor:     sm.issuer.ValidFor().Seconds(),
		RefreshToken: refreshToken,
		UserData:     NewUserData(user),
		Identity: &Identity{
			UserID:   user.ID,
			Username: user.Username,
			RoleIDs:  user.RoleIDs,
		},
	}, nil
}

// NewUserData builds the public profile snapshot of a user.
func NewUserData(user *model.User) UserData {
	roleIDs := user.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}
	return UserData{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RoleIDs:   roleIDs,
	}
}

func randomToken() (string, error) {
	buf := make([]byte, refreshTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
