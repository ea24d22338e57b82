package memory_test

import (
	"testing"
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/nsyszr/rtdb/pkg/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCRUD(t *testing.T) {
	store := memory.NewStore()

	user := &model.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		RoleIDs:      []string{"r1"},
	}
	require.NoError(t, store.Users().Create(user))
	require.NotEmpty(t, user.ID)
	require.False(t, user.CreatedAt.IsZero())

	found, err := store.Users().FindByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", found.Username)

	found, err = store.Users().FindByUsername("ALICE")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	found, err = store.Users().FindByEmail("Alice@Example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	found.FirstName = "Alice"
	require.NoError(t, store.Users().Update(found))

	all, err := store.Users().FetchAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Alice", all[user.ID].FirstName)

	require.NoError(t, store.Users().Delete(user.ID))
	_, err = store.Users().FindByID(user.ID)
	require.Equal(t, storage.ErrNotFound, err)
}

func TestUserStoreNotFound(t *testing.T) {
	store := memory.NewStore()

	_, err := store.Users().FindByID("missing")
	require.Equal(t, storage.ErrNotFound, err)

	err = store.Users().Update(&model.User{ID: "missing"})
	require.Equal(t, storage.ErrNotFound, err)

	err = store.Users().Delete("missing")
	require.Equal(t, storage.ErrNotFound, err)
}

func TestRoleStoreCRUD(t *testing.T) {
	store := memory.NewStore()

	role := &model.Role{Name: "Admin"}
	require.NoError(t, store.Roles().Create(role))
	require.NotEmpty(t, role.ID)

	role.Name = "Administrators"
	require.NoError(t, store.Roles().Update(role))

	found, err := store.Roles().FindByID(role.ID)
	require.NoError(t, err)
	require.Equal(t, "Administrators", found.Name)

	require.NoError(t, store.Roles().Delete(role.ID))
	_, err = store.Roles().FindByID(role.ID)
	require.Equal(t, storage.ErrNotFound, err)
}

func TestRefreshTokenStore(t *testing.T) {
	store := memory.NewStore()

	rt := &model.RefreshToken{Token: "t1", UserID: "u1"}
	require.NoError(t, store.RefreshTokens().Create(rt))
	require.False(t, rt.CreatedAt.IsZero())

	found, err := store.RefreshTokens().FindByToken("t1")
	require.NoError(t, err)
	require.Equal(t, "u1", found.UserID)

	tokens, err := store.RefreshTokens().FindByUserID("u1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	require.NoError(t, store.RefreshTokens().Delete("t1"))
	require.Equal(t, storage.ErrNotFound, store.RefreshTokens().Delete("t1"))
}

func TestRefreshTokenStoreKeepsSeededCreatedAt(t *testing.T) {
	store := memory.NewStore()

	createdAt := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	rt := &model.RefreshToken{Token: "t1", UserID: "u1", CreatedAt: createdAt}
	require.NoError(t, store.RefreshTokens().Create(rt))

	found, err := store.RefreshTokens().FindByToken("t1")
	require.NoError(t, err)
	require.True(t, found.CreatedAt.Equal(createdAt))
}

func TestDeleteExpiredByUserID(t *testing.T) {
	store := memory.NewStore()

	now := time.Now().Round(time.Second).UTC()
	seed := []model.RefreshToken{
		{Token: "old-1", UserID: "u1", CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{Token: "old-2", UserID: "u1", CreatedAt: now.Add(-8 * 24 * time.Hour)},
		{Token: "live", UserID: "u1", CreatedAt: now.Add(-time.Hour)},
		{Token: "other-user-old", UserID: "u2", CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, store.RefreshTokens().Create(&seed[i]))
	}

	cutoff := now.Add(-7 * 24 * time.Hour)
	require.NoError(t, store.RefreshTokens().DeleteExpiredByUserID("u1", cutoff))

	_, err := store.RefreshTokens().FindByToken("old-1")
	require.Equal(t, storage.ErrNotFound, err)
	_, err = store.RefreshTokens().FindByToken("old-2")
	require.Equal(t, storage.ErrNotFound, err)

	// Live tokens and other users' tokens survive the sweep
	_, err = store.RefreshTokens().FindByToken("live")
	require.NoError(t, err)
	_, err = store.RefreshTokens().FindByToken("other-user-old")
	require.NoError(t, err)
}
