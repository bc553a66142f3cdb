package userstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/testutil"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireStore(ctx, t, "lookup")
	defer cleanup()

	created, err := store.Create(ctx, userstore.NewUser{
		Email:        " Ana@Example.com ",
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "Lima",
		IsActive:     true,
	})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", created.Email)
	require.NotZero(t, created.ID)

	byID, found, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, created, byID)

	byEmail, found, err := store.GetByEmail(ctx, "ANA@example.COM")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, created, byEmail)

	_, found, err = store.GetByID(ctx, created.ID+100)
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = store.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = store.GetByEmail(ctx, "not an email")
	require.NoError(t, err)
	require.False(t, found)

	looked, err := store.Lookup(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, created, looked)
	_, err = store.Lookup(ctx, "nobody@example.com")
	require.True(t, errors.Is(err, userstore.UserNotFound{Email: "nobody@example.com"}))

	_, err = store.Create(ctx, userstore.NewUser{Email: "ana@example.com", PasswordHash: "other"})
	require.Error(t, err, "emails are unique")

	_, err = store.Create(ctx, userstore.NewUser{Email: "nope"})
	var invalid userstore.InvalidEmail
	require.True(t, errors.As(err, &invalid))
}

func TestUpdateIsVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireStore(ctx, t, "update")
	defer cleanup()

	u, err := store.Create(ctx, userstore.NewUser{Email: "bob@example.com", PasswordHash: "old", IsActive: true})
	require.NoError(t, err)

	hash := "new"
	inactive := false
	login := time.Date(2022, 5, 1, 10, 30, 0, 123456789, time.UTC)
	require.NoError(t, store.Update(ctx, u.ID, identity.Changes{
		PasswordHash: &hash,
		IsActive:     &inactive,
		LastLogin:    &login,
	}))

	loaded, found, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "new", loaded.PasswordHash)
	require.False(t, loaded.IsActive)
	require.True(t, login.Equal(loaded.LastLogin))

	require.NoError(t, store.Update(ctx, u.ID, identity.Changes{}))

	err = store.Update(ctx, u.ID+1, identity.Changes{PasswordHash: &hash})
	require.True(t, errors.Is(err, userstore.UserNotFound{ID: u.ID + 1}))
	err = store.Update(ctx, u.ID+1, identity.Changes{})
	require.True(t, errors.Is(err, userstore.UserNotFound{ID: u.ID + 1}))
}

func TestScopes(t *testing.T) {
	ctx := context.Background()
	var userID int64
	store, cleanup := testutil.AcquirePopulatedStore(ctx, t, "scopes", func(ctx context.Context, s *userstore.Store) error {
		u, err := s.Create(ctx, userstore.NewUser{Email: "ana@example.com", PasswordHash: "x", IsActive: true})
		if err != nil {
			return err
		}
		userID = u.ID
		for _, code := range []string{"b", "a", "c"} {
			if _, err := s.CreateScope(ctx, code, "scope "+code); err != nil {
				return err
			}
		}
		for _, code := range []string{"b", "a", "b"} {
			if err := s.Grant(ctx, u.ID, code); err != nil {
				return err
			}
		}
		return nil
	})
	defer cleanup()

	codes, err := store.Scopes(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, codes)

	require.NoError(t, store.Revoke(ctx, userID, "a"))
	codes, err = store.Scopes(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, codes)

	codes, err = store.Scopes(ctx, userID+1)
	require.NoError(t, err)
	require.Empty(t, codes)

	err = store.Grant(ctx, userID, "missing")
	require.True(t, errors.Is(err, userstore.ScopeNotFound{Code: "missing"}))
	err = store.Grant(ctx, userID+1, "c")
	require.True(t, errors.Is(err, userstore.UserNotFound{ID: userID + 1}))

	_, err = store.CreateScope(ctx, "a", "duplicate")
	require.Error(t, err)
	_, err = store.CreateScope(ctx, "  ", "")
	require.Error(t, err)
}

func TestAuthenticateAgainstStore(t *testing.T) {
	ctx := context.Background()
	store, cleanup := testutil.AcquireStore(ctx, t, "auth")
	defer cleanup()

	u, err := store.Create(ctx, userstore.NewUser{Email: "ana@example.com", PasswordHash: "x", FirstName: "Ana", IsActive: true})
	require.NoError(t, err)
	for _, code := range []string{"write", "read"} {
		_, err := store.CreateScope(ctx, code, "")
		require.NoError(t, err)
		require.NoError(t, store.Grant(ctx, u.ID, code))
	}

	sess := mapSession{}
	identity.Login(sess, u)
	creds, principal := identity.Authenticate(ctx, sess, store, store)
	require.Equal(t, []string{"authenticated", "read", "write"}, creds.Scopes)
	require.Equal(t, "Ana", principal.DisplayName())
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "users.db")

	rw, err := userstore.Open(ctx, file, true)
	require.NoError(t, err)
	u, err := rw.Create(ctx, userstore.NewUser{Email: "ana@example.com", PasswordHash: "x", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	ro, err := userstore.Open(ctx, file, false)
	require.NoError(t, err)
	defer ro.Close()

	_, found, err := ro.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, found)

	_, err = ro.Create(ctx, userstore.NewUser{Email: "bob@example.com"})
	require.True(t, errors.Is(err, userstore.ReadOnly{}))
	active := false
	err = ro.Update(ctx, u.ID, identity.Changes{IsActive: &active})
	require.True(t, errors.Is(err, userstore.ReadOnly{}))
	require.True(t, errors.Is(ro.Grant(ctx, u.ID, "a"), userstore.ReadOnly{}))
}

type mapSession map[string]string

func (m mapSession) Get(key string) (string, bool) { v, ok := m[key]; return v, ok }
func (m mapSession) Set(key, value string)         { m[key] = value }
func (m mapSession) Clear(key string)              { delete(m, key) }
