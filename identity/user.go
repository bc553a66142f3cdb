package identity

import (
	"context"
	"strings"
	"time"
)

type (
	// User is the subset of an account gatekeeper reads. A zero LastLogin
	// means the user never logged in.
	User struct {
		ID           int64
		Email        string
		PasswordHash string
		FirstName    string
		LastName     string
		IsActive     bool
		LastLogin    time.Time
	}

	// Changes lists the fields an update should touch; nil fields are left
	// as they are.
	Changes struct {
		PasswordHash *string
		FirstName    *string
		LastName     *string
		IsActive     *bool
		LastLogin    *time.Time
	}

	// UserFinder loads users by id. found is false when no such user
	// exists; err is reserved for store failures.
	UserFinder interface {
		GetByID(ctx context.Context, id int64) (u User, found bool, err error)
	}

	UserStore interface {
		UserFinder
		GetByEmail(ctx context.Context, email string) (u User, found bool, err error)
		// Update must be visible to the next read made through the same
		// store.
		Update(ctx context.Context, id int64, changes Changes) error
	}

	// ScopeStore returns the scope codes granted to a user, in any order.
	ScopeStore interface {
		Scopes(ctx context.Context, userID int64) ([]string, error)
	}

	// Session is the per-request key/value capability holding the user id.
	Session interface {
		Get(key string) (string, bool)
		Set(key, value string)
		Clear(key string)
	}
)

// DisplayName is the user's first and last name.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Empty reports whether c would not modify anything.
func (c Changes) Empty() bool {
	return c.PasswordHash == nil &&
		c.FirstName == nil &&
		c.LastName == nil &&
		c.IsActive == nil &&
		c.LastLogin == nil
}
