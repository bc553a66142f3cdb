package identity

import (
	"context"
	"strconv"

	"github.com/andrebq/gatekeeper/internal/logutil"
)

const (
	// SessionKey is the session entry holding the authenticated user id.
	SessionKey = "user"
)

// Login stores the user id in the session.
func Login(sess Session, u User) {
	sess.Set(SessionKey, strconv.FormatInt(u.ID, 10))
}

// Authenticate resolves the user referenced by sess.
//
// Empty sessions never reach the stores. Sessions whose user cannot be
// loaded are cleared; sessions of inactive users are kept as they are.
func Authenticate(ctx context.Context, sess Session, users UserFinder, scopes ScopeStore) (Credentials, Principal) {
	raw, ok := sess.Get(SessionKey)
	if !ok {
		return UnauthenticatedCredentials(), Anonymous{}
	}
	log := logutil.GetOrDefault(ctx)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Debug().Err(err).Msg("Session holds an invalid user id, clearing it")
		sess.Clear(SessionKey)
		return UnauthenticatedCredentials(), Anonymous{}
	}
	log = log.With().Int64("user.id", id).Logger()

	user, found, err := users.GetByID(ctx, id)
	if err != nil || !found {
		log.Debug().Err(err).Bool("user.found", found).Msg("Unable to load session user, clearing session")
		sess.Clear(SessionKey)
		return UnauthenticatedCredentials(), Anonymous{}
	}
	if !user.IsActive {
		log.Debug().Msg("Session user is inactive")
		return UnauthenticatedCredentials(), Anonymous{}
	}

	codes, err := scopes.Scopes(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Unable to load scopes for session user")
		return UnauthenticatedCredentials(), Anonymous{}
	}
	return AuthenticatedCredentials(codes), UserPrincipal{User: user}
}
