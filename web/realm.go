// Package web exposes gatekeeper over HTTP.
//
// A Realm loads the session named by the request cookie, resolves it with
// identity.Authenticate and makes the result available to handlers through
// FromContext. It also serves the login, logout, password change and
// password reset endpoints under /auth/.
//
// Responses never say why authentication failed. A wrong password, an
// unknown email and a disabled account all produce the same 401.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/andrebq/gatekeeper/resettoken"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/andrebq/gatekeeper/session"
	"github.com/julienschmidt/httprouter"
)

const (
	DefaultCookieName = "gatekeeper_session"
)

type (
	Options struct {
		Users     identity.UserStore
		Scopes    identity.ScopeStore
		Sessions  session.Store
		Passwords *secret.Pool
		Tokens    *resettoken.Generator
		Mailer    Mailer

		CookieName string
		// InsecureCookie drops the Secure attribute so the cookie works over
		// plain HTTP. Only meant for local development.
		InsecureCookie bool
	}

	Realm struct {
		users     identity.UserStore
		scopes    identity.ScopeStore
		sessions  session.Store
		passwords *secret.Pool
		tokens    *resettoken.Generator
		mailer    Mailer

		cookieName     string
		insecureCookie bool

		// verified against when the email is unknown, so both paths cost
		// one derivation
		decoyHash string
	}

	stateKey byte

	requestState struct {
		creds     identity.Credentials
		principal identity.Principal
		sess      *session.Session
	}
)

var (
	requestStateKey = stateKey(1)
)

func NewRealm(opts Options) (*Realm, error) {
	switch {
	case opts.Users == nil:
		return nil, errors.New("web: missing user store")
	case opts.Scopes == nil:
		return nil, errors.New("web: missing scope store")
	case opts.Sessions == nil:
		return nil, errors.New("web: missing session store")
	case opts.Passwords == nil:
		return nil, errors.New("web: missing password pool")
	case opts.Tokens == nil:
		return nil, errors.New("web: missing reset token generator")
	case opts.Mailer == nil:
		return nil, errors.New("web: missing mailer")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	decoy, err := opts.Passwords.Hasher().Hash("decoy")
	if err != nil {
		return nil, err
	}
	return &Realm{
		users:          opts.Users,
		scopes:         opts.Scopes,
		sessions:       opts.Sessions,
		passwords:      opts.Passwords,
		tokens:         opts.Tokens,
		mailer:         opts.Mailer,
		cookieName:     opts.CookieName,
		insecureCookie: opts.InsecureCookie,
		decoyHash:      decoy,
	}, nil
}

// FromContext returns what the realm resolved for the current request.
// Requests that did not go through a Realm are unauthenticated.
func FromContext(ctx context.Context) (identity.Credentials, identity.Principal) {
	st, ok := ctx.Value(requestStateKey).(*requestState)
	if !ok {
		return identity.UnauthenticatedCredentials(), identity.Anonymous{}
	}
	return st.creds, st.principal
}

// Middleware authenticates every request before handing it to next.
func (s *Realm) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logutil.GetOrDefault(ctx)
		var id string
		if c, err := r.Cookie(s.cookieName); err == nil {
			id = c.Value
		}
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			log.Error().Err(err).Msg("Unable to load session")
			writeError(w, http.StatusServiceUnavailable, "Session storage unavailable.")
			return
		}
		creds, principal := identity.Authenticate(ctx, sess, s.users, s.scopes)
		if sess.Modified() && !sess.IsNew() {
			if err := s.sessions.Save(ctx, sess); err != nil {
				log.Error().Err(err).Msg("Unable to save cleared session")
			}
		}
		st := &requestState{creds: creds, principal: principal, sess: sess}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, requestStateKey, st)))
	})
}

// Require rejects requests lacking any of scopes: 401 when the request is
// not authenticated, 403 otherwise.
func (s *Realm) Require(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, _ := FromContext(r.Context())
			if !creds.IsAuthenticated() {
				writeError(w, http.StatusUnauthorized, "Authentication required.")
				return
			}
			if !creds.HasAll(scopes...) {
				writeError(w, http.StatusForbidden, "Missing required scope.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect is Middleware followed by Require.
func (s *Realm) Protect(sensitive http.Handler, scopes ...string) http.Handler {
	return s.Middleware(s.Require(scopes...)(sensitive))
}

// Handler serves the /auth/ endpoints.
func (s *Realm) Handler() http.Handler {
	router := httprouter.New()
	router.HandlerFunc("POST", "/auth/login", s.login)
	router.HandlerFunc("POST", "/auth/logout", s.logout)
	router.HandlerFunc("GET", "/auth/me", s.me)
	router.Handler("POST", "/auth/password/change",
		s.Require(identity.Authenticated)(http.HandlerFunc(s.changePassword)))
	router.HandlerFunc("POST", "/auth/password/reset", s.requestReset)
	router.HandlerFunc("GET", "/auth/password/reset/:uid/:token", s.checkReset)
	router.HandlerFunc("POST", "/auth/password/reset/:uid/:token", s.confirmReset)
	return s.Middleware(router)
}

func (s *Realm) state(ctx context.Context) *requestState {
	st, _ := ctx.Value(requestStateKey).(*requestState)
	return st
}

// commit persists sess and points the client cookie at it. Must be called
// before the response body is written.
func (s *Realm) commit(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
