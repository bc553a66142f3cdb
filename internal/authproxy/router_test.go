package authproxy_test

import (
	"context"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/authproxy"
	"github.com/andrebq/gatekeeper/internal/testutil"
	"github.com/andrebq/gatekeeper/resettoken"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/andrebq/gatekeeper/session"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/andrebq/gatekeeper/web"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	ctx := context.Background()
	pool := secret.NewPool(&secret.Hasher{Iterations: 1000, Rand: rand.Reader}, 1)
	var ana identity.User
	store, cleanup := testutil.AcquirePopulatedStore(ctx, t, "proxy", func(ctx context.Context, s *userstore.Store) error {
		hash, err := pool.Hasher().Hash("ana-password")
		if err != nil {
			return err
		}
		ana, err = s.Create(ctx, userstore.NewUser{Email: "ana@example.com", PasswordHash: hash, IsActive: true})
		if err != nil {
			return err
		}
		if _, err := s.CreateScope(ctx, "reports", ""); err != nil {
			return err
		}
		return s.Grant(ctx, ana.ID, "reports")
	})
	defer cleanup()

	var seen []http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Clone())
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()
	upstreamURL, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	sessions, err := session.InMemoryStore(time.Hour)
	require.NoError(t, err)
	tokens, err := resettoken.New([]byte("proxy secret"))
	require.NoError(t, err)
	realm, err := web.NewRealm(web.Options{
		Users:          store,
		Scopes:         store,
		Sessions:       sessions,
		Passwords:      pool,
		Tokens:         tokens,
		Mailer:         web.LogMailer{},
		InsecureCookie: true,
	})
	require.NoError(t, err)
	handler := authproxy.AsHandler(realm, upstreamURL, "reports")

	apitest.Handler(handler).Get("/reports/2022").Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(handler).Get("/auth/me").Expect(t).Status(http.StatusOK).End()

	res := apitest.Handler(handler).
		Post("/auth/login").
		JSON(`{"email":"ana@example.com","password":"ana-password"}`).
		Expect(t).
		Status(http.StatusOK).
		End()
	var cookie string
	for _, c := range res.Response.Cookies() {
		if c.Name == web.DefaultCookieName {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)

	apitest.Handler(handler).
		Get("/reports/2022").
		Cookie(web.DefaultCookieName, cookie).
		Header(authproxy.EmailHeader, "mallory@example.com").
		Expect(t).
		Status(http.StatusOK).
		End()

	require.Len(t, seen, 1)
	require.Equal(t, strconv.FormatInt(ana.ID, 10), seen[0].Get(authproxy.UserIDHeader))
	require.Equal(t, "ana@example.com", seen[0].Get(authproxy.EmailHeader))
	require.Equal(t, "authenticated,reports", seen[0].Get(authproxy.ScopesHeader))
}
