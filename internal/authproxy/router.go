// Package authproxy puts a Realm in front of an upstream HTTP service.
//
// Requests under /auth/ are answered by the realm itself. Everything else is
// forwarded to the upstream once the realm has authenticated it, with the
// resolved identity in request headers. Clients cannot set those headers
// themselves, any incoming copy is dropped.
package authproxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/web"
	"github.com/julienschmidt/httprouter"
)

const (
	UserIDHeader = "X-Gatekeeper-User-Id"
	EmailHeader  = "X-Gatekeeper-Email"
	ScopesHeader = "X-Gatekeeper-Scopes"
)

var (
	methods = []string{
		"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD",
	}
)

// AsHandler routes /auth/ to realm and the rest to upstream. Upstream
// requests must carry every scope in required.
func AsHandler(realm *web.Realm, upstream *url.URL, required ...string) http.Handler {
	router := httprouter.New()

	authCalls := realm.Handler()
	for _, m := range methods {
		router.Handler(m, "/auth/*path", authCalls)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Header.Del(UserIDHeader)
		r.Header.Del(EmailHeader)
		r.Header.Del(ScopesHeader)
		creds, principal := web.FromContext(r.Context())
		r.Header.Set(ScopesHeader, strings.Join(creds.Scopes, ","))
		if up, ok := principal.(identity.UserPrincipal); ok {
			r.Header.Set(UserIDHeader, strconv.FormatInt(up.User.ID, 10))
			r.Header.Set(EmailHeader, up.User.Email)
		}
	}

	// delegate to the upstream if not found
	router.NotFound = realm.Protect(proxy, required...)
	router.HandleMethodNotAllowed = false

	return router
}
