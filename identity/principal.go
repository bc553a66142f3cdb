package identity

import "sort"

const (
	Authenticated   = "authenticated"
	Unauthenticated = "unauthenticated"
)

type (
	// Principal is the identity attached to a single request.
	Principal interface {
		IsAuthenticated() bool
		DisplayName() string
	}

	UserPrincipal struct {
		User User
	}

	Anonymous struct{}

	// Credentials is the ordered list of labels granted to a request.
	// Scopes[0] is always Authenticated or Unauthenticated; the scope codes
	// following Authenticated are unique and sorted.
	Credentials struct {
		Scopes []string
	}
)

func (u UserPrincipal) IsAuthenticated() bool { return u.User.IsActive }
func (u UserPrincipal) DisplayName() string   { return u.User.DisplayName() }

func (Anonymous) IsAuthenticated() bool { return false }
func (Anonymous) DisplayName() string   { return "" }

// UnauthenticatedCredentials is the single credential set given to anyone
// who could not be authenticated.
func UnauthenticatedCredentials() Credentials {
	return Credentials{Scopes: []string{Unauthenticated}}
}

// AuthenticatedCredentials builds the credential set of an authenticated
// user holding codes.
func AuthenticatedCredentials(codes []string) Credentials {
	sorted := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)
	return Credentials{Scopes: append([]string{Authenticated}, sorted...)}
}

func (c Credentials) Has(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func (c Credentials) HasAll(scopes ...string) bool {
	for _, s := range scopes {
		if !c.Has(s) {
			return false
		}
	}
	return true
}

func (c Credentials) IsAuthenticated() bool {
	return len(c.Scopes) > 0 && c.Scopes[0] == Authenticated
}
