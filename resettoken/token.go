// Package resettoken issues the tokens sent in password reset links.
//
// Tokens look like "<timestamp>-<signature>": the issue time in unix seconds,
// written in base 36, followed by a hex HMAC-SHA256. Nothing is stored on the
// server. The signature covers the user id and the parts of the account
// that change when the account is used or secured (password hash, active
// flag, last login), so a token stops working as soon as the password is
// reset, the account is disabled or the user logs in again.
package resettoken

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/secret"
)

const (
	DefaultMaxAge  = 72 * time.Hour
	DefaultSkew    = time.Minute
	DefaultPurpose = "gatekeeper/resettoken"

	separator = "-"
)

var (
	// ErrInvalidWindow is returned by New when the max age is not positive
	// or the skew is negative.
	ErrInvalidWindow = errors.New("resettoken: max age must be positive and skew must not be negative")
)

type (
	Generator struct {
		key    []byte
		maxAge time.Duration
		skew   time.Duration
		now    func() time.Time

		purpose string
	}

	Option func(*Generator)
)

// WithMaxAge sets how long a token stays valid after being issued.
func WithMaxAge(d time.Duration) Option {
	return func(g *Generator) { g.maxAge = d }
}

// WithSkew sets how far in the future a token timestamp may be before it is
// rejected.
func WithSkew(d time.Duration) Option {
	return func(g *Generator) { g.skew = d }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPurpose changes the salt mixed into the signing key. Tokens issued
// under one purpose never validate under another.
func WithPurpose(purpose string) Option {
	return func(g *Generator) { g.purpose = purpose }
}

// New returns a generator signing with a key derived from signingSecret.
// An empty secret returns secret.ErrMissingSecret, a non-positive max age or
// a negative skew returns ErrInvalidWindow.
func New(signingSecret []byte, opts ...Option) (*Generator, error) {
	g := &Generator{
		maxAge:  DefaultMaxAge,
		skew:    DefaultSkew,
		now:     time.Now,
		purpose: DefaultPurpose,
	}
	for _, o := range opts {
		o(g)
	}
	if g.maxAge <= 0 || g.skew < 0 {
		return nil, ErrInvalidWindow
	}
	key, err := secret.DeriveKey(g.purpose, signingSecret)
	if err != nil {
		return nil, err
	}
	g.key = key
	return g, nil
}

func (g *Generator) MaxAge() time.Duration {
	return g.maxAge
}

// MakeToken returns a token for u, valid for MaxAge.
func (g *Generator) MakeToken(u identity.User) string {
	ts := strconv.FormatInt(g.now().Unix(), 36)
	return ts + separator + g.signature(u, ts)
}

// CheckToken reports whether token was issued for u in its current state
// and has not expired.
func (g *Generator) CheckToken(u identity.User, token string) bool {
	idx := strings.LastIndex(token, separator)
	if idx <= 0 || idx == len(token)-1 {
		return false
	}
	ts, sig := token[:idx], token[idx+1:]

	issued, err := strconv.ParseInt(ts, 36, 64)
	if err != nil || issued < 0 {
		return false
	}
	now := g.now().Unix()
	if issued > now+int64(g.skew/time.Second) {
		return false
	}
	if time.Duration(now-issued)*time.Second > g.maxAge {
		return false
	}
	return secret.EqualString(g.signature(u, ts), sig)
}

func (g *Generator) signature(u identity.User, ts string) string {
	return hex.EncodeToString(secret.Sign(g.key, []byte(fingerprint(u)+":"+ts)))
}

// fingerprint joins the parts of u that invalidate outstanding tokens when
// they change.
func fingerprint(u identity.User) string {
	var lastLogin string
	if !u.LastLogin.IsZero() {
		lastLogin = strconv.FormatInt(u.LastLogin.Unix(), 10)
	}
	return strings.Join([]string{
		strconv.FormatInt(u.ID, 10),
		u.PasswordHash,
		strconv.FormatBool(u.IsActive),
		lastLogin,
	}, ":")
}
