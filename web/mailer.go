package web

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/logutil"
)

type (
	// PasswordReset is everything needed to build a reset link:
	// <base>/auth/password/reset/<UID>/<Token>
	PasswordReset struct {
		User  identity.User
		UID   string
		Token string
	}

	Mailer interface {
		SendPasswordReset(ctx context.Context, reset PasswordReset) error
	}

	// LogMailer writes reset links to the context logger instead of sending
	// them. Good enough for development and for deployments where an
	// operator hands out links manually.
	LogMailer struct {
		BaseURL string
	}
)

func (l LogMailer) SendPasswordReset(ctx context.Context, reset PasswordReset) error {
	log := logutil.GetOrDefault(ctx)
	log.Info().
		Int64("user.id", reset.User.ID).
		Str("user.email", reset.User.Email).
		Str("reset.link", ResetLink(l.BaseURL, reset)).
		Msg("Password reset requested")
	return nil
}

// ResetLink builds the confirmation URL for reset under base.
func ResetLink(base string, reset PasswordReset) string {
	return strings.TrimSuffix(base, "/") + "/auth/password/reset/" + reset.UID + "/" + reset.Token
}

// EncodeUID encodes a user id for use in reset links.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}
