package web

import (
	"context"
	"net/http"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	loginForm struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	changePasswordForm struct {
		Current      string `json:"current_password"`
		New          string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}

	resetRequestForm struct {
		Email string `json:"email"`
	}

	setPasswordForm struct {
		New          string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}

	principalResponse struct {
		Authenticated bool     `json:"authenticated"`
		Credentials   []string `json:"credentials"`
		DisplayName   string   `json:"display_name,omitempty"`
	}
)

func (f setPasswordForm) problem() string {
	switch {
	case f.New == "":
		return "New password cannot be empty."
	case f.New != f.Confirmation:
		return "Password confirmation does not match."
	}
	return ""
}

func (s *Realm) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	st := s.state(ctx)

	var form loginForm
	if err := decodeJSON(w, r, &form); err != nil || form.Email == "" || form.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	user, found, err := s.users.GetByEmail(ctx, form.Email)
	if err != nil {
		log.Error().Err(err).Msg("Unable to lookup user by email")
		writeError(w, http.StatusServiceUnavailable, "User storage unavailable.")
		return
	}
	encoded := s.decoyHash
	if found {
		encoded = user.PasswordHash
	}
	valid, err := s.passwords.Verify(ctx, encoded, form.Password)
	if err != nil {
		log.Warn().Err(err).Msg("Password verification aborted")
		writeError(w, http.StatusServiceUnavailable, "Try again later.")
		return
	}
	if !found || !valid || !user.IsActive {
		log.Info().Bool("user.found", found).Msg("Login rejected")
		st.sess.Flush()
		if !st.sess.IsNew() {
			if err := s.commit(ctx, w, st.sess); err != nil {
				log.Error().Err(err).Msg("Unable to save flushed session")
			}
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	sess, err := s.sessions.Rotate(ctx, st.sess)
	if err != nil {
		log.Error().Err(err).Msg("Unable to rotate session")
		writeError(w, http.StatusServiceUnavailable, "Session storage unavailable.")
		return
	}
	identity.Login(sess, user)
	now := time.Now().UTC()
	if err := s.users.Update(ctx, user.ID, identity.Changes{LastLogin: &now}); err != nil {
		log.Error().Err(err).Int64("user.id", user.ID).Msg("Unable to record last login")
	}
	creds, principal := identity.Authenticate(ctx, sess, s.users, s.scopes)
	if err := s.commit(ctx, w, sess); err != nil {
		log.Error().Err(err).Msg("Unable to save session")
		writeError(w, http.StatusServiceUnavailable, "Session storage unavailable.")
		return
	}
	log.Info().Int64("user.id", user.ID).Msg("User logged in")
	writeJSON(w, http.StatusOK, toPrincipalResponse(creds, principal))
}

func (s *Realm) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.state(ctx)
	if !st.sess.IsNew() {
		st.sess.Flush()
		if err := s.sessions.Delete(ctx, st.sess.ID()); err != nil {
			log := logutil.GetOrDefault(ctx)
			log.Error().Err(err).Msg("Unable to delete session")
		}
	}
	// unknown or expired ids get a fresh session from Load, the client
	// cookie still has to go
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Realm) me(w http.ResponseWriter, r *http.Request) {
	creds, principal := FromContext(r.Context())
	writeJSON(w, http.StatusOK, toPrincipalResponse(creds, principal))
}

func (s *Realm) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	_, principal := FromContext(ctx)
	up, ok := principal.(identity.UserPrincipal)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var form changePasswordForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	valid, err := s.passwords.Verify(ctx, up.User.PasswordHash, form.Current)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Try again later.")
		return
	}
	if !valid {
		writeError(w, http.StatusBadRequest, "Current password is not correct.")
		return
	}
	next := setPasswordForm{New: form.New, Confirmation: form.Confirmation}
	if msg := next.problem(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.setPassword(ctx, up.User, form.New); err != nil {
		log.Error().Err(err).Int64("user.id", up.User.ID).Msg("Unable to change password")
		writeError(w, http.StatusServiceUnavailable, "Unable to change password.")
		return
	}
	log.Info().Int64("user.id", up.User.ID).Msg("Password changed")
	w.WriteHeader(http.StatusNoContent)
}

// requestReset always answers 202 so callers cannot probe which emails
// are registered.
func (s *Realm) requestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)

	var form resetRequestForm
	if err := decodeJSON(w, r, &form); err != nil || form.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}
	user, found, err := s.users.GetByEmail(ctx, form.Email)
	switch {
	case err != nil:
		log.Error().Err(err).Msg("Unable to lookup user for password reset")
	case !found || !user.IsActive:
		log.Debug().Bool("user.found", found).Msg("Password reset ignored")
	default:
		reset := PasswordReset{
			User:  user,
			UID:   EncodeUID(user.ID),
			Token: s.tokens.MakeToken(user),
		}
		if err := s.mailer.SendPasswordReset(ctx, reset); err != nil {
			log.Error().Err(err).Int64("user.id", user.ID).Msg("Unable to send password reset")
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Realm) checkReset(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resetTarget(r); !ok {
		writeError(w, http.StatusNotFound, "Invalid or expired reset link.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Realm) confirmReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	user, ok := s.resetTarget(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid or expired reset link.")
		return
	}
	var form setPasswordForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if msg := form.problem(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := s.setPassword(ctx, user, form.New); err != nil {
		log.Error().Err(err).Int64("user.id", user.ID).Msg("Unable to reset password")
		writeError(w, http.StatusServiceUnavailable, "Unable to reset password.")
		return
	}
	log.Info().Int64("user.id", user.ID).Msg("Password reset completed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Realm) resetTarget(r *http.Request) (identity.User, bool) {
	ctx := r.Context()
	params := httprouter.ParamsFromContext(ctx)
	id, err := DecodeUID(params.ByName("uid"))
	if err != nil {
		return identity.User{}, false
	}
	user, found, err := s.users.GetByID(ctx, id)
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Error().Err(err).Int64("user.id", id).Msg("Unable to load user for password reset")
		return identity.User{}, false
	}
	if !found || !user.IsActive {
		return identity.User{}, false
	}
	if !s.tokens.CheckToken(user, params.ByName("token")) {
		return identity.User{}, false
	}
	return user, true
}

func (s *Realm) setPassword(ctx context.Context, u identity.User, password string) error {
	encoded, err := s.passwords.Hash(ctx, password)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, u.ID, identity.Changes{PasswordHash: &encoded})
}

func toPrincipalResponse(creds identity.Credentials, p identity.Principal) principalResponse {
	return principalResponse{
		Authenticated: creds.IsAuthenticated(),
		Credentials:   creds.Scopes,
		DisplayName:   p.DisplayName(),
	}
}
