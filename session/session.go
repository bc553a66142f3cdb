// Package session keeps the small amount of per-client state gatekeeper
// needs between requests (in practice, the id of the logged in user).
//
// A Session is owned by a single request. Stores hand out fresh copies on
// every Load, so concurrent requests sharing a session id do not see each
// other's changes until they Save; the last Save wins.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	idBytes = 32
)

type (
	Session struct {
		id       string
		values   map[string]string
		modified bool
		isNew    bool
	}

	Store interface {
		// Load returns the session saved under id. Unknown, expired or
		// empty ids yield a new session with a freshly generated id.
		Load(ctx context.Context, id string) (*Session, error)
		Save(ctx context.Context, s *Session) error
		Delete(ctx context.Context, id string) error
		// Rotate moves s to a new id, deleting the old entry.
		Rotate(ctx context.Context, s *Session) (*Session, error)
	}
)

// New returns an empty session with a random id.
func New() (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &Session{id: id, values: map[string]string{}, isNew: true}, nil
}

func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// Modified reports whether values changed since the session was loaded.
func (s *Session) Modified() bool { return s.modified }

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	if old, ok := s.values[key]; ok && old == value {
		return
	}
	s.values[key] = value
	s.modified = true
}

func (s *Session) Clear(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.modified = true
}

// Flush removes every value.
func (s *Session) Flush() {
	if len(s.values) == 0 {
		return
	}
	s.values = map[string]string{}
	s.modified = true
}

func newID() (string, error) {
	var buf [idBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("session: unable to generate id, cause %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

func validID(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
