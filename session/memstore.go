package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	memStore struct {
		cache *bigcache.BigCache
	}
)

// InMemoryStore keeps sessions in a bigcache instance; entries are evicted
// ttl after they were last saved. Everything is lost when the process
// restarts, which only means users have to log in again.
func InMemoryStore(ttl time.Duration) (Store, error) {
	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, fmt.Errorf("session: unable to create cache, cause %w", err)
	}
	return &memStore{
		cache: cache,
	}, nil
}

func (m *memStore) Load(ctx context.Context, id string) (*Session, error) {
	if !validID(id) {
		return New()
	}
	buf, err := m.cache.Get(id)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return New()
	} else if err != nil {
		return nil, fmt.Errorf("session: unable to load, cause %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(buf, &values); err != nil {
		return nil, fmt.Errorf("session: corrupted entry, cause %w", err)
	}
	return &Session{id: id, values: values}, nil
}

func (m *memStore) Save(ctx context.Context, s *Session) error {
	buf, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("session: unable to encode, cause %w", err)
	}
	if err := m.cache.Set(s.id, buf); err != nil {
		return fmt.Errorf("session: unable to save, cause %w", err)
	}
	s.modified = false
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	err := m.cache.Delete(id)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("session: unable to delete, cause %w", err)
	}
	return nil
}

func (m *memStore) Rotate(ctx context.Context, s *Session) (*Session, error) {
	fresh, err := New()
	if err != nil {
		return nil, err
	}
	for k, v := range s.values {
		fresh.values[k] = v
	}
	fresh.modified = true
	if !s.isNew {
		if err := m.Delete(ctx, s.id); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}
