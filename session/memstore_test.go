package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store, err := InMemoryStore(10 * time.Minute)
	require.NoError(t, err)

	s, err := store.Load(ctx, "")
	require.NoError(t, err)
	require.True(t, s.IsNew())
	require.False(t, s.Modified())
	require.Len(t, s.ID(), idBytes*2)

	s.Set("user", "1")
	require.True(t, s.Modified())
	require.NoError(t, store.Save(ctx, s))
	require.False(t, s.Modified())

	loaded, err := store.Load(ctx, s.ID())
	require.NoError(t, err)
	require.False(t, loaded.IsNew())
	require.Equal(t, s.ID(), loaded.ID())
	v, ok := loaded.Get("user")
	require.True(t, ok)
	require.Equal(t, "1", v)

	require.NoError(t, store.Delete(ctx, s.ID()))
	gone, err := store.Load(ctx, s.ID())
	require.NoError(t, err)
	require.True(t, gone.IsNew())
	require.NotEqual(t, s.ID(), gone.ID(), "unknown ids must not be adopted")

	require.NoError(t, store.Delete(ctx, s.ID()), "deleting twice is not an error")
}

func TestLoadRejectsForeignIDs(t *testing.T) {
	ctx := context.Background()
	store, err := InMemoryStore(time.Minute)
	require.NoError(t, err)

	for _, id := range []string{"abc", "../../etc/passwd", "zz" + string(make([]byte, 62))} {
		s, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.True(t, s.IsNew())
		require.NotEqual(t, id, s.ID())
	}
}

func TestRotate(t *testing.T) {
	ctx := context.Background()
	store, err := InMemoryStore(time.Minute)
	require.NoError(t, err)

	s, err := New()
	require.NoError(t, err)
	s.Set("user", "1")
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Load(ctx, s.ID())
	require.NoError(t, err)
	rotated, err := store.Rotate(ctx, loaded)
	require.NoError(t, err)
	require.NotEqual(t, s.ID(), rotated.ID())
	require.True(t, rotated.Modified())
	v, _ := rotated.Get("user")
	require.Equal(t, "1", v)
	require.NoError(t, store.Save(ctx, rotated))

	old, err := store.Load(ctx, s.ID())
	require.NoError(t, err)
	require.True(t, old.IsNew(), "old id should be gone after rotation")
}

func TestSessionValues(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	s.Clear("missing")
	require.False(t, s.Modified(), "clearing a missing key is not a change")
	s.Flush()
	require.False(t, s.Modified())

	s.Set("a", "1")
	s.Set("b", "2")
	s.Clear("a")
	_, ok := s.Get("a")
	require.False(t, ok)
	_, ok = s.Get("b")
	require.True(t, ok)
	s.Flush()
	_, ok = s.Get("b")
	require.False(t, ok)
}
