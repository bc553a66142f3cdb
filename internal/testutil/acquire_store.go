package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/gatekeeper/userstore"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore opens a writable user store inside a temporary directory.
// The returned func closes the store and removes the directory.
func AcquireStore(ctx context.Context, t TestLog, name string) (*userstore.Store, func()) {
	dir, err := os.MkdirTemp("", "gatekeeper-tests")
	if err != nil {
		t.Fatal(err)
	}
	abspath := filepath.Join(dir, name, "users.db")
	store, err := userstore.Open(ctx, abspath, true)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close user store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// AcquirePopulatedStore is AcquireStore followed by loader. The store is
// re-opened before being returned, so loader writes go through a real
// close/open cycle.
func AcquirePopulatedStore(ctx context.Context, t TestLog, name string, loader func(context.Context, *userstore.Store) error) (*userstore.Store, func()) {
	dir, err := os.MkdirTemp("", "gatekeeper-tests")
	if err != nil {
		t.Fatal(err)
	}
	abspath := filepath.Join(dir, name, "users.db")
	store, err := userstore.Open(ctx, abspath, true)
	if err != nil {
		t.Fatal(err)
	}
	if loader != nil {
		err = loader(ctx, store)
		if err != nil {
			t.Fatal(err)
		}
	}
	store.Close()
	store, err = userstore.Open(ctx, abspath, true)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close user store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
