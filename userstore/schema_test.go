package userstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmailLookupUsesHashIndex(t *testing.T) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "gatekeeper-tests")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	store, err := Open(ctx, filepath.Join(dir, "users.db"), true)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	email, hash, err := normalizeEmail("ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := store.db.QueryContext(ctx, `explain query plan select `+userColumns+` from users where email_hash64 = ? and email = ?`, hash, email)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var plan []string
	for rows.Next() {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			t.Fatal(err)
		}
		plan = append(plan, detail)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(plan, "\n")
	if !strings.Contains(joined, "USING INDEX") || !strings.Contains(joined, "email_hash64=?") {
		t.Fatalf("email lookups should search the (email_hash64, email) index, got plan:\n%v", joined)
	}

	if _, err := store.Create(ctx, NewUser{Email: "ana@example.com", PasswordHash: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, NewUser{Email: "ANA@example.com ", PasswordHash: "y"}); err == nil {
		t.Fatal("the same normalized email must not be stored twice")
	}
}
