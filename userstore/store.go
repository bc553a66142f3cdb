// Package userstore keeps users and their scopes in a SQLite database.
//
// It implements identity.UserStore and identity.ScopeStore. All reads and
// writes go through a single *sql.DB, so an update is visible to the next
// read made through the same Store.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
)

type (
	Store struct {
		db        *sql.DB
		writeable bool
	}

	NewUser struct {
		Email        string
		PasswordHash string
		FirstName    string
		LastName     string
		IsActive     bool
	}
)

var (
	_ identity.UserStore  = (*Store)(nil)
	_ identity.ScopeStore = (*Store)(nil)
)

const (
	userColumns = `user_id, email, password, first_name, last_name, is_active, last_login`
)

func openDatabase(ctx context.Context, file string, readwrite bool) (*sql.DB, error) {
	if readwrite {
		err := os.MkdirAll(filepath.Dir(file), 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory to store %v, cause %w", file, err)
		}
	}
	var connstr string
	if readwrite {
		connstr = fmt.Sprintf("file:%v?_foreign_keys=1&_journal=wal&_busy_timeout=5000&mode=rwc", file)
	} else {
		connstr = fmt.Sprintf("file:%v?_foreign_keys=1&mode=ro", file)
	}
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping user store %v, cause %v", file, err)
	}
	return conn, nil
}

// Open opens (and when readwrite is set, creates) the database at file.
func Open(ctx context.Context, file string, readwrite bool) (*Store, error) {
	conn, err := openDatabase(ctx, file, readwrite)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, writeable: readwrite}
	if readwrite {
		err = s.init(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("unable to init user store %v, cause %w", file, err)
		}
	}
	return s, nil
}

func (s *Store) Create(ctx context.Context, nu NewUser) (identity.User, error) {
	if !s.writeable {
		return identity.User{}, ReadOnly{}
	}
	email, hash, err := normalizeEmail(nu.Email)
	if err != nil {
		return identity.User{}, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `insert into users(email, email_hash64, password, first_name, last_name, is_active)
		values (?, ?, ?, ?, ?, ?) returning user_id`,
		email, hash, nu.PasswordHash, nu.FirstName, nu.LastName, nu.IsActive).Scan(&id)
	if err != nil {
		return identity.User{}, fmt.Errorf("unable to create user %v, cause %w", email, err)
	}
	return identity.User{
		ID:           id,
		Email:        email,
		PasswordHash: nu.PasswordHash,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		IsActive:     nu.IsActive,
	}, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (identity.User, bool, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where user_id = ?`, id)
	return scanUser(row)
}

// GetByEmail looks email up ignoring case and surrounding spaces.
func (s *Store) GetByEmail(ctx context.Context, email string) (identity.User, bool, error) {
	email, hash, err := normalizeEmail(email)
	if err != nil {
		return identity.User{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email_hash64 = ? and email = ?`, hash, email)
	return scanUser(row)
}

// Lookup is GetByEmail for callers that treat a missing user as an error.
func (s *Store) Lookup(ctx context.Context, email string) (identity.User, error) {
	u, found, err := s.GetByEmail(ctx, email)
	if err != nil {
		return identity.User{}, err
	} else if !found {
		return identity.User{}, UserNotFound{Email: email}
	}
	return u, nil
}

func (s *Store) Update(ctx context.Context, id int64, changes identity.Changes) error {
	if !s.writeable {
		return ReadOnly{}
	}
	if changes.Empty() {
		_, found, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		} else if !found {
			return UserNotFound{ID: id}
		}
		return nil
	}
	var sets []string
	var args []interface{}
	if changes.PasswordHash != nil {
		sets = append(sets, "password = ?")
		args = append(args, *changes.PasswordHash)
	}
	if changes.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *changes.FirstName)
	}
	if changes.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *changes.LastName)
	}
	if changes.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *changes.IsActive)
	}
	if changes.LastLogin != nil {
		sets = append(sets, "last_login = ?")
		args = append(args, toNullTime(*changes.LastLogin))
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `update users set `+strings.Join(sets, ", ")+` where user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	} else if n == 0 {
		return UserNotFound{ID: id}
	}
	return nil
}

// Scopes returns the codes granted to userID in ascending order.
func (s *Store) Scopes(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select s.code from scopes s
	inner join user_scopes us on us.scope_id = s.scope_id
	where us.user_id = ?
	order by s.code asc`, userID)
	if err != nil {
		return nil, fmt.Errorf("unable to list scopes of user %v, cause %w", userID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var code string
		err = rows.Scan(&code)
		if err != nil {
			return nil, fmt.Errorf("unable to scan scope code, cause %w", err)
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func (s *Store) CreateScope(ctx context.Context, code, description string) (int64, error) {
	if !s.writeable {
		return 0, ReadOnly{}
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, errors.New("scope code cannot be empty")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `insert into scopes(code, description) values (?, ?) returning scope_id`, code, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("unable to create scope %v, cause %w", code, err)
	}
	return id, nil
}

// Grant gives code to userID. Granting twice is not an error.
func (s *Store) Grant(ctx context.Context, userID int64, code string) error {
	if !s.writeable {
		return ReadOnly{}
	}
	scopeID, err := s.lookupScope(ctx, code)
	if err != nil {
		return err
	}
	if _, found, err := s.GetByID(ctx, userID); err != nil {
		return err
	} else if !found {
		return UserNotFound{ID: userID}
	}
	_, err = s.db.ExecContext(ctx, `insert into user_scopes(user_id, scope_id) values (?, ?) on conflict do nothing`, userID, scopeID)
	if err != nil {
		return fmt.Errorf("unable to grant %v to user %v, cause %w", code, userID, err)
	}
	return nil
}

func (s *Store) Revoke(ctx context.Context, userID int64, code string) error {
	if !s.writeable {
		return ReadOnly{}
	}
	scopeID, err := s.lookupScope(ctx, code)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `delete from user_scopes where user_id = ? and scope_id = ?`, userID, scopeID)
	if err != nil {
		return fmt.Errorf("unable to revoke %v from user %v, cause %w", code, userID, err)
	}
	return nil
}

func (s *Store) lookupScope(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `select scope_id from scopes where code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ScopeNotFound{Code: code}
	} else if err != nil {
		return 0, fmt.Errorf("unable to lookup scope %v, cause %w", code, err)
	}
	return id, nil
}

func (s *Store) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists users(
			user_id integer not null primary key autoincrement,
			email text not null,
			email_hash64 integer not null,
			password text not null,
			first_name text not null default '',
			last_name text not null default '',
			is_active integer not null default 1,
			last_login integer,
			unique(email_hash64, email)
		)`,
		`create table if not exists scopes(
			scope_id integer not null primary key autoincrement,
			code text not null unique,
			description text not null default ''
		)`,
		`create table if not exists user_scopes(
			user_id integer not null,
			scope_id integer not null,
			primary key(user_id, scope_id),
			foreign key(user_id) references users(user_id),
			foreign key(scope_id) references scopes(scope_id)
		)`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (identity.User, bool, error) {
	var u identity.User
	var lastLogin sql.NullInt64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.IsActive, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, false, nil
	} else if err != nil {
		return identity.User{}, false, fmt.Errorf("unable to load user, cause %w", err)
	}
	if lastLogin.Valid {
		u.LastLogin = time.Unix(0, lastLogin.Int64).UTC()
	}
	return u, true, nil
}

func normalizeEmail(email string) (string, int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", 0, InvalidEmail{Email: email}
	}
	return email, int64(xxhash.Sum64String(email)), nil
}

func toNullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
