package users

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andrebq/gatekeeper/identity"
	"github.com/andrebq/gatekeeper/internal/cmdflags"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/urfave/cli/v2"
)

type (
	userView struct {
		ID        int64      `json:"id"`
		Email     string     `json:"email"`
		FirstName string     `json:"first_name"`
		LastName  string     `json:"last_name"`
		IsActive  bool       `json:"is_active"`
		LastLogin *time.Time `json:"last_login,omitempty"`
		Scopes    []string   `json:"scopes"`
	}
)

func Cmd() *cli.Command {
	var store *userstore.Store
	var database string
	return &cli.Command{
		Name:  "users",
		Usage: "Manage users stored in the database",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			store, err = userstore.Open(ctx.Context, database, true)
			return err
		},
		After: func(ctx *cli.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
		Subcommands: []*cli.Command{
			createCmd(&store),
			passwdCmd(&store),
			grantCmd(&store),
			revokeCmd(&store),
			activeCmd(&store, "activate", true),
			activeCmd(&store, "deactivate", false),
			showCmd(&store),
		},
	}
}

func emailFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "email",
		Aliases:     []string{"e"},
		Usage:       "Email of the user",
		Destination: out,
		Required:    true,
	}
}

func scopeFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "scope",
		Aliases:     []string{"s"},
		Usage:       "Scope code",
		Destination: out,
		Required:    true,
	}
}

// readPassword reads a single line from in.
func readPassword(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if sc.Err() != nil {
			return "", sc.Err()
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimSpace(sc.Text())
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}

func createCmd(store **userstore.Store) *cli.Command {
	var email, firstName, lastName string
	var inactive bool
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new user (password is read from stdin)",
		Flags: []cli.Flag{
			emailFlag(&email),
			&cli.StringFlag{
				Name:        "first-name",
				Destination: &firstName,
			},
			&cli.StringFlag{
				Name:        "last-name",
				Destination: &lastName,
			},
			&cli.BoolFlag{
				Name:        "inactive",
				Usage:       "Create the user disabled",
				Destination: &inactive,
			},
		},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			hash, err := secret.HashPassword(password)
			if err != nil {
				return err
			}
			u, err := (*store).Create(ctx.Context, userstore.NewUser{
				Email:        email,
				PasswordHash: hash,
				FirstName:    firstName,
				LastName:     lastName,
				IsActive:     !inactive,
			})
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int64("user.id", u.ID).Str("user.email", u.Email).Msg("User created")
			return nil
		},
	}
}

func passwdCmd(store **userstore.Store) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "passwd",
		Usage: "Replace the password of a user (password is read from stdin)",
		Flags: []cli.Flag{
			emailFlag(&email),
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			password, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			hash, err := secret.HashPassword(password)
			if err != nil {
				return err
			}
			return (*store).Update(ctx.Context, u.ID, identity.Changes{PasswordHash: &hash})
		},
	}
}

func grantCmd(store **userstore.Store) *cli.Command {
	var email, scope string
	return &cli.Command{
		Name:  "grant",
		Usage: "Give a scope to a user",
		Flags: []cli.Flag{
			emailFlag(&email),
			scopeFlag(&scope),
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			return (*store).Grant(ctx.Context, u.ID, scope)
		},
	}
}

func revokeCmd(store **userstore.Store) *cli.Command {
	var email, scope string
	return &cli.Command{
		Name:  "revoke",
		Usage: "Take a scope away from a user",
		Flags: []cli.Flag{
			emailFlag(&email),
			scopeFlag(&scope),
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			return (*store).Revoke(ctx.Context, u.ID, scope)
		},
	}
}

func activeCmd(store **userstore.Store, name string, active bool) *cli.Command {
	var email string
	usage := "Allow a user to log in again"
	if !active {
		usage = "Prevent a user from logging in; existing sessions stop resolving"
	}
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			emailFlag(&email),
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			return (*store).Update(ctx.Context, u.ID, identity.Changes{IsActive: &active})
		},
	}
}

func showCmd(store **userstore.Store) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "show",
		Usage: "Print a user and its scopes as JSON",
		Flags: []cli.Flag{
			emailFlag(&email),
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			codes, err := (*store).Scopes(ctx.Context, u.ID)
			if err != nil {
				return err
			}
			view := userView{
				ID:        u.ID,
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				IsActive:  u.IsActive,
				Scopes:    codes,
			}
			if !u.LastLogin.IsZero() {
				view.LastLogin = &u.LastLogin
			}
			enc := json.NewEncoder(ctx.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
