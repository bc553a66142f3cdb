package tokens

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andrebq/gatekeeper/internal/cmdflags"
	"github.com/andrebq/gatekeeper/resettoken"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/andrebq/gatekeeper/web"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var store *userstore.Store
	var gen *resettoken.Generator
	var database string
	var secretEnvVar string
	var resetMaxAge time.Duration
	return &cli.Command{
		Name:  "tokens",
		Usage: "Issue and check password reset tokens without going through HTTP",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
			cmdflags.SecretEnvVar(&secretEnvVar),
			cmdflags.ResetMaxAge(&resetMaxAge),
		},
		Before: func(ctx *cli.Context) error {
			signingSecret, err := secret.FromEnv(secretEnvVar, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			gen, err = resettoken.New(signingSecret, resettoken.WithMaxAge(resetMaxAge))
			if err != nil {
				return err
			}
			store, err = userstore.Open(ctx.Context, database, false)
			return err
		},
		After: func(ctx *cli.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
		Subcommands: []*cli.Command{
			issueCmd(&store, &gen),
			checkCmd(&store, &gen),
		},
	}
}

func issueCmd(store **userstore.Store, gen **resettoken.Generator) *cli.Command {
	var email, baseURL string
	return &cli.Command{
		Name:  "issue",
		Usage: "Print a password reset link for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "base-url",
				Value:       "http://localhost:7020",
				Destination: &baseURL,
			},
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			if !u.IsActive {
				return fmt.Errorf("user %v is not active", u.Email)
			}
			reset := web.PasswordReset{User: u, UID: web.EncodeUID(u.ID), Token: (*gen).MakeToken(u)}
			_, err = fmt.Fprintln(ctx.App.Writer, web.ResetLink(baseURL, reset))
			return err
		},
	}
}

func checkCmd(store **userstore.Store, gen **resettoken.Generator) *cli.Command {
	var email, token string
	return &cli.Command{
		Name:  "check",
		Usage: "Exit with an error unless token is a valid reset token for the user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "token",
				Aliases:     []string{"t"},
				Destination: &token,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			u, err := (*store).Lookup(ctx.Context, email)
			if err != nil {
				return err
			}
			if !(*gen).CheckToken(u, token) {
				return errors.New("token is not valid")
			}
			_, err = fmt.Fprintln(ctx.App.Writer, "valid")
			return err
		},
	}
}
