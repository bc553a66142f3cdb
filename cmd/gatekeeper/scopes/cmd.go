package scopes

import (
	"github.com/andrebq/gatekeeper/internal/cmdflags"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var database string
	var code, description string
	return &cli.Command{
		Name:  "scopes",
		Usage: "Manage the scopes users can be granted",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
		},
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new scope",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "code",
						Aliases:     []string{"c"},
						Usage:       "Unique code of the scope, as checked by protected handlers",
						Destination: &code,
						Required:    true,
					},
					&cli.StringFlag{
						Name:        "description",
						Destination: &description,
					},
				},
				Action: func(ctx *cli.Context) error {
					store, err := userstore.Open(ctx.Context, database, true)
					if err != nil {
						return err
					}
					defer store.Close()
					id, err := store.CreateScope(ctx.Context, code, description)
					if err != nil {
						return err
					}
					log := logutil.GetOrDefault(ctx.Context)
					log.Info().Int64("scope.id", id).Str("scope.code", code).Msg("Scope created")
					return nil
				},
			},
		},
	}
}
