package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/andrebq/gatekeeper/cmd/gatekeeper/scopes"
	"github.com/andrebq/gatekeeper/cmd/gatekeeper/serve"
	"github.com/andrebq/gatekeeper/cmd/gatekeeper/tokens"
	"github.com/andrebq/gatekeeper/cmd/gatekeeper/users"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	logLevel := "info"
	prettyLog := false
	app := &cli.App{
		Name:  "gatekeeper",
		Usage: "Session based authentication for your users",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Minimum level of log messages (trace, debug, info, warn, error)",
				EnvVars:     []string{"GATEKEEPER_LOG_LEVEL"},
				Value:       logLevel,
				Destination: &logLevel,
			},
			&cli.BoolFlag{
				Name:        "pretty-log",
				Usage:       "Write human friendly logs instead of JSON",
				Destination: &prettyLog,
			},
		},
		Before: func(ctx *cli.Context) error {
			logger, err := logutil.New(os.Stderr, logLevel, prettyLog)
			if err != nil {
				return err
			}
			log.Logger = logger
			ctx.Context = logutil.WithLogger(ctx.Context, logger)
			return nil
		},
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			scopes.Cmd(),
			tokens.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
