package cmdflags

import (
	"time"

	"github.com/andrebq/gatekeeper/resettoken"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/urfave/cli/v2"
)

func Database(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "gatekeeper.db"
	}
	return &cli.StringFlag{
		Name:        "database",
		Aliases:     []string{"db", "d"},
		Usage:       "Path to the SQLite database holding users and scopes",
		EnvVars:     []string{"GATEKEEPER_DATABASE"},
		Destination: out,
		Value:       *out,
	}
}

func SecretEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = secret.SecretEnvVar
	}
	return &cli.StringFlag{
		Name:        "secret-envvar-name",
		Usage:       "Name of the environment variable that holds the signing secret. The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}

func ResetMaxAge(out *time.Duration) cli.Flag {
	if *out == 0 {
		*out = resettoken.DefaultMaxAge
	}
	return &cli.DurationFlag{
		Name:        "reset-max-age",
		Usage:       "How long password reset tokens remain valid",
		Value:       *out,
		Destination: out,
	}
}
