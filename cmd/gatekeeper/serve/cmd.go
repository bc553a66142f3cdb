package serve

import (
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/andrebq/gatekeeper/internal/authproxy"
	"github.com/andrebq/gatekeeper/internal/cmdflags"
	"github.com/andrebq/gatekeeper/internal/httpserver"
	"github.com/andrebq/gatekeeper/internal/logutil"
	"github.com/andrebq/gatekeeper/resettoken"
	"github.com/andrebq/gatekeeper/secret"
	"github.com/andrebq/gatekeeper/session"
	"github.com/andrebq/gatekeeper/userstore"
	"github.com/andrebq/gatekeeper/web"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7020"
	baseURL := ""
	var database string
	var secretEnvVar string
	var resetMaxAge time.Duration
	sessionTTL := 24 * time.Hour
	hashWorkers := 0
	insecureCookie := false
	upstream := ""
	var requiredScopes cli.StringSlice
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP endpoints (login, logout, password change and reset)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the HTTP server",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			&cli.StringFlag{
				Name:        "base-url",
				Usage:       "Public URL used to build password reset links (defaults to http://<bind>)",
				Destination: &baseURL,
			},
			cmdflags.Database(&database),
			cmdflags.SecretEnvVar(&secretEnvVar),
			cmdflags.ResetMaxAge(&resetMaxAge),
			&cli.DurationFlag{
				Name:        "session-ttl",
				Usage:       "How long a session is kept in memory, counted from login or the last time it was saved (reads do not extend it)",
				Value:       sessionTTL,
				Destination: &sessionTTL,
			},
			&cli.IntFlag{
				Name:        "hash-workers",
				Usage:       "Maximum number of concurrent password derivations (0 picks half the CPUs)",
				Value:       hashWorkers,
				Destination: &hashWorkers,
			},
			&cli.StringFlag{
				Name:        "upstream",
				Usage:       "URL of a service to proxy authenticated requests to (leave empty to serve only /auth/)",
				Destination: &upstream,
			},
			&cli.StringSliceFlag{
				Name:        "require-scope",
				Usage:       "Scope every request forwarded to the upstream must hold (repeatable)",
				Destination: &requiredScopes,
			},
			&cli.BoolFlag{
				Name:        "insecure-cookie",
				Usage:       "Send the session cookie over plain HTTP (development only)",
				Destination: &insecureCookie,
			},
		},
		Action: func(ctx *cli.Context) error {
			signingSecret, err := secret.FromEnv(secretEnvVar, os.Getenv, os.Setenv)
			if err != nil {
				return err
			}
			tokens, err := resettoken.New(signingSecret, resettoken.WithMaxAge(resetMaxAge))
			if err != nil {
				return err
			}
			store, err := userstore.Open(ctx.Context, database, true)
			if err != nil {
				return err
			}
			defer store.Close()
			sessions, err := session.InMemoryStore(sessionTTL)
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = "http://" + bindAddr
			}
			realm, err := web.NewRealm(web.Options{
				Users:          store,
				Scopes:         store,
				Sessions:       sessions,
				Passwords:      secret.NewPool(nil, hashWorkers),
				Tokens:         tokens,
				Mailer:         web.LogMailer{BaseURL: baseURL},
				InsecureCookie: insecureCookie,
			})
			if err != nil {
				return err
			}
			var handler http.Handler = realm.Handler()
			if upstream != "" {
				target, err := url.Parse(upstream)
				if err != nil {
					return err
				}
				handler = authproxy.AsHandler(realm, target, requiredScopes.Value()...)
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().
				Dur("reset.max_age", tokens.MaxAge()).
				Dur("session.ttl", sessionTTL).
				Bool("proxy.enabled", upstream != "").
				Msg("Realm configured")
			return httpserver.Serve(ctx.Context, bindAddr, handler)
		},
	}
}
