//
// Blog CMS
// ========
// A multi-user blog: a JSON API under /api, server-rendered pages for the
// dashboard, and Prometheus metrics on a separate diag port.
//
// Boot the server:
// ----------------
// $ AUTH_SECRET=... STORE_BACKEND=memory go run . serve
//
// Print the route docs:
// ---------------------
// $ go run . routes
//
// Client requests:
// ----------------
// $ curl -c jar -X POST -d '{"name":"Ann","email":"ann@ex.com","password":"secret1"}' \
//     http://localhost:3333/api/auth/sign-up/email
//
// $ curl -b jar -X POST -d '{"title":"Hello","content":"Long enough content"}' \
//     http://localhost:3333/api/articles
//
// $ curl -b jar http://localhost:3333/api/articles?page=1&limit=5
//
// $ curl http://localhost:9999/metrics
//
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const ServiceName = "blogcms"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  ServiceName,
		Usage: "multi-user blog CMS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file loaded before the configuration is read",
				Value:   ".env",
				EnvVars: []string{"BLOGCMS_ENV_FILE"},
			},
		},
		Before: func(c *cli.Context) error {
			return loadEnv(c.String("env-file"), c.IsSet("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and the diag server",
				Action: serve,
			},
			{
				Name:  "routes",
				Usage: "print the router documentation",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print JSON instead of markdown"},
				},
				Action: routes,
			},
			{
				Name:   "indexes",
				Usage:  "create the MongoDB indexes and exit",
				Action: indexes,
			},
		},
	}
}

// loadEnv reads path into the environment without overriding variables
// already set. A missing file is only an error when it was asked for.
func loadEnv(path string, required bool) error {
	err := godotenv.Load(path)
	if err == nil || (!required && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}
