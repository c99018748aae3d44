// Command tickd hosts a tick engine as a standalone process.
//
// Usage:
//
//	tickd run --config tickd.yaml --journal tick.db
//	tickd config --config tickd.yaml
//	tickd audit --journal tick.db --limit 20
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"
)

const version = "0.1.0"

var (
	configFlag = cli.StringFlag{
		Name:   "config, c",
		Usage:  "settings file (YAML or JSON)",
		EnvVar: "TICKENGINE_CONFIG",
	}
	journalFlag = cli.StringFlag{
		Name:   "journal, j",
		Value:  "tickd.db",
		Usage:  "journal locations, comma separated: a .db file for SQLite, otherwise a directory of JSON lines files",
		EnvVar: "TICKENGINE_JOURNAL",
	}
)

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "tickd"
	app.Usage = "adaptive tick engine host"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the engine until interrupted",
			Action: runEngine,
			Flags: []cli.Flag{
				configFlag,
				journalFlag,
				cli.StringFlag{
					Name:   "otel-endpoint",
					Usage:  "OTLP/HTTP trace endpoint; empty disables tracing",
					EnvVar: "TICKENGINE_OTEL_ENDPOINT",
				},
				cli.StringFlag{
					Name:  "log-level",
					Value: "info",
					Usage: "debug, info, warn or error",
				},
				cli.StringFlag{
					Name:  "log-format",
					Value: "text",
					Usage: "text or json",
				},
				cli.IntFlag{
					Name:  "heartbeat",
					Value: 10,
					Usage: "log a heartbeat every N ticks; 0 disables it",
				},
			},
		},
		{
			Name:   "config",
			Usage:  "print the effective settings as YAML",
			Action: printConfig,
			Flags:  []cli.Flag{configFlag},
		},
		{
			Name:   "audit",
			Usage:  "print the most recent audit records",
			Action: printAudit,
			Flags: []cli.Flag{
				journalFlag,
				cli.IntFlag{
					Name:  "limit, n",
					Value: 20,
					Usage: "number of records; 0 prints all",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "print one JSON object per record",
				},
			},
		},
	}
	return app
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tickd: %s\n", err)
		os.Exit(1)
	}
}
