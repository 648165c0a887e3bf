// Command schemagate validates graph writes against a schema document.
//
// Usage:
//
//	schemagate check                        # validate the schema document
//	schemagate apply --dry-run batches/     # validate batch files in memory
//	schemagate apply batches/               # validate and write to Neo4j
//	schemagate skeleton > schema.json       # schema skeleton from Neo4j
//	schemagate serve --addr :8080           # HTTP API
//
// Settings are read from the nearest .schemagate.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "schemagate",
		Usage: "Schema enforcement for property graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to .schemagate.yaml (default: nearest one walking up from the working directory)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			applyCommand(),
			skeletonCommand(),
			serveCommand(),
		},
	}
}

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err == nil {
		return
	}

	if !errors.Is(err, ErrRejected) {
		fmt.Fprintf(os.Stderr, "schemagate: %v\n", err)
	}

	os.Exit(1)
}
