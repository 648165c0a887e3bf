package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Validate the schema document",
		Flags:  []cli.Flag{schemaFlag()},
		Action: runCheck,
	}
}

func runCheck(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	doc, reg, err := loadSchema(cmd, cfg)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer

	_, _ = fmt.Fprintf(w, "schema OK: %d labels, %d validators\n", len(doc.Labels()), reg.Len())
	_, _ = fmt.Fprintf(w, "  labels:             %s\n", list(doc.Labels()))
	_, _ = fmt.Fprintf(w, "  property wildcards: %s\n", list(doc.PropertyWildcards()))
	_, _ = fmt.Fprintf(w, "  relation wildcards: %s\n", list(doc.RelationWildcards()))

	return nil
}

func list(values []string) string {
	if len(values) == 0 {
		return "-"
	}

	return strings.Join(values, ", ")
}
