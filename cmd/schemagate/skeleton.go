package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rlch/schemagate"
	"github.com/rlch/schemagate/schema"
	"github.com/rlch/schemagate/store/neo4j"
)

func skeletonCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "describe-label",
			Usage: "label of the nodes that describe the domain",
			Value: schemagate.DefaultDescribeLabel,
		},
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "write YAML instead of JSON",
		},
	}

	return &cli.Command{
		Name:   "skeleton",
		Usage:  "Generate a schema skeleton from describe nodes in Neo4j",
		Flags:  append(flags, connectionFlags()...),
		Action: runSkeleton,
	}
}

func runSkeleton(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	neo4jCfg, err := neo4jConfig(cmd, cfg)
	if err != nil {
		return err
	}

	st, err := neo4j.New(ctx, neo4jCfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(context.WithoutCancel(ctx)) }()

	specs, err := st.Skeleton(ctx, cmd.String("describe-label"))
	if err != nil {
		return fmt.Errorf("extracting skeleton: %w", err)
	}

	w := cmd.Root().Writer
	if cmd.Bool("yaml") {
		err = schema.WriteYAML(w, specs)
	} else {
		err = schema.WriteJSON(w, specs)
	}

	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Root().ErrWriter, "Skeleton extracted: %d labels\n", len(specs))

	return nil
}
