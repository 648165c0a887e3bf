package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/schemagate"
	"github.com/rlch/schemagate/batch"
	"github.com/rlch/schemagate/engine"
	"github.com/rlch/schemagate/report"
	"github.com/rlch/schemagate/store/memory"
	"github.com/rlch/schemagate/store/neo4j"
)

// batchSuffixes mark batch files found by walking a directory. Files named
// on the command line are read whatever their name.
var batchSuffixes = []string{".batch.yaml", ".batch.yml", ".batch.json"}

func applyCommand() *cli.Command {
	flags := []cli.Flag{
		schemaFlag(),
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "validate against an in-memory store instead of Neo4j",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format (dots, verbose, json)",
			Value:   schemagate.FormatDots,
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "entities evaluated concurrently (overrides config)",
		},
	}

	return &cli.Command{
		Name:      "apply",
		Usage:     "Validate batch files and write the entities that pass",
		ArgsUsage: "[files or directories...]",
		Flags:     append(flags, connectionFlags()...),
		Action:    runApply,
	}
}

// closer releases a store.
type closer func()

func openStore(ctx context.Context, cmd *cli.Command, cfg *schemagate.Config, dryRun bool) (engine.Store, closer, error) {
	if dryRun {
		st := memory.New()

		return st, func() { _ = st.Close() }, nil
	}

	neo4jCfg, err := neo4jConfig(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := neo4j.New(ctx, neo4jCfg)
	if err != nil {
		return nil, nil, err
	}

	return st, func() { _ = st.Close(context.WithoutCancel(ctx)) }, nil
}

func runApply(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := collectBatchFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoBatchFiles
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	doc, reg, err := loadSchema(cmd, cfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cmd, cfg, cmd.Bool("dry-run"))
	if err != nil {
		return err
	}
	defer closeStore()

	parallelism := cfg.Engine.Parallelism
	if cmd.IsSet("parallel") {
		parallelism = cmd.Int("parallel")
	}

	eng, err := engine.New(doc, reg, st,
		engine.WithLogger(logger),
		engine.WithParallelism(parallelism),
	)
	if err != nil {
		return err
	}

	formatter := report.NewFormatter(cmd.String("format"), cmd.Root().Writer)
	result := report.NewResult()

	for _, file := range files {
		b, err := batch.Load(file)
		if err != nil {
			return err
		}

		logger.Debug("applying batch", zap.String("file", file), zap.Int("entities", len(b.Entities)))

		for i, out := range eng.Apply(ctx, b.Entities...) {
			entry := report.Entry{
				Source:  file,
				Index:   i,
				Name:    b.Names[i],
				Kind:    b.Entities[i].Kind(),
				Outcome: out,
			}

			result.Add(entry)

			if err := formatter.Format(entry); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
		}
	}

	result.Finish()

	if err := formatter.Summary(result); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if !result.Ok() {
		return ErrRejected
	}

	return nil
}

func isBatchFile(path string) bool {
	for _, suffix := range batchSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}

	return false
}

func collectBatchFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)

			continue
		}

		found, err := findBatchFiles(arg)
		if err != nil {
			return nil, err
		}

		files = append(files, found...)
	}

	return files, nil
}

// findBatchFiles returns the batch files under root in sorted order, skipping
// paths ignored by .gitignore. The first walk error stops the walk.
func findBatchFiles(root string) ([]string, error) {
	queue := make(chan *gocodewalker.File, 100)

	walker := gocodewalker.NewFileWalker(root, queue)
	walker.AllowListExtensions = []string{"yaml", "yml", "json"}

	walker.SetErrorHandler(func(error) bool { return false })

	found := make(chan []string, 1)

	go func() {
		var paths []string

		for f := range queue {
			if isBatchFile(f.Filename) {
				paths = append(paths, f.Location)
			}
		}

		sort.Strings(paths)
		found <- paths
	}()

	err := walker.Start()
	paths := <-found

	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return paths, nil
}
