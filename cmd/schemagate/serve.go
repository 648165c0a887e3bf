package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/schemagate"
	"github.com/rlch/schemagate/engine"
	"github.com/rlch/schemagate/server"
)

func serveCommand() *cli.Command {
	flags := []cli.Flag{
		schemaFlag(),
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "write to an in-memory store instead of Neo4j",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "entities evaluated concurrently per request (overrides config)",
		},
	}

	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the apply API over HTTP",
		Flags:  append(flags, connectionFlags()...),
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	parallelism := cfg.Engine.Parallelism
	if cmd.IsSet("parallel") {
		parallelism = cmd.Int("parallel")
	}

	eng, err := engine.New(doc, reg, st,
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(registry)),
		engine.WithParallelism(parallelism),
	)
	if err != nil {
		return err
	}

	addr := firstNonEmpty(cmd.String("addr"), cfg.Serve.Addr, schemagate.DefaultServeAddr)

	logger.Info("starting server",
		zap.String("addr", addr),
		zap.Int("labels", len(doc.Labels())),
		zap.Bool("dry-run", cmd.Bool("dry-run")),
	)

	srv := server.New(eng,
		server.WithLogger(logger),
		server.WithGatherer(registry),
	)

	return srv.ListenAndServe(ctx, addr)
}
