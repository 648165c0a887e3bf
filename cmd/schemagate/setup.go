package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/schemagate"
	"github.com/rlch/schemagate/schema"
	"github.com/rlch/schemagate/validator"
)

// Command errors.
var (
	ErrNoSchema        = errors.New("no schema specified (use --schema or schema in .schemagate.yaml)")
	ErrNoConnectionURI = errors.New("no connection URI specified (use --uri or neo4j.uri in .schemagate.yaml)")
	ErrNoBatchFiles    = errors.New("no batch files found")
	ErrRejected        = errors.New("one or more entities were rejected")
)

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if cmd.Bool("debug") {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// loadConfig loads --config, or the nearest config file. A missing config
// is not an error; every setting has a flag.
func loadConfig(cmd *cli.Command) (*schemagate.Config, error) {
	if path := cmd.String("config"); path != "" {
		return schemagate.LoadConfigFile(path)
	}

	cfg, err := schemagate.LoadConfig(".")
	if errors.Is(err, schemagate.ErrConfigNotFound) {
		return &schemagate.Config{}, nil
	}

	return cfg, err
}

func schemaFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "schema",
		Aliases: []string{"s"},
		Usage:   "path to the schema document (overrides config)",
	}
}

// loadSchema builds the validator registry from config and loads the schema.
func loadSchema(cmd *cli.Command, cfg *schemagate.Config) (*schema.Document, *validator.Set, error) {
	path := firstNonEmpty(cmd.String("schema"), cfg.SchemaPath())
	if path == "" {
		return nil, nil, ErrNoSchema
	}

	reg, err := validator.FromConfig(cfg.Validators)
	if err != nil {
		return nil, nil, err
	}

	doc, err := schema.Load(path, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return doc, reg, nil
}

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "Neo4j connection URI",
			Sources: cli.EnvVars("SCHEMAGATE_URI"),
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "Neo4j username",
			Sources: cli.EnvVars("SCHEMAGATE_USER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Neo4j password",
			Sources: cli.EnvVars("SCHEMAGATE_PASS"),
		},
		&cli.StringFlag{
			Name:  "database",
			Usage: "Neo4j database name",
		},
	}
}

// neo4jConfig merges connection flags over the config file.
func neo4jConfig(cmd *cli.Command, cfg *schemagate.Config) (*schemagate.Neo4jConfig, error) {
	out := &schemagate.Neo4jConfig{}
	if cfg.Neo4j != nil {
		*out = *cfg.Neo4j
	}

	out.URI = firstNonEmpty(cmd.String("uri"), out.URI)
	out.Username = firstNonEmpty(cmd.String("username"), out.Username)
	out.Password = firstNonEmpty(cmd.String("password"), out.Password)
	out.Database = firstNonEmpty(cmd.String("database"), out.Database)

	if out.URI == "" {
		return nil, ErrNoConnectionURI
	}

	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
