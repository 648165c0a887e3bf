package schemagate

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .schemagate.yaml configuration file.
type Config struct {
	// Schema is the path to the schema document. Relative paths are
	// resolved against the directory holding the config file.
	Schema string `yaml:"schema"`

	// Neo4j holds the connection for the persistence store.
	Neo4j *Neo4jConfig `yaml:"neo4j,omitempty"`

	// Validators declares named validators in addition to the built-ins.
	Validators map[string]ValidatorConfig `yaml:"validators,omitempty"`

	Engine EngineConfig `yaml:"engine,omitempty"`
	Serve  ServeConfig  `yaml:"serve,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// Neo4jConfig holds Neo4j connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// ValidatorConfig declares a single named validator. Exactly one of the
// fields must be set.
type ValidatorConfig struct {
	// Enum accepts only the listed string values.
	Enum []string `yaml:"enum,omitempty"`

	// Expr is an expr-lang boolean expression evaluated with the property
	// value bound to `value`.
	Expr string `yaml:"expr,omitempty"`

	// Pattern is a regular expression the string form of the value must match.
	Pattern string `yaml:"pattern,omitempty"`

	// Message overrides the failure message for Expr and Pattern validators.
	Message string `yaml:"message,omitempty"`
}

// Kind reports which validator kind is configured.
func (v ValidatorConfig) Kind() (string, error) {
	var kinds []string
	if len(v.Enum) > 0 {
		kinds = append(kinds, ValidatorKindEnum)
	}

	if v.Expr != "" {
		kinds = append(kinds, ValidatorKindExpr)
	}

	if v.Pattern != "" {
		kinds = append(kinds, ValidatorKindPattern)
	}

	if len(kinds) != 1 {
		return "", fmt.Errorf("%w: expected exactly one of enum, expr, pattern, got %d", ErrInvalidValidator, len(kinds))
	}

	return kinds[0], nil
}

// EngineConfig tunes the schema engine.
type EngineConfig struct {
	// Parallelism is the number of batch entities evaluated concurrently.
	// Zero or one means sequential.
	Parallelism int `yaml:"parallelism,omitempty"`
}

// ServeConfig holds the HTTP server settings.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// SchemaPath returns the schema path resolved against the config directory.
func (c *Config) SchemaPath() string {
	if c.Schema == "" || filepath.IsAbs(c.Schema) || c.dir == "" {
		return c.Schema
	}

	return filepath.Join(c.dir, c.Schema)
}

// Dir returns the directory the config file was found in.
func (c *Config) Dir() string {
	return c.dir
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".schemagate.yaml", ".schemagate.yml", "schemagate.yaml", "schemagate.yml"}

// LoadConfig finds and loads the nearest .schemagate.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cfg.dir = filepath.Dir(absPath)

	return &cfg, nil
}
