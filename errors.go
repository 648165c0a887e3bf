package schemagate

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .schemagate.yaml is found.
	ErrConfigNotFound = errors.New("schemagate: no .schemagate.yaml found")

	// ErrInvalidConfig is returned when the config file cannot be decoded.
	ErrInvalidConfig = errors.New("schemagate: invalid config")

	// ErrInvalidValidator is returned when a configured validator is malformed.
	ErrInvalidValidator = errors.New("schemagate: invalid validator config")
)
