package jsre

import (
	"io"

	"gopkg.in/yaml.v2"
)

const (
	// Size of one emitter stack entry the nesting budget is expressed in.
	emitFrameBudgetUnit = 32

	// Nesting budget: the emitter stack may take at most 2^24 bytes.
	defaultMaxTreeDepth = (1 << 24) / emitFrameBudgetUnit

	defaultBacktrackFloor    = 1 << 20
	defaultMaxBacktrackDepth = 1 << 22

	defaultMaxBacktrackMemory = 256 << 20
	minBacktrackMemory        = 64 << 10
)

// Config controls the structural limits of compilation and matching.
//
// Example:
//
//	config := jsre.DefaultConfig()
//	config.BacktrackFloor = 1000
//	re, err := jsre.CompileConfig(pattern, 0, config)
type Config struct {
	// MaxTreeDepth caps the nesting depth of groups, alternations and
	// quantifiers in a pattern.
	// Default: 524288
	MaxTreeDepth int `yaml:"max_tree_depth"`

	// BacktrackFloor is the minimum number of backtracks allowed per match
	// call. The effective budget is max(BacktrackFloor, n^3) where n is the
	// length of the input.
	// Default: 1048576
	BacktrackFloor int `yaml:"backtrack_floor"`

	// MaxBacktrackDepth caps the number of live backtrack records.
	// Default: 4194304
	MaxBacktrackDepth int `yaml:"max_backtrack_depth"`

	// MaxBacktrackMemory caps the bytes held by live backtrack records and
	// the engine state they save.
	// Default: 268435456
	MaxBacktrackMemory int `yaml:"max_backtrack_memory"`

	// EnablePrefilter enables the Aho-Corasick prefilter for alternations
	// of literals.
	// Default: true
	EnablePrefilter bool `yaml:"enable_prefilter"`

	// Log receives compilation diagnostics. Nil disables logging.
	Log *Logger `yaml:"-"`
}

// DefaultConfig returns a configuration with the default limits.
func DefaultConfig() Config {
	return Config{
		MaxTreeDepth:       defaultMaxTreeDepth,
		BacktrackFloor:     defaultBacktrackFloor,
		MaxBacktrackDepth:  defaultMaxBacktrackDepth,
		MaxBacktrackMemory: defaultMaxBacktrackMemory,
		EnablePrefilter:    true,
	}
}

// Validate checks if the configuration is valid.
//
// Valid ranges:
//   - MaxTreeDepth: 1 to 524288
//   - BacktrackFloor: at least 1
//   - MaxBacktrackDepth: at least 16
//   - MaxBacktrackMemory: at least 65536
func (c Config) Validate() error {
	if c.MaxTreeDepth < 1 || c.MaxTreeDepth > defaultMaxTreeDepth {
		return &ConfigError{
			Field:   "MaxTreeDepth",
			Message: "must be between 1 and 524288",
		}
	}
	if c.BacktrackFloor < 1 {
		return &ConfigError{
			Field:   "BacktrackFloor",
			Message: "must be positive",
		}
	}
	if c.MaxBacktrackDepth < 16 {
		return &ConfigError{
			Field:   "MaxBacktrackDepth",
			Message: "must be at least 16",
		}
	}
	if c.MaxBacktrackMemory < minBacktrackMemory {
		return &ConfigError{
			Field:   "MaxBacktrackMemory",
			Message: "must be at least 65536",
		}
	}
	return nil
}

// LoadConfig decodes a YAML document on top of DefaultConfig and validates
// the result. Fields missing from the document keep their defaults.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
