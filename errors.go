package jsre

import (
	"errors"
	"strconv"
)

var (
	// ErrPatternTooComplex is reported when a match exceeds its backtracking
	// budget, or (wrapped in a SyntaxError) when a program cannot be encoded
	// within the jump displacement range.
	ErrPatternTooComplex = errors.New("pattern too complex")

	// ErrOutOfMemory is reported when the backtrack stack grows past
	// Config.MaxBacktrackDepth records or Config.MaxBacktrackMemory bytes.
	ErrOutOfMemory = errors.New("out of memory")
)

// SyntaxError describes a pattern or flag string that cannot be compiled.
type SyntaxError struct {
	// Msg is a human readable description.
	Msg string
	// Offset is the code unit index in the pattern where the error was found.
	Offset int
	// Err is an optional underlying sentinel such as ErrPatternTooComplex.
	Err error
}

func (e SyntaxError) Error() string {
	return "invalid regular expression: " + e.Msg + " at offset " + strconv.Itoa(e.Offset)
}

func (e SyntaxError) Unwrap() error {
	return e.Err
}

var _ error = (*SyntaxError)(nil)

func newSyntaxError(msg string, offset int) SyntaxError {
	return SyntaxError{Msg: msg, Offset: offset}
}

// ConfigError reports an out of range Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "jsre: invalid config " + e.Field + ": " + e.Message
}
