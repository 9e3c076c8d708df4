package cli

import (
	"errors"
	"fmt"
)

// Exit codes reported by the atrium binary. Configuration problems get
// their own code so scripts can tell a bad config file from a runtime
// failure.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError is a configuration problem surfaced by a command: a file
// that does not load, a field that does not validate.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

// ExitCode maps configuration errors to ExitConfig.
func (e *ConfigError) ExitCode() int { return ExitConfig }

// NewConfigError creates a ConfigError for the given field. An empty
// field marks a whole-file problem.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// CommandError wraps a failure from one of the atrium subcommands with
// the command's name.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("atrium %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode maps command failures to ExitFailure.
func (e *CommandError) ExitCode() int { return ExitFailure }

// NewCommandError wraps err as a failure of the named command.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode returns the process exit code for err: ExitOK for nil, the
// error's own code when it carries one, ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}
