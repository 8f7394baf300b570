package cli

import (
	"errors"
	"fmt"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
	"github.com/avivsinai/a2a-mailbox/internal/poll"
	"github.com/avivsinai/a2a-mailbox/internal/registry"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0

	// ExitError indicates a general error occurred.
	ExitError = 1

	// ExitUsage indicates invalid arguments: a bad agent name, an
	// out-of-range number, or a path that is not an acceptable message.
	ExitUsage = 2

	// ExitNotFound indicates an unknown agent, inbox or message.
	ExitNotFound = 3

	// ExitTimeout indicates poll ran out of attempts without a message.
	ExitTimeout = 4
)

// ExitCodeError wraps an error with a specific exit code.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error. An explicit
// *ExitCodeError wins; otherwise known sentinels are mapped and anything
// else is ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, fsq.ErrInvalidName),
		errors.Is(err, poll.ErrInvalidArgument),
		errors.Is(err, mailbox.ErrInvalidKind),
		errors.Is(err, mailbox.ErrPathEscape),
		errors.Is(err, mailbox.ErrRecipientUnknown):
		return ExitUsage
	case errors.Is(err, registry.ErrNotRegistered),
		errors.Is(err, mailbox.ErrInboxNotFound),
		errors.Is(err, mailbox.ErrNotFound):
		return ExitNotFound
	}
	return ExitError
}

// WithExitCode wraps an error with a specific exit code.
func WithExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitCodeError{Code: code, Err: err}
}

// UsageError creates an error with ExitUsage code.
func UsageError(format string, args ...any) error {
	return &ExitCodeError{
		Code: ExitUsage,
		Err:  fmt.Errorf(format, args...),
	}
}

// TimeoutError creates an error with ExitTimeout code.
func TimeoutError(format string, args ...any) error {
	return &ExitCodeError{
		Code: ExitTimeout,
		Err:  fmt.Errorf(format, args...),
	}
}
