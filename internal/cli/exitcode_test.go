package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
	"github.com/avivsinai/a2a-mailbox/internal/poll"
	"github.com/avivsinai/a2a-mailbox/internal/registry"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},
		{"plain error", errors.New("oops"), ExitError},
		{"usage error", UsageError("bad flag"), ExitUsage},
		{"timeout error", TimeoutError("no message"), ExitTimeout},
		{"wrapped exit code", WithExitCode(ExitNotFound, errors.New("custom")), ExitNotFound},
		{"exit code behind wrap", fmt.Errorf("ctx: %w", TimeoutError("x")), ExitTimeout},
		{"invalid name", fmt.Errorf("x: %w", fsq.ErrInvalidName), ExitUsage},
		{"invalid argument", poll.ErrInvalidArgument, ExitUsage},
		{"path escape", &mailbox.PathError{Path: "/etc", Err: mailbox.ErrPathEscape}, ExitUsage},
		{"invalid kind", mailbox.ErrInvalidKind, ExitUsage},
		{"not registered", registry.ErrNoRegistry, ExitNotFound},
		{"inbox not found", &mailbox.PathError{Path: "/a2a/x", Err: mailbox.ErrInboxNotFound}, ExitNotFound},
		{"message not found", mailbox.ErrNotFound, ExitNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetExitCode(tt.err)
			if got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestExitCodeErrorUnwrap(t *testing.T) {
	underlying := errors.New("underlying")
	wrapped := WithExitCode(ExitNotFound, underlying)

	if !errors.Is(wrapped, underlying) {
		t.Error("wrapped error should be unwrappable to underlying")
	}

	exitErr := wrapped.(*ExitCodeError)
	if exitErr.Unwrap() != underlying {
		t.Error("Unwrap() should return underlying error")
	}
}

func TestExitCodeErrorMessage(t *testing.T) {
	err := UsageError("invalid flag: %s", "--foo")
	if err.Error() != "invalid flag: --foo" {
		t.Errorf("Error() = %q, want %q", err.Error(), "invalid flag: --foo")
	}

	empty := &ExitCodeError{Code: ExitError, Err: nil}
	if empty.Error() != "exit code 1" {
		t.Errorf("Error() = %q, want %q", empty.Error(), "exit code 1")
	}
}
