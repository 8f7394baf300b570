package config

import (
	"fmt"
	"strings"

	"github.com/avivsinai/a2a-mailbox/internal/logging"
	"github.com/avivsinai/a2a-mailbox/internal/poll"
)

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

func (e ValidationError) Unwrap() error {
	return poll.ErrInvalidArgument
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for _, err := range e {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, err := range e {
		out[i] = err
	}
	return out
}

// Validate returns nil when every setting is usable.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, ValidationError{Field: "root", Value: c.Root, Message: "must not be empty"})
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Value: c.Log.Level, Message: "must be one of debug, info, warn, error"})
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, ValidationError{Field: "log.format", Value: c.Log.Format, Message: "must be console or json"})
	}
	if c.Poll.MaxIterations < 1 {
		errs = append(errs, ValidationError{Field: "poll.max_iterations", Value: c.Poll.MaxIterations, Message: "must be at least 1"})
	}
	if c.Poll.Delay < 0 {
		errs = append(errs, ValidationError{Field: "poll.delay", Value: c.Poll.Delay, Message: "must be non-negative"})
	}
	return errs
}
