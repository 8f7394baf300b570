// Package service implements the mailbox operations as they are exposed to
// agents: each call takes plain strings, booleans and integers and returns
// human-readable text.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
	"github.com/avivsinai/a2a-mailbox/internal/metrics"
	"github.com/avivsinai/a2a-mailbox/internal/poll"
	"github.com/avivsinai/a2a-mailbox/internal/registry"
)

// Operation names as exposed to agents.
const (
	OpRegisterAgent   = "register_agent"
	OpUnregisterAgent = "unregister_agent"
	OpSendMessage     = "send_message"
	OpPollInbox       = "poll_inbox"
	OpMarkRead        = "mark_read"
	OpListAgents      = "list_agents"
	OpListInbox       = "list_inbox"
)

// Error is a failed operation. Error() is the message shown to the caller;
// Unwrap exposes the underlying sentinel for errors.Is.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Service ties the registry, mailbox and poller to one root.
type Service struct {
	reg    *registry.Registry
	mb     *mailbox.Mailbox
	poller *poll.Poller
	log    zerolog.Logger
}

// New returns a Service. log is used when the call context carries no
// logger of its own.
func New(reg *registry.Registry, mb *mailbox.Mailbox, poller *poll.Poller, log zerolog.Logger) *Service {
	return &Service{reg: reg, mb: mb, poller: poller, log: log}
}

// Root returns the mailbox root directory.
func (s *Service) Root() string {
	return s.mb.Root()
}

// RegisterAgent creates or refreshes the agent's registry record.
func (s *Service) RegisterAgent(ctx context.Context, name, description, capabilities, workingDir string) (out string, err error) {
	defer s.observe(ctx, OpRegisterAgent, time.Now(), &err, name)

	if err := s.validateName(OpRegisterAgent, name); err != nil {
		return "", err
	}
	res, err := s.reg.Register(name, description, capabilities, workingDir)
	if err != nil {
		return "", s.fail(OpRegisterAgent, err, name)
	}
	if res.Updated {
		metrics.Registrations.WithLabelValues("update").Inc()
	} else {
		metrics.Registrations.WithLabelValues("new").Inc()
	}

	if len(res.Changes) == 0 {
		return fmt.Sprintf("Registered agent '%s' at %s", name, res.Record.Started), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Updated registration for '%s' at %s\nChanged fields:", name, res.Record.Started)
	for _, c := range res.Changes {
		b.WriteString("\n  - ")
		b.WriteString(c.String())
	}
	return b.String(), nil
}

// UnregisterAgent removes the agent's record and, with deleteInbox, its
// inbox directory.
func (s *Service) UnregisterAgent(ctx context.Context, name string, deleteInbox bool) (out string, err error) {
	defer s.observe(ctx, OpUnregisterAgent, time.Now(), &err, name)

	if err := s.validateName(OpUnregisterAgent, name); err != nil {
		return "", err
	}
	res, err := s.reg.Unregister(name, deleteInbox)
	if err != nil {
		return "", s.fail(OpUnregisterAgent, err, name)
	}
	out = fmt.Sprintf("Unregistered agent '%s'", name)
	if res.InboxDeleted {
		out += " and deleted inbox directory"
	}
	return out, nil
}

// SendMessage delivers a message to the recipient's inbox.
func (s *Service) SendMessage(ctx context.Context, from, to, subject string, expectsReply bool, body string) (out string, err error) {
	defer s.observe(ctx, OpSendMessage, time.Now(), &err, from, to)

	if err := s.validateName(OpSendMessage, from); err != nil {
		return "", err
	}
	if err := s.validateName(OpSendMessage, to); err != nil {
		return "", err
	}
	d, err := s.mb.Send(from, to, subject, expectsReply, body)
	if err != nil {
		return "", s.fail(OpSendMessage, err, to)
	}
	metrics.MessagesSent.Inc()

	var warning string
	if d.RecipientUnconfirmed {
		metrics.UnconfirmedRecipients.Inc()
		warning = fmt.Sprintf("Warning: recipient '%s' may not be registered (inbox doesn't exist)\n", to)
	}
	return fmt.Sprintf("%sSent message to %s: %s", warning, to, d.Path), nil
}

// PollInbox waits for the first unread message. Running out of attempts is
// not an error; the returned Result reports whether a message was found.
func (s *Service) PollInbox(ctx context.Context, name string, maxIterations int, delay time.Duration) (out string, res poll.Result, err error) {
	defer s.observe(ctx, OpPollInbox, time.Now(), &err, name)
	start := time.Now()

	if err := s.validateName(OpPollInbox, name); err != nil {
		return "", poll.Result{}, err
	}
	if maxIterations < 1 {
		return "", poll.Result{}, &Error{Op: OpPollInbox, Message: "max_iterations must be at least 1", Err: poll.ErrInvalidArgument}
	}
	if delay < 0 {
		return "", poll.Result{}, &Error{Op: OpPollInbox, Message: "delay_seconds must be non-negative", Err: poll.ErrInvalidArgument}
	}

	res, err = s.poller.Poll(ctx, name, maxIterations, delay)
	metrics.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Polls.WithLabelValues("error").Inc()
		return "", res, s.fail(OpPollInbox, err, name)
	}
	metrics.PollAttempts.Observe(float64(res.Attempts))

	lines := []string{
		fmt.Sprintf("Polling inbox for %s (max %d iterations, %ss delay)", name, maxIterations, formatSeconds(delay)),
		fmt.Sprintf("Poll started at %d", res.StartedAt.Unix()),
	}
	if res.Found {
		metrics.Polls.WithLabelValues("found").Inc()
		lines = append(lines,
			fmt.Sprintf("--- Found unread message (iteration %d) ---", res.Attempt),
			"Path: "+res.Path,
			"--- Content ---",
			res.Content,
		)
	} else {
		metrics.Polls.WithLabelValues("empty").Inc()
		lines = append(lines, fmt.Sprintf("No unread messages found after %d iterations", maxIterations))
	}
	return strings.Join(lines, "\n"), res, nil
}

// MarkRead records that the message at path has been consumed.
func (s *Service) MarkRead(ctx context.Context, path string) (out string, err error) {
	defer s.observe(ctx, OpMarkRead, time.Now(), &err)

	resolved, err := s.mb.MarkRead(path)
	if err != nil {
		return "", s.fail(OpMarkRead, err, "")
	}
	metrics.MessagesMarkedRead.Inc()
	return "Marked as read: " + resolved, nil
}

// Agents returns the parsed registry records.
func (s *Service) Agents(ctx context.Context) (recs []registry.Record, err error) {
	defer s.observe(ctx, OpListAgents, time.Now(), &err)

	recs, err = s.reg.Records()
	if err != nil {
		return nil, s.fail(OpListAgents, err, "")
	}
	return recs, nil
}

// ListAgents returns the registry document.
func (s *Service) ListAgents(ctx context.Context) (out string, err error) {
	defer s.observe(ctx, OpListAgents, time.Now(), &err)

	out, err = s.reg.List()
	if err != nil {
		return "", s.fail(OpListAgents, err, "")
	}
	return out, nil
}

// ListInbox returns the agent's messages with their read state.
func (s *Service) ListInbox(ctx context.Context, name string, includeRead bool) (out string, err error) {
	defer s.observe(ctx, OpListInbox, time.Now(), &err, name)

	inbox, err := s.inbox(name, includeRead)
	if err != nil {
		return "", err
	}
	return RenderInbox(inbox), nil
}

// Inbox is ListInbox without the text rendering.
func (s *Service) Inbox(ctx context.Context, name string, includeRead bool) (inbox mailbox.Inbox, err error) {
	defer s.observe(ctx, OpListInbox, time.Now(), &err, name)
	return s.inbox(name, includeRead)
}

func (s *Service) inbox(name string, includeRead bool) (mailbox.Inbox, error) {
	if err := s.validateName(OpListInbox, name); err != nil {
		return mailbox.Inbox{}, err
	}
	inbox, err := s.mb.List(name, includeRead)
	if err != nil {
		return mailbox.Inbox{}, s.fail(OpListInbox, err, name)
	}
	return inbox, nil
}

// RenderInbox formats an inbox listing.
func RenderInbox(inbox mailbox.Inbox) string {
	if inbox.Total == 0 {
		return "No messages in inbox for " + inbox.Agent
	}
	if len(inbox.Entries) == 0 {
		if inbox.IncludeRead {
			return "No messages in inbox for " + inbox.Agent
		}
		return "No unread messages in inbox for " + inbox.Agent
	}
	lines := []string{"Inbox for " + inbox.Agent + ":", ""}
	for _, e := range inbox.Entries {
		lines = append(lines, "  "+StatusLabel(e.Read)+" "+e.Name)
	}
	return strings.Join(lines, "\n")
}

// StatusLabel is the bracketed read state shown in listings.
func StatusLabel(read bool) string {
	if read {
		return "[read]"
	}
	return "[unread]"
}

// ReadMessage returns a message's content without marking it read.
func (s *Service) ReadMessage(ctx context.Context, path string) (env mailbox.Envelope, err error) {
	defer s.observe(ctx, "read_message", time.Now(), &err)

	env, err = s.mb.Read(path)
	if err != nil {
		return mailbox.Envelope{}, s.fail("read_message", err, "")
	}
	return env, nil
}

func (s *Service) validateName(op, name string) error {
	if err := fsq.ValidateName(name); err != nil {
		return &Error{
			Op:      op,
			Message: fmt.Sprintf("Agent name '%s' is invalid. Must contain only alphanumeric characters, underscores, or hyphens.", name),
			Err:     err,
		}
	}
	return nil
}

// fail turns a component error into the message shown to agents.
func (s *Service) fail(op string, err error, name string) error {
	var pathErr *mailbox.PathError
	errors.As(err, &pathErr)
	path := ""
	if pathErr != nil {
		path = pathErr.Path
	}

	var msg string
	switch {
	case errors.Is(err, registry.ErrNoRegistry):
		msg = "No agents file found - nothing to unregister"
	case errors.Is(err, registry.ErrNotRegistered):
		msg = fmt.Sprintf("Agent '%s' is not registered", name)
	case errors.Is(err, mailbox.ErrInboxNotFound):
		if path == "" {
			path = s.mb.InboxDir(name)
		}
		msg = fmt.Sprintf("Inbox directory not found: %s\nHave you registered this agent?", path)
	case errors.Is(err, mailbox.ErrRecipientUnknown):
		msg = fmt.Sprintf("Recipient '%s' is not registered (inbox doesn't exist)", name)
	case errors.Is(err, mailbox.ErrPathEscape):
		msg = "Message path must be within " + s.mb.Root()
	case errors.Is(err, mailbox.ErrNotFound):
		msg = "Message file not found: " + path
	case errors.Is(err, mailbox.ErrInvalidKind):
		msg = "Message path must be a .md file"
	default:
		msg = err.Error()
	}
	return &Error{Op: op, Message: msg, Err: err}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error, agents ...string) {
	err := *errp
	metrics.ObserveOperation(op, err)

	log := s.logger(ctx)
	var event *zerolog.Event
	if err != nil {
		event = log.Warn().Err(err)
	} else {
		event = log.Info()
	}
	event = event.Str("op", op).Dur("duration", time.Since(start))
	if len(agents) > 0 && agents[0] != "" {
		event = event.Str("agent", agents[0])
	}
	if len(agents) > 1 {
		event = event.Str("to", agents[1])
	}
	event.Msg("operation completed")
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.log
}

func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
