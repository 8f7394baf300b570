// Package poll blocks until an agent's inbox holds an unread message or a
// bounded number of attempts runs out.
package poll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/avivsinai/a2a-mailbox/internal/clock"
	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
)

const (
	DefaultMaxIterations = 30
	DefaultDelay         = 10 * time.Second
)

// ErrInvalidArgument is returned for out-of-range poll parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// Result describes a finished poll. Exhausting every attempt without an
// unread message is a normal result with Found unset.
type Result struct {
	Agent         string        `json:"agent"`
	MaxIterations int           `json:"max_iterations"`
	Delay         time.Duration `json:"delay"`
	StartedAt     time.Time     `json:"started_at"`

	Found    bool `json:"found"`
	Attempt  int  `json:"attempt,omitempty"`
	Attempts int  `json:"attempts"`

	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

// Poller scans a mailbox for the first unread message.
type Poller struct {
	mb    *mailbox.Mailbox
	clock clock.Clock
	watch bool
	log   zerolog.Logger
}

// Option configures a Poller.
type Option func(*Poller)

func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithWatch enables filesystem notifications so an unread message arriving
// during a delay ends the delay early. A notification for a message that is
// already read by the time it is scanned does not use up an attempt.
func WithWatch(watch bool) Option {
	return func(p *Poller) {
		p.watch = watch
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(p *Poller) {
		p.log = log
	}
}

// New returns a Poller over mb.
func New(mb *mailbox.Mailbox, opts ...Option) *Poller {
	p := &Poller{mb: mb, clock: clock.Real(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateArgs checks the poll bounds.
func ValidateArgs(maxIterations int, delay time.Duration) error {
	if maxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be at least 1", ErrInvalidArgument)
	}
	if delay < 0 {
		return fmt.Errorf("%w: delay_seconds must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// Poll makes up to maxIterations scans of the agent's inbox, waiting delay
// between consecutive scans, and returns the first unread message found.
// Cancelling ctx ends the wait and returns ctx.Err() with the attempts made
// so far.
func (p *Poller) Poll(ctx context.Context, agent string, maxIterations int, delay time.Duration) (Result, error) {
	if err := fsq.ValidateName(agent); err != nil {
		return Result{}, err
	}
	if err := ValidateArgs(maxIterations, delay); err != nil {
		return Result{}, err
	}
	dir := p.mb.InboxDir(agent)
	if !fsq.DirExists(dir) {
		return Result{}, &mailbox.PathError{Path: dir, Err: mailbox.ErrInboxNotFound}
	}

	res := Result{
		Agent:         agent,
		MaxIterations: maxIterations,
		Delay:         delay,
		StartedAt:     p.clock.Now(),
	}

	// The watch is armed before the first scan so nothing arriving between
	// the scan and the wait is missed.
	var wake <-chan struct{}
	if p.watch && maxIterations > 1 && delay > 0 {
		w, err := watchInbox(dir)
		if err != nil {
			p.log.Debug().Err(err).Str("dir", dir).Msg("inbox watch unavailable, using timer only")
		} else {
			defer func() { _ = w.Close() }()
			wake = w.C
		}
	}

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		found, err := p.scan(agent, attempt, &res)
		if err != nil || found {
			return res, err
		}
		p.log.Debug().Str("agent", agent).Int("attempt", attempt).Msg("no unread message")
		if attempt == maxIterations {
			return res, nil
		}
		next := attempt + 1
		found, err = p.wait(ctx, delay, wake, func() (bool, error) {
			return p.scan(agent, next, &res)
		})
		if found {
			res.Attempts = next
		}
		if err != nil || found {
			return res, err
		}
	}
}

// scan looks for the first unread message and records it in res as found
// on the given attempt.
func (p *Poller) scan(agent string, attempt int, res *Result) (bool, error) {
	entry, ok, err := p.mb.FirstUnread(agent)
	if err != nil || !ok {
		return false, err
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return false, fmt.Errorf("read message: %w", err)
	}
	res.Found = true
	res.Attempt = attempt
	res.Path = entry.Path
	res.Content = string(data)
	return true, nil
}

// wait blocks for d. Each wake-up triggers rescan; a rescan that finds
// nothing keeps waiting on the same timer, so notifications never shorten
// the total wait.
func (p *Poller) wait(ctx context.Context, d time.Duration, wake <-chan struct{}, rescan func() (bool, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	timer := p.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer:
			return false, nil
		case <-wake:
			found, err := rescan()
			if err != nil || found {
				return found, err
			}
			p.log.Debug().Msg("wake-up without unread message, still waiting")
		}
	}
}
