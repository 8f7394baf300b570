// Package mailbox delivers messages into per-agent inbox directories and
// tracks their read state with empty sidecar markers.
package mailbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avivsinai/a2a-mailbox/internal/clock"
	"github.com/avivsinai/a2a-mailbox/internal/format"
	"github.com/avivsinai/a2a-mailbox/internal/fsq"
)

var (
	// ErrInboxNotFound is returned when the agent has no inbox directory.
	ErrInboxNotFound = errors.New("inbox directory not found")

	// ErrRecipientUnknown is returned by Send in strict mode when the
	// recipient has no inbox directory.
	ErrRecipientUnknown = errors.New("recipient has no inbox")
)

// Delivery is the outcome of Send.
type Delivery struct {
	Path    string         `json:"path"`
	Message format.Message `json:"message"`

	// RecipientUnconfirmed is set when the recipient's inbox did not exist
	// and was created by this send.
	RecipientUnconfirmed bool `json:"recipient_unconfirmed"`
}

// Entry is one message in an inbox listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Read bool   `json:"read"`
}

// Inbox is the result of List. Entries is already filtered; Total counts
// every message in the directory.
type Inbox struct {
	Agent       string  `json:"agent"`
	Dir         string  `json:"dir"`
	Entries     []Entry `json:"entries"`
	Total       int     `json:"total"`
	IncludeRead bool    `json:"include_read"`
}

// Mailbox operates on the inboxes under a single root directory.
type Mailbox struct {
	root   string
	clock  clock.Clock
	strict bool
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithClock sets the clock used for message timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *Mailbox) {
		m.clock = c
	}
}

// WithStrictRecipients makes Send fail instead of creating a missing
// recipient inbox.
func WithStrictRecipients(strict bool) Option {
	return func(m *Mailbox) {
		m.strict = strict
	}
}

// New returns a Mailbox rooted at root.
func New(root string, opts ...Option) *Mailbox {
	m := &Mailbox{root: root, clock: clock.Real()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the mailbox root directory.
func (m *Mailbox) Root() string {
	return m.root
}

// InboxDir returns the inbox directory for agent.
func (m *Mailbox) InboxDir(agent string) string {
	return fsq.AgentDir(m.root, agent)
}

// Send writes a new message into the recipient's inbox. A missing inbox is
// created and the delivery flagged as unconfirmed, unless the mailbox is
// strict. Existing messages are never overwritten: when the canonical name
// is taken in the same second, a ULID suffix is appended.
func (m *Mailbox) Send(from, to, subject string, expectsReply bool, body string) (Delivery, error) {
	if err := fsq.ValidateName(from); err != nil {
		return Delivery{}, fmt.Errorf("from: %w", err)
	}
	if err := fsq.ValidateName(to); err != nil {
		return Delivery{}, fmt.Errorf("to: %w", err)
	}

	dir := m.InboxDir(to)
	unconfirmed := !fsq.DirExists(dir)
	if unconfirmed {
		if m.strict {
			return Delivery{}, fmt.Errorf("%w: %s", ErrRecipientUnknown, to)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Delivery{}, fmt.Errorf("create inbox: %w", err)
		}
	}

	now := m.clock.Now()
	msg := format.Message{
		Header: format.Header{
			From:         from,
			To:           to,
			Timestamp:    format.Timestamp(now),
			Subject:      subject,
			ExpectsReply: expectsReply,
		},
		Body: body,
	}
	data := msg.Marshal()

	path, err := fsq.CreateExclusive(dir, format.MessageFilename(now, subject), data, 0o644)
	if errors.Is(err, os.ErrExist) {
		path, err = fsq.CreateExclusive(dir, format.DisambiguatedFilename(now, subject), data, 0o644)
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("write message: %w", err)
	}
	return Delivery{Path: path, Message: msg, RecipientUnconfirmed: unconfirmed}, nil
}

// List enumerates the agent's messages in lexicographic (and therefore
// chronological) order. Read messages are left out unless includeRead.
func (m *Mailbox) List(agent string, includeRead bool) (Inbox, error) {
	names, dir, err := m.scan(agent)
	if err != nil {
		return Inbox{}, err
	}
	inbox := Inbox{
		Agent:       agent,
		Dir:         dir,
		Entries:     []Entry{},
		Total:       len(names),
		IncludeRead: includeRead,
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		read := IsRead(path)
		if read && !includeRead {
			continue
		}
		inbox.Entries = append(inbox.Entries, Entry{Name: name, Path: path, Read: read})
	}
	return inbox, nil
}

// FirstUnread returns the oldest message in the agent's inbox that has no
// read marker.
func (m *Mailbox) FirstUnread(agent string) (Entry, bool, error) {
	names, dir, err := m.scan(agent)
	if err != nil {
		return Entry{}, false, err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if !IsRead(path) {
			return Entry{Name: name, Path: path}, true, nil
		}
	}
	return Entry{}, false, nil
}

func (m *Mailbox) scan(agent string) ([]string, string, error) {
	if err := fsq.ValidateName(agent); err != nil {
		return nil, "", err
	}
	dir := m.InboxDir(agent)
	if !fsq.DirExists(dir) {
		return nil, dir, &PathError{Path: dir, Err: ErrInboxNotFound}
	}
	names, err := fsq.ListMessages(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dir, &PathError{Path: dir, Err: ErrInboxNotFound}
		}
		return nil, dir, err
	}
	return names, dir, nil
}
