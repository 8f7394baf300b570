package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/avivsinai/a2a-mailbox/internal/clock"
	"github.com/avivsinai/a2a-mailbox/internal/format"
	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/lock"
)

// StatusActive is the status written for every registered agent.
const StatusActive = "active"

// EmptyListing is returned by List before any agent has registered.
const EmptyListing = "No agents registered yet. Use register_agent to register an agent."

// ErrNotRegistered is returned when an operation targets an agent that has
// no record in the registry document.
var ErrNotRegistered = errors.New("agent not registered")

// ErrNoRegistry is returned by Unregister before any agent has registered.
var ErrNoRegistry = fmt.Errorf("no agents file found: %w", ErrNotRegistered)

// Change describes one field that differs between an existing record and a
// re-registration.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s: '%s' -> '%s'", c.Field, c.Old, c.New)
}

// RegistrationResult reports the outcome of Register.
type RegistrationResult struct {
	Record  Record   `json:"record"`
	Updated bool     `json:"updated"`
	Changes []Change `json:"changes"`
}

// UnregisterResult reports the outcome of Unregister.
type UnregisterResult struct {
	Name         string `json:"name"`
	InboxDeleted bool   `json:"inbox_deleted"`
}

// Registry reads and writes the registry document under root.
type Registry struct {
	root  string
	clock clock.Clock
	mu    sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for Started timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// New returns a Registry for the mailbox root. Nothing is created on disk
// until the first registration.
func New(root string, opts ...Option) *Registry {
	r := &Registry{root: root, clock: clock.Real()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the registry document path.
func (r *Registry) Path() string {
	return fsq.RegistryPath(r.root)
}

// Register creates or replaces the record for name. A replaced record is
// moved to the end of the document and the differing fields are reported.
// The agent's inbox directory is created if missing.
func (r *Registry) Register(name, description, capabilities, workingDir string) (RegistrationResult, error) {
	if err := fsq.ValidateName(name); err != nil {
		return RegistrationResult{}, err
	}
	if err := fsq.EnsureRoot(r.root); err != nil {
		return RegistrationResult{}, fmt.Errorf("create root: %w", err)
	}
	if _, err := fsq.EnsureAgentDir(r.root, name); err != nil {
		return RegistrationResult{}, fmt.Errorf("create inbox: %w", err)
	}

	rec := Record{
		Name:         name,
		Description:  oneLine(description),
		Capabilities: oneLine(capabilities),
		WorkingDir:   oneLine(workingDir),
		Started:      format.Timestamp(r.clock.Now()),
		Status:       StatusActive,
	}
	var result RegistrationResult
	err := r.update(func(doc *Document) error {
		result = RegistrationResult{Record: rec}
		if i, ok := doc.Find(name); ok {
			result.Updated = true
			result.Changes = diff(doc.Records[i], rec)
			doc.Remove(name)
		}
		doc.Append(rec)
		return nil
	}, false)
	if err != nil {
		return RegistrationResult{}, err
	}
	return result, nil
}

// Unregister removes the record for name. With deleteInbox the agent's inbox
// directory and everything in it is removed as well.
func (r *Registry) Unregister(name string, deleteInbox bool) (UnregisterResult, error) {
	if err := fsq.ValidateName(name); err != nil {
		return UnregisterResult{}, err
	}
	if !fsq.FileExists(r.Path()) {
		return UnregisterResult{}, ErrNoRegistry
	}
	err := r.update(func(doc *Document) error {
		if !doc.Remove(name) {
			return fmt.Errorf("%w: %s", ErrNotRegistered, name)
		}
		return nil
	}, true)
	if err != nil {
		return UnregisterResult{}, err
	}

	result := UnregisterResult{Name: name}
	if deleteInbox {
		dir := fsq.AgentDir(r.root, name)
		if fsq.DirExists(dir) {
			if err := os.RemoveAll(dir); err != nil {
				return result, fmt.Errorf("delete inbox: %w", err)
			}
			result.InboxDeleted = true
		}
	}
	return result, nil
}

// List returns the registry document verbatim, or EmptyListing when no
// document exists yet.
func (r *Registry) List() (string, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return EmptyListing, nil
		}
		return "", err
	}
	return string(data), nil
}

// Records returns the parsed records in document order.
func (r *Registry) Records() ([]Record, error) {
	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

func (r *Registry) load() (*Document, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, err
	}
	return ParseDocument(data), nil
}

// update applies fn to the current document and writes the result. The
// in-process mutex and the flock on the sidecar lock file make the
// read-modify-write a single critical section across goroutines and
// processes.
func (r *Registry) update(fn func(doc *Document) error, collapse bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lock.WithExclusiveFileLock(fsq.RegistryLockPath(r.root), func() error {
		doc, err := r.load()
		if err != nil {
			return fmt.Errorf("read registry: %w", err)
		}
		if err := fn(doc); err != nil {
			return err
		}
		data := doc.Render()
		if collapse {
			data = collapseBlankRuns(data)
		}
		if _, err := fsq.WriteFileAtomic(r.root, fsq.RegistryFile, data, 0o644); err != nil {
			return fmt.Errorf("write registry: %w", err)
		}
		return nil
	})
}

func diff(old, next Record) []Change {
	var changes []Change
	add := func(field, a, b string) {
		if a != b {
			changes = append(changes, Change{Field: field, Old: a, New: b})
		}
	}
	add("description", old.Description, next.Description)
	add("capabilities", old.Capabilities, next.Capabilities)
	add("working-dir", old.WorkingDir, next.WorkingDir)
	return changes
}

func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
