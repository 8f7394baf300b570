package fsq

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// RegistryFile is the shared agent registry document at the root.
	RegistryFile = "active-agents.md"

	// MessageExt is the extension of message files inside an inbox.
	MessageExt = ".md"

	// SeenExt is appended to a message filename to form its read marker.
	SeenExt = ".seen"
)

// ErrInvalidName is returned when an agent name does not match [A-Za-z0-9_-]+.
var ErrInvalidName = errors.New("invalid agent name")

// nameRe matches valid agent names: letters, digits, underscore, hyphen.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName returns an error wrapping ErrInvalidName unless name is a
// non-empty run of [A-Za-z0-9_-]. Names become directory names, so anything
// that could traverse or hide a path is rejected.
func ValidateName(name string) error {
	if name == "" || strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: agent name is empty", ErrInvalidName)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: agent name contains path traversal: %q", ErrInvalidName, name)
	}
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: agent name %q must contain only alphanumeric characters, underscores, or hyphens", ErrInvalidName, name)
	}
	return nil
}

// Path helpers for the mailbox layout.

func RegistryPath(root string) string {
	return filepath.Join(root, RegistryFile)
}

// RegistryLockPath is the sidecar file flocked while the registry is rewritten.
func RegistryLockPath(root string) string {
	return filepath.Join(root, ".active-agents.lock")
}

func AgentDir(root, agent string) string {
	return filepath.Join(root, agent)
}

// SeenPath returns the read marker path for a message file.
func SeenPath(messagePath string) string {
	return messagePath + SeenExt
}

// IsMessageName reports whether a directory entry name is a message file.
// Hidden names (temp files) and read markers are not messages.
func IsMessageName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, MessageExt)
}

func EnsureRoot(root string) error {
	return os.MkdirAll(root, 0o755)
}

// EnsureAgentDir creates the inbox directory for agent. It reports whether
// the directory had to be created.
func EnsureAgentDir(root, agent string) (bool, error) {
	if err := ValidateName(agent); err != nil {
		return false, err
	}
	dir := AgentDir(root, agent)
	if DirExists(dir) {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
