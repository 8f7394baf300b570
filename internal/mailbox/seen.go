package mailbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
)

var (
	// ErrPathEscape is returned when a message path resolves outside the
	// mailbox root, including through symlinks.
	ErrPathEscape = errors.New("message path must be within the mailbox root")

	// ErrNotFound is returned when the message file does not exist.
	ErrNotFound = errors.New("message file not found")

	// ErrInvalidKind is returned when the path is not a message file.
	ErrInvalidKind = errors.New("message path must be a .md file")
)

// PathError records a rejected path and the reason.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string { return e.Err.Error() + ": " + e.Path }

func (e *PathError) Unwrap() error { return e.Err }

// IsRead reports whether the message at path has a read marker.
func IsRead(messagePath string) bool {
	info, err := os.Lstat(fsq.SeenPath(messagePath))
	return err == nil && info.Mode().IsRegular()
}

// MarkRead creates the read marker for the message at path and returns the
// resolved message path. Marking an already read message succeeds. Nothing
// is written when the path is rejected, and a marker that is not a regular
// file (a planted symlink) is rejected as an escape.
func (m *Mailbox) MarkRead(path string) (string, error) {
	resolved, err := m.ResolveMessage(path)
	if err != nil {
		return "", err
	}
	seen := fsq.SeenPath(resolved)
	if err := fsq.Touch(seen); err != nil {
		if errors.Is(err, fsq.ErrNotRegular) {
			return "", &PathError{Path: seen, Err: ErrPathEscape}
		}
		return "", fmt.Errorf("write read marker: %w", err)
	}
	return resolved, nil
}

// Envelope is a message file read through Read.
type Envelope struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Read    bool   `json:"read"`
}

// Read returns the content of the message at path after the same checks as
// MarkRead. It does not mark the message read.
func (m *Mailbox) Read(path string) (Envelope, error) {
	resolved, err := m.ResolveMessage(path)
	if err != nil {
		return Envelope{}, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Path: resolved, Content: string(data), Read: IsRead(resolved)}, nil
}

// ResolveMessage turns path into an absolute, symlink-free path and checks
// that it names an existing .md file under the mailbox root. Relative paths
// are taken relative to the root.
func (m *Mailbox) ResolveMessage(path string) (string, error) {
	if path == "" {
		return "", &PathError{Path: path, Err: ErrNotFound}
	}
	root, err := realPath(m.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	target, err := realPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if !within(root, target) {
		return "", &PathError{Path: m.root, Err: ErrPathEscape}
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &PathError{Path: target, Err: ErrNotFound}
		}
		return "", err
	}
	if filepath.Ext(target) != fsq.MessageExt || !info.Mode().IsRegular() {
		return "", &PathError{Path: target, Err: ErrInvalidKind}
	}
	return target, nil
}

// realPath resolves symlinks in the longest existing prefix of path and
// appends the remaining components unchanged.
func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var rest []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, rest...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// within reports whether target is strictly below root.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
