package fsq

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteFileAtomic writes data to a temporary file in dir and renames it into place.
func WriteFileAtomic(dir, filename string, data []byte, perm os.FileMode) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmpPath := filepath.Join(dir, tmpName(filename))
	finalPath := filepath.Join(dir, filename)

	if err := writeAndSync(tmpPath, data, perm); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", cleanupTemp(tmpPath, err)
	}
	if err := SyncDir(dir); err != nil {
		return "", err
	}
	return finalPath, nil
}

// CreateExclusive publishes data as dir/filename only if that name is free.
// The content is staged in a temp file and hard-linked into place, so readers
// never observe a partial message. It returns an error satisfying
// errors.Is(err, os.ErrExist) when the name is taken.
func CreateExclusive(dir, filename string, data []byte, perm os.FileMode) (string, error) {
	tmpPath := filepath.Join(dir, tmpName(filename))
	finalPath := filepath.Join(dir, filename)

	if err := writeAndSync(tmpPath, data, perm); err != nil {
		return "", err
	}
	if err := os.Link(tmpPath, finalPath); err != nil {
		return "", cleanupTemp(tmpPath, err)
	}
	// A leftover staged file is harmless; cleanup removes it later.
	_ = os.Remove(tmpPath)
	if err := SyncDir(dir); err != nil {
		return "", err
	}
	return finalPath, nil
}

// ErrNotRegular is returned by Touch when path exists but is not a regular
// file, for example a symlink.
var ErrNotRegular = errors.New("not a regular file")

// Touch creates an empty file at path if it does not exist. An existing
// regular file is left untouched. Symlinks are never followed: O_EXCL fails
// on any existing name, and what exists is checked with Lstat.
func Touch(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		info, lerr := os.Lstat(path)
		if lerr != nil {
			return lerr
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s", ErrNotRegular, path)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return SyncDir(filepath.Dir(path))
}

// IsTmpName reports whether a filename was produced by tmpName.
func IsTmpName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".tmp-")
}

func tmpName(filename string) string {
	return fmt.Sprintf(".%s.tmp-%d", filename, time.Now().UnixNano())
}

func writeAndSync(path string, data []byte, perm os.FileMode) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if _, err = file.Write(data); err != nil {
		return err
	}
	return file.Sync()
}

func cleanupTemp(path string, primary error) error {
	if primary == nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w (cleanup: %v)", primary, err)
	}
	return primary
}
