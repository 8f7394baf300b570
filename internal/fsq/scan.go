package fsq

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ListMessages returns the message filenames in dir in lexicographic order.
// Message names start with a UTC timestamp, so this order is chronological.
func ListMessages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsMessageName(entry.Name()) {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out, nil
}

// ListAgents returns the names of the inbox directories under root.
func ListAgents(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if ValidateName(entry.Name()) != nil {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out, nil
}

// FindTmpFilesOlderThan returns staged temp files under root (the root itself
// and every inbox) whose modification time is before cutoff.
func FindTmpFilesOlderThan(root string, cutoff time.Time) ([]string, error) {
	agents, err := ListAgents(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	matches := []string{}
	scanDir := func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsTmpName(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue // skip unreadable files instead of failing entire scan
			}
			if info.ModTime().Before(cutoff) {
				matches = append(matches, filepath.Join(dir, entry.Name()))
			}
		}
		return nil
	}
	if err := scanDir(root); err != nil {
		return nil, err
	}
	for _, agent := range agents {
		if err := scanDir(AgentDir(root, agent)); err != nil {
			return nil, err
		}
	}
	return matches, nil
}
