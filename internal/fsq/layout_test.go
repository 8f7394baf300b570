package fsq

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		errStr string
	}{
		{"claude", true, ""},
		{"Codex", true, ""},
		{"AGENT", true, ""},
		{"agent-1", true, ""},
		{"my_agent", true, ""},
		{"a123", true, ""},
		{"-", true, ""},
		{"", false, "empty"},
		{"  ", false, "empty"},
		{"..", false, "path traversal"},
		{"../etc", false, "path traversal"},
		{"foo/bar", false, "path traversal"},
		{`foo\bar`, false, "path traversal"},
		{"has space", false, "alphanumeric"},
		{"has.dot", false, "alphanumeric"},
		{"tab\there", false, "alphanumeric"},
		{"émile", false, "alphanumeric"},
		{"trailing\n", false, "alphanumeric"},
	}
	for _, tc := range tests {
		err := ValidateName(tc.name)
		if tc.ok && err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ValidateName(%q) = nil, want error containing %q", tc.name, tc.errStr)
				continue
			}
			if !errors.Is(err, ErrInvalidName) {
				t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", tc.name, err)
			}
			if !strings.Contains(err.Error(), tc.errStr) {
				t.Errorf("ValidateName(%q) = %v, want error containing %q", tc.name, err, tc.errStr)
			}
		}
	}
}

func TestEnsureAgentDir(t *testing.T) {
	root := t.TempDir()
	created, err := EnsureAgentDir(root, "alice")
	if err != nil {
		t.Fatalf("EnsureAgentDir: %v", err)
	}
	if !created {
		t.Fatalf("expected first call to create the directory")
	}
	created, err = EnsureAgentDir(root, "alice")
	if err != nil {
		t.Fatalf("EnsureAgentDir again: %v", err)
	}
	if created {
		t.Fatalf("expected second call to be a no-op")
	}
	if !DirExists(filepath.Join(root, "alice")) {
		t.Fatalf("inbox directory missing")
	}
}

func TestEnsureAgentDirRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	if _, err := EnsureAgentDir(root, "../escape"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if DirExists(filepath.Join(filepath.Dir(root), "escape")) {
		t.Fatalf("directory created outside root")
	}
}

func TestIsMessageName(t *testing.T) {
	cases := map[string]bool{
		"2025-12-24T15-02-33Z-hi.md":        true,
		"2025-12-24T15-02-33Z-hi.md.seen":   false,
		".2025-12-24T15-02-33Z-hi.md.tmp-1": false,
		".hidden.md":                        false,
		"readme.txt":                        false,
		"2025-12-24T15-02-33Z-hi_01jabc.md": true,
	}
	for name, want := range cases {
		if got := IsMessageName(name); got != want {
			t.Errorf("IsMessageName(%q) = %v, want %v", name, got, want)
		}
	}
}
