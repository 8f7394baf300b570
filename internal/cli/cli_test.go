package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avivsinai/a2a-mailbox/internal/poll"
)

type runResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, root, stdin string, args ...string) runResult {
	t.Helper()
	cmd := NewRootCmd("test")
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetIn(strings.NewReader(stdin))
	full := append([]string{"--root", root, "--log-level", "disabled", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return runResult{stdout: out.String(), stderr: errb.String(), err: err}
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return filepath.Join(t.TempDir(), "a2a")
}

func TestRegisterListAndUnregister(t *testing.T) {
	root := isolate(t)

	res := runCLI(t, root, "", "agents")
	if res.err != nil {
		t.Fatalf("agents: %v", res.err)
	}
	if res.stdout != "No agents registered yet. Use register_agent to register an agent.\n" {
		t.Fatalf("empty agents output: %q", res.stdout)
	}

	res = runCLI(t, root, "", "register", "alice", "--description", "frontend", "--working-dir", "/work")
	if res.err != nil {
		t.Fatalf("register: %v", res.err)
	}
	if !strings.HasPrefix(res.stdout, "Registered agent 'alice' at ") {
		t.Fatalf("register output: %q", res.stdout)
	}
	if !fileExists(filepath.Join(root, "alice")) {
		t.Fatalf("inbox dir not created")
	}

	res = runCLI(t, root, "", "agents", "--json")
	if res.err != nil {
		t.Fatalf("agents --json: %v", res.err)
	}
	var recs []map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &recs); err != nil {
		t.Fatalf("decode agents json: %v\n%s", err, res.stdout)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	res = runCLI(t, root, "", "unregister", "alice", "--delete-inbox")
	if res.err != nil {
		t.Fatalf("unregister: %v", res.err)
	}
	if res.stdout != "Unregistered agent 'alice' and deleted inbox directory\n" {
		t.Fatalf("unregister output: %q", res.stdout)
	}

	res = runCLI(t, root, "", "unregister", "alice")
	if GetExitCode(res.err) != ExitNotFound {
		t.Fatalf("expected exit %d, got %d (%v)", ExitNotFound, GetExitCode(res.err), res.err)
	}
	if res.err.Error() != "Agent 'alice' is not registered" {
		t.Fatalf("unexpected error text: %q", res.err.Error())
	}
}

func TestSendInboxReadMarkRead(t *testing.T) {
	root := isolate(t)

	if res := runCLI(t, root, "", "register", "bob"); res.err != nil {
		t.Fatalf("register: %v", res.err)
	}
	res := runCLI(t, root, "please review\n", "send", "--from", "alice", "--to", "bob", "--subject", "Review", "--expects-reply")
	if res.err != nil {
		t.Fatalf("send: %v", res.err)
	}
	const prefix = "Sent message to bob: "
	if !strings.HasPrefix(res.stdout, prefix) {
		t.Fatalf("send output: %q", res.stdout)
	}
	path := strings.TrimSpace(strings.TrimPrefix(res.stdout, prefix))
	name := filepath.Base(path)

	res = runCLI(t, root, "", "inbox", "bob")
	if res.err != nil {
		t.Fatalf("inbox: %v", res.err)
	}
	if want := "Inbox for bob:\n\n  [unread] " + name + "\n"; res.stdout != want {
		t.Fatalf("inbox output:\n%q\nwant\n%q", res.stdout, want)
	}

	res = runCLI(t, root, "", "read", path, "--json")
	if res.err != nil {
		t.Fatalf("read: %v", res.err)
	}
	var got readOutput
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode read json: %v", err)
	}
	if got.Header == nil || got.Header.From != "alice" || !got.Header.ExpectsReply {
		t.Fatalf("unexpected header: %+v", got.Header)
	}
	if got.Body != "please review" {
		t.Fatalf("unexpected body: %q", got.Body)
	}
	if got.Read {
		t.Fatalf("read must not mark the message")
	}

	res = runCLI(t, root, "", "mark-read", path)
	if res.err != nil {
		t.Fatalf("mark-read: %v", res.err)
	}
	if res.stdout != "Marked as read: "+path+"\n" {
		t.Fatalf("mark-read output: %q", res.stdout)
	}

	res = runCLI(t, root, "", "inbox", "bob")
	if res.stdout != "No unread messages in inbox for bob\n" {
		t.Fatalf("filtered inbox output: %q", res.stdout)
	}
	res = runCLI(t, root, "", "inbox", "bob", "--all")
	if !strings.Contains(res.stdout, "[read] "+name) {
		t.Fatalf("inbox --all output: %q", res.stdout)
	}
}

func TestSendBodyFromFile(t *testing.T) {
	root := isolate(t)
	bodyFile := filepath.Join(t.TempDir(), "body.md")
	if err := os.WriteFile(bodyFile, []byte("from a file\n"), 0o600); err != nil {
		t.Fatalf("write body: %v", err)
	}

	res := runCLI(t, root, "", "send", "--from", "alice", "--to", "carol", "--body", "@"+bodyFile)
	if res.err != nil {
		t.Fatalf("send: %v", res.err)
	}
	if !strings.HasPrefix(res.stdout, "Warning: recipient 'carol' may not be registered (inbox doesn't exist)\n") {
		t.Fatalf("expected warning, got %q", res.stdout)
	}

	res = runCLI(t, root, "", "send", "--from", "alice", "--to", "dave", "--body", "x", "--strict")
	if GetExitCode(res.err) != ExitUsage {
		t.Fatalf("strict send: exit %d (%v)", GetExitCode(res.err), res.err)
	}
	if fileExists(filepath.Join(root, "dave")) {
		t.Fatalf("strict send must not create the inbox")
	}
}

func TestReadBody(t *testing.T) {
	tests := []struct {
		name  string
		flag  string
		stdin string
		want  string
	}{
		{"literal", "hello", "ignored", "hello"},
		{"empty reads stdin", "", "from stdin", "from stdin"},
		{"at dash reads stdin", "@-", "piped", "piped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readBody(strings.NewReader(tt.stdin), tt.flag)
			if err != nil {
				t.Fatalf("readBody: %v", err)
			}
			if got != tt.want {
				t.Fatalf("readBody = %q, want %q", got, tt.want)
			}
		})
	}

	_, err := readBody(strings.NewReader(""), "@"+filepath.Join(t.TempDir(), "missing"))
	if GetExitCode(err) != ExitUsage {
		t.Fatalf("missing body file: exit %d (%v)", GetExitCode(err), err)
	}
}

func TestPollExitCodes(t *testing.T) {
	root := isolate(t)

	res := runCLI(t, root, "", "poll", "erin", "--max-iterations", "1", "--delay", "0s")
	if GetExitCode(res.err) != ExitNotFound {
		t.Fatalf("poll without inbox: exit %d (%v)", GetExitCode(res.err), res.err)
	}
	if !strings.HasPrefix(res.err.Error(), "Inbox directory not found: ") {
		t.Fatalf("unexpected error: %q", res.err.Error())
	}

	if res := runCLI(t, root, "", "register", "erin"); res.err != nil {
		t.Fatalf("register: %v", res.err)
	}
	res = runCLI(t, root, "", "poll", "erin", "--max-iterations", "2", "--delay", "0s", "--watch=false")
	if GetExitCode(res.err) != ExitTimeout {
		t.Fatalf("empty poll: exit %d (%v)", GetExitCode(res.err), res.err)
	}
	if !strings.HasSuffix(res.stdout, "No unread messages found after 2 iterations\n") {
		t.Fatalf("empty poll output: %q", res.stdout)
	}

	res = runCLI(t, root, "", "poll", "erin", "--max-iterations", "0")
	if GetExitCode(res.err) != ExitUsage {
		t.Fatalf("max-iterations 0: exit %d (%v)", GetExitCode(res.err), res.err)
	}

	if res := runCLI(t, root, "", "send", "--from", "frank", "--to", "erin", "--subject", "hi", "--body", "ping"); res.err != nil {
		t.Fatalf("send: %v", res.err)
	}
	res = runCLI(t, root, "", "poll", "erin", "--max-iterations", "1", "--delay", "0s", "--json")
	if res.err != nil {
		t.Fatalf("poll: %v", res.err)
	}
	var got poll.Result
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("decode poll json: %v", err)
	}
	if !got.Found || got.Attempt != 1 || !strings.Contains(got.Content, "ping") {
		t.Fatalf("unexpected poll result: %+v", got)
	}
}

func TestInvalidNameIsUsageError(t *testing.T) {
	root := isolate(t)
	res := runCLI(t, root, "", "register", "bad name")
	if GetExitCode(res.err) != ExitUsage {
		t.Fatalf("exit %d (%v)", GetExitCode(res.err), res.err)
	}
	want := "Agent name 'bad name' is invalid. Must contain only alphanumeric characters, underscores, or hyphens."
	if res.err.Error() != want {
		t.Fatalf("error = %q", res.err.Error())
	}
}

func TestMarkReadOutsideRoot(t *testing.T) {
	root := isolate(t)
	if res := runCLI(t, root, "", "register", "gina"); res.err != nil {
		t.Fatalf("register: %v", res.err)
	}
	outside := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := runCLI(t, root, "", "mark-read", outside)
	if GetExitCode(res.err) != ExitUsage {
		t.Fatalf("exit %d (%v)", GetExitCode(res.err), res.err)
	}
	if !strings.HasPrefix(res.err.Error(), "Message path must be within ") {
		t.Fatalf("error = %q", res.err.Error())
	}
	if fileExists(outside + ".seen") {
		t.Fatalf("marker written outside root")
	}
}

func TestCleanup(t *testing.T) {
	root := isolate(t)
	if res := runCLI(t, root, "", "register", "hank"); res.err != nil {
		t.Fatalf("register: %v", res.err)
	}
	stale := filepath.Join(root, "hank", ".note.md.tmp-1")
	if err := os.WriteFile(stale, []byte("partial"), 0o600); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	res := runCLI(t, root, "", "cleanup", "--older-than", "0s")
	if GetExitCode(res.err) != ExitUsage {
		t.Fatalf("zero duration: exit %d (%v)", GetExitCode(res.err), res.err)
	}

	res = runCLI(t, root, "", "cleanup", "--older-than", "24h", "--dry-run")
	if res.err != nil {
		t.Fatalf("dry run: %v", res.err)
	}
	if !strings.HasPrefix(res.stdout, "Would remove 1 tmp file(s).") || !fileExists(stale) {
		t.Fatalf("dry run output %q", res.stdout)
	}

	res = runCLI(t, root, "n\n", "cleanup", "--older-than", "24h")
	if !strings.HasSuffix(res.stdout, "Aborted.\n") || !fileExists(stale) {
		t.Fatalf("declined prompt output %q", res.stdout)
	}

	res = runCLI(t, root, "", "cleanup", "--older-than", "24h", "--yes")
	if res.err != nil {
		t.Fatalf("cleanup: %v", res.err)
	}
	if res.stdout != "Removed 1 tmp file(s).\n" {
		t.Fatalf("cleanup output %q", res.stdout)
	}
	if fileExists(stale) {
		t.Fatalf("tmp file still present")
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	cmd := NewRootCmd("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if out.String() != "1.2.3\n" {
		t.Fatalf("version output %q", out.String())
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
