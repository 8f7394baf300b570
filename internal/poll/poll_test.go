package poll

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avivsinai/a2a-mailbox/internal/clock"
	"github.com/avivsinai/a2a-mailbox/internal/fsq"
	"github.com/avivsinai/a2a-mailbox/internal/mailbox"
)

var epoch = time.Date(2025, 12, 24, 15, 2, 33, 0, time.UTC)

func setup(t *testing.T, agent string) (*mailbox.Mailbox, *clock.Fake) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "a2a")
	if agent != "" {
		if _, err := fsq.EnsureAgentDir(root, agent); err != nil {
			t.Fatalf("EnsureAgentDir: %v", err)
		}
	}
	clk := clock.NewFake(epoch)
	return mailbox.New(root, mailbox.WithClock(clk)), clk
}

func TestPollEmptyInboxExhaustsAttempts(t *testing.T) {
	mb, clk := setup(t, "carol")
	p := New(mb, WithClock(clk))

	res, err := p.Poll(context.Background(), "carol", 3, 0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Found {
		t.Fatalf("unexpected message: %+v", res)
	}
	if res.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", res.Attempts)
	}
	if got := len(clk.Waits()); got != 2 {
		t.Fatalf("waited %d times, want 2", got)
	}
}

func TestPollFindsMessageInjectedBeforeSecondAttempt(t *testing.T) {
	mb, clk := setup(t, "carol")
	var sent mailbox.Delivery
	clk.OnAfter = func(time.Duration) {
		if sent.Path != "" {
			return
		}
		d, err := mb.Send("alice", "carol", "wake up", false, "hello carol")
		if err != nil {
			t.Errorf("Send: %v", err)
		}
		sent = d
	}
	p := New(mb, WithClock(clk))

	res, err := p.Poll(context.Background(), "carol", 3, 0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !res.Found || res.Attempt != 2 || res.Attempts != 2 {
		t.Fatalf("result = %+v, want found on attempt 2", res)
	}
	if res.Path != sent.Path {
		t.Fatalf("Path = %s, want %s", res.Path, sent.Path)
	}
	if res.Content != string(sent.Message.Marshal()) {
		t.Fatalf("Content = %q", res.Content)
	}
	if mailbox.IsRead(res.Path) {
		t.Fatalf("poll must not mark the message read")
	}
}

func TestPollSkipsReadMessages(t *testing.T) {
	mb, clk := setup(t, "carol")
	first, err := mb.Send("alice", "carol", "one", false, "1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	clk.After(time.Second)
	second, err := mb.Send("alice", "carol", "two", false, "2")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := mb.MarkRead(first.Path); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	res, err := New(mb, WithClock(clk)).Poll(context.Background(), "carol", 1, 0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !res.Found || res.Path != second.Path || res.Attempt != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestPollArgumentErrors(t *testing.T) {
	mb, clk := setup(t, "carol")
	p := New(mb, WithClock(clk))
	ctx := context.Background()

	tests := []struct {
		name  string
		agent string
		iters int
		delay time.Duration
		want  error
	}{
		{"zero iterations", "carol", 0, 0, ErrInvalidArgument},
		{"negative delay", "carol", 1, -time.Second, ErrInvalidArgument},
		{"invalid name", "car ol", 1, 0, fsq.ErrInvalidName},
		{"no inbox", "dave", 1, 0, mailbox.ErrInboxNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Poll(ctx, tc.agent, tc.iters, tc.delay); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPollCancelled(t *testing.T) {
	mb, clk := setup(t, "carol")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(mb, WithClock(clk)).Poll(ctx, "carol", 5, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestPollWatchWakesEarly(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a2a")
	if _, err := fsq.EnsureAgentDir(root, "carol"); err != nil {
		t.Fatalf("EnsureAgentDir: %v", err)
	}
	mb := mailbox.New(root)
	p := New(mb, WithWatch(true))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		time.Sleep(100 * time.Millisecond)
		// A read marker or temp file must not end the wait on its own.
		_ = os.WriteFile(filepath.Join(root, "carol", ".staged.tmp-1"), nil, 0o644)
		if _, err := mb.Send("alice", "carol", "hi", false, "body"); err != nil {
			t.Errorf("Send: %v", err)
		}
	}()

	start := time.Now()
	res, err := p.Poll(ctx, "carol", 2, time.Hour)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !res.Found || res.Attempt != 2 {
		t.Fatalf("result = %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("watch did not wake poll early (%s)", elapsed)
	}
}

func TestPollWakeForReadMessageKeepsWaiting(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a2a")
	if _, err := fsq.EnsureAgentDir(root, "dana"); err != nil {
		t.Fatalf("EnsureAgentDir: %v", err)
	}
	p := New(mailbox.New(root), WithWatch(true))

	const delay = 400 * time.Millisecond
	go func() {
		time.Sleep(50 * time.Millisecond)
		msg := filepath.Join(root, "dana", "20251224-150233-handled.md")
		// Marked read before it appears, as another consumer would leave it.
		_ = os.WriteFile(fsq.SeenPath(msg), nil, 0o644)
		_ = os.WriteFile(msg, []byte("done"), 0o644)
	}()

	start := time.Now()
	res, err := p.Poll(context.Background(), "dana", 2, delay)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Found {
		t.Fatalf("read message reported: %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", res.Attempts)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("wake-up for a read message cut the wait short (%s < %s)", elapsed, delay)
	}
}
