package lockfile

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if got := pidFromLockInfo(string(data)); got != os.Getpid() {
		t.Errorf("lock file pid = %d, want %d", got, os.Getpid())
	}
}

func TestAcquireCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("state directory not created: %v", err)
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir)
	if err == nil {
		second.Release()
		t.Fatal("second Acquire should fail while the first lock is held")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "another PostPipe instance") || !strings.Contains(msg, lockErr.Path) {
		t.Errorf("unhelpful error message: %s", msg)
	}
	if !strings.Contains(lockErr.Holder, fmt.Sprintf("pid %d (running)", os.Getpid())) {
		t.Errorf("holder should name this process, got %q", lockErr.Holder)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err = %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("re-Acquire after release: %v", err)
	}
	again.Release()
}

func TestPIDFromLockInfo(t *testing.T) {
	tests := []struct {
		info string
		want int
	}{
		{"pid=1234\n", 1234},
		{"pid=42\nstarted=2025-10-01T00:00:00Z\n", 42},
		{"started=x\npid=7\n", 7},
		{"pid=abc\n", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := pidFromLockInfo(tt.info); got != tt.want {
			t.Errorf("pidFromLockInfo(%q) = %d, want %d", tt.info, got, tt.want)
		}
	}
}

func TestDescribeHolderStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	// PIDs above the kernel maximum never exist.
	if err := os.WriteFile(path, []byte("pid=99999999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := describeHolder(path); got != "pid 99999999 (not running)" {
		t.Errorf("describeHolder = %q", got)
	}
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestAcquireLogsFailures(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	logs := captureLogs(t)
	if _, err := Acquire(dir); err == nil {
		t.Fatal("second Acquire should fail")
	}
	out := logs.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "state directory is locked") || !strings.Contains(out, first.Path()) {
		t.Errorf("lock conflict not logged as an error: %s", out)
	}

	logs.Reset()
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Acquire(filepath.Join(blocker, "state")); err == nil {
		t.Fatal("Acquire under a regular file should fail")
	}
	if !strings.Contains(logs.String(), "failed to create state directory") {
		t.Errorf("directory failure not logged: %s", logs.String())
	}
}
