// Package lockfile guards a PostPipe state directory against concurrent use.
//
// The lock is an flock on a file inside the directory, so the kernel drops it
// when the holding process exits, however it exits.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the lock file created in the state directory.
const LockFileName = "postpipe.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock on stateDir, creating the directory if
// needed. It fails immediately with a *LockError when another process
// holds the lock.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("lockfile.Acquire: failed to create state directory", "stateDir", stateDir, "error", err)
		return nil, fmt.Errorf("create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		slog.Error("lockfile.Acquire: failed to open lock file", "lockPath", path, "error", err)
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := describeHolder(path)
		slog.Error("lockfile.Acquire: state directory is locked", "lockPath", path, "holder", holder, "error", err)
		return nil, &LockError{Path: path, Holder: holder, Err: err}
	}

	info := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := writeLockInfo(file, info); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		slog.Error("lockfile.Acquire: failed to write lock file", "lockPath", path, "error", err)
		return nil, fmt.Errorf("write lock file %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		slog.Warn("lockfile.Acquire: sync failed", "lockPath", path, "error", err)
	}

	slog.Info("lockfile.Acquire: state directory locked", "lockPath", path, "pid", os.Getpid())
	return &Lock{file: file, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and removes the lock file. Calling it more than once is harmless.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lock.Release: failed to remove lock file", "lockPath", l.path, "error", err)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Lock.Release: failed to unlock", "lockPath", l.path, "error", err)
	}
	err := l.file.Close()
	l.file = nil
	slog.Debug("Lock.Release: state directory unlocked", "lockPath", l.path)
	if err != nil {
		return fmt.Errorf("close lock file %s: %w", l.path, err)
	}
	return nil
}

// writeLockInfo replaces the file contents with info. The file is truncated
// only after flock succeeds, leaving a holder's pid intact for rivals to read.
func writeLockInfo(f *os.File, info string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(info), 0)
	return err
}

// LockError reports that another process holds the state directory lock.
type LockError struct {
	Path   string
	Holder string // description of the holding process, if known
	Err    error
}

func (e *LockError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "another PostPipe instance is using this state directory (lock file %s)", e.Path)
	if e.Holder != "" {
		fmt.Fprintf(&sb, "; holder: %s", e.Holder)
	}
	fmt.Fprintf(&sb, ". If no other instance is running, remove %s and retry", e.Path)
	return sb.String()
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// describeHolder reads the pid recorded in the lock file and reports whether
// that process is still alive.
func describeHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	pid := pidFromLockInfo(string(data))
	if pid <= 0 {
		return strings.TrimSpace(string(data))
	}
	if processAlive(pid) {
		return fmt.Sprintf("pid %d (running)", pid)
	}
	return fmt.Sprintf("pid %d (not running)", pid)
}

// pidFromLockInfo extracts the value of the pid= line, or 0.
func pidFromLockInfo(info string) int {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "pid="); ok {
			if pid, err := strconv.Atoi(v); err == nil {
				return pid
			}
		}
	}
	return 0
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 performs the permission and existence checks only.
	return p.Signal(syscall.Signal(0)) == nil
}
