package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// Session owns the per-session state directory (pid files, logs) and the
// teardown of every process started under it. One session, one directory,
// no sharing: concurrent sessions against the same service ports are not
// supported, so no locking is needed.
type Session struct {
	ID  string
	Dir string

	mu      sync.Mutex
	handles []*Handle
	once    sync.Once
}

// StateDir returns the private per-user state directory:
// $XDG_STATE_HOME/vibe-local, falling back to ~/.local/state.
func StateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "vibe-local")
}

// NewSession creates the session directory with restrictive permissions.
func NewSession() (*Session, error) {
	base := StateDir()
	if base == "" {
		return nil, fmt.Errorf("cannot determine state directory")
	}

	id := ulid.Make().String()
	dir := filepath.Join(base, "session_"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &Session{ID: id, Dir: dir}, nil
}

// PidFile returns the pid file path for a named service in this session.
func (s *Session) PidFile(name string) string {
	return filepath.Join(s.Dir, name+".pid")
}

// LogFile returns the log file path for a named service in this session.
func (s *Session) LogFile(name string) string {
	return filepath.Join(s.Dir, name+".log")
}

// LauncherLog returns the launcher's own log file path.
func (s *Session) LauncherLog() string {
	return filepath.Join(s.Dir, "launcher.log")
}

// Track registers a handle for teardown. Handles with PID 0 (services
// that were already running) are tracked but never terminated: this
// session did not start them, so it does not own them.
func (s *Session) Track(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles = append(s.handles, h)
}

// Teardown terminates every process this session spawned and removes its
// pid files. Safe to call from a deferred path and a signal handler at
// once; the work runs exactly once regardless of how the session ends.
// Termination is best effort, but the attempt is mandatory.
func (s *Session) Teardown() {
	s.once.Do(func() {
		s.mu.Lock()
		handles := s.handles
		s.mu.Unlock()

		for _, h := range handles {
			if h.PID > 0 {
				if proc, err := os.FindProcess(h.PID); err == nil {
					log.Debug().Str("service", h.Spec.Name).Int("pid", h.PID).Msg("terminating")
					_ = proc.Signal(syscall.SIGTERM)
				}
			}
			if h.Spec.PidFile != "" {
				_ = os.Remove(h.Spec.PidFile)
			}
		}

		// Give SIGTERM a moment to land before the parent exits.
		if len(handles) > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	})
}
