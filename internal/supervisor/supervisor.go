// Package supervisor guarantees that a named HTTP service is reachable,
// starting it as a detached background process if it is not.
//
// DESIGN: ensure() is idempotent - an already-healthy service is never
// spawned again. A failed start is reported, not retried: respawning a
// service that will not come up only compounds resource pressure.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrStartTimeout is returned when a spawned service never answers its
// health probe within the bounded attempt count.
var ErrStartTimeout = errors.New("service did not become healthy")

// State tracks a supervised service through its lifecycle.
type State int

const (
	StateUnknown State = iota
	StateStarting
	StateHealthy
	StateUnreachable
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateHealthy:
		return "healthy"
	case StateUnreachable:
		return "unreachable"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Spec describes a service the supervisor must make reachable.
type Spec struct {
	Name       string   // short name for logs and file naming
	URL        string   // base URL the service listens on
	HealthPath string   // probe path; empty means "/"
	Command    string   // executable to spawn when unreachable
	Args       []string // arguments for Command
	PidFile    string   // where the spawned process ID is persisted
	LogFile    string   // where the spawned process output goes
}

func (s Spec) probeURL() string {
	path := s.HealthPath
	if path == "" {
		path = "/"
	}
	return strings.TrimRight(s.URL, "/") + path
}

// Handle records the outcome of an ensure call. It is owned by the
// session that created it and is never shared across sessions.
type Handle struct {
	Spec  Spec
	PID   int // 0 when the service was already running
	State State
}

// Supervisor starts and health-checks background services.
type Supervisor struct {
	probeTimeout time.Duration
	poll         PollPolicy
}

// New creates a Supervisor with the default probe timeout and poll policy.
func New() *Supervisor {
	return &Supervisor{
		probeTimeout: 2 * time.Second,
		poll:         DefaultPollPolicy(),
	}
}

// NewWithPolicy creates a Supervisor with a custom poll policy. Used by
// tests to shrink the wait loop.
func NewWithPolicy(probeTimeout time.Duration, poll PollPolicy) *Supervisor {
	return &Supervisor{probeTimeout: probeTimeout, poll: poll}
}

// Ensure makes the service described by spec reachable and returns its
// handle. Exactly one spawn happens per call, and none at all when the
// service already answers its health probe.
func (sv *Supervisor) Ensure(ctx context.Context, spec Spec) (*Handle, error) {
	handle := &Handle{Spec: spec, State: StateUnknown}

	// Already running (possibly from a previous session, or managed by
	// the user directly). Nothing to do.
	if sv.probe(ctx, spec) {
		handle.State = StateHealthy
		log.Debug().Str("service", spec.Name).Str("url", spec.URL).Msg("already reachable")
		return handle, nil
	}
	handle.State = StateUnreachable

	// A pid file left over from a crashed session references a process
	// that may still hold the port. Best effort: kill and forget.
	reapStalePidFile(spec.PidFile)

	pid, err := sv.spawn(spec)
	if err != nil {
		handle.State = StateFailed
		return handle, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}
	handle.PID = pid
	handle.State = StateStarting
	log.Info().Str("service", spec.Name).Int("pid", pid).Str("log", spec.LogFile).Msg("service started")

	if !Poll(ctx, sv.poll, func(ctx context.Context) bool {
		return sv.probe(ctx, spec)
	}) {
		handle.State = StateFailed
		return handle, fmt.Errorf("%w: %s after %d attempts, check log: %s",
			ErrStartTimeout, spec.Name, sv.poll.Attempts, spec.LogFile)
	}

	handle.State = StateHealthy
	return handle, nil
}

// probe performs a single bounded health check against the service URL.
func (sv *Supervisor) probe(ctx context.Context, spec Spec) bool {
	reqCtx, cancel := context.WithTimeout(ctx, sv.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, spec.probeURL(), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// spawn starts the service as a detached background process with its
// output redirected to the private log file, and persists the pid
// immediately so teardown can always find it.
func (sv *Supervisor) spawn(spec Spec) (int, error) {
	logFile, err := os.OpenFile(spec.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	// #nosec G204 -- command and args come from the launcher, not user input
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	// New session so the service survives independent of our terminal
	// and does not receive our Ctrl+C.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(spec.PidFile, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		// The process is up but untracked; kill it rather than leak it.
		_ = cmd.Process.Kill()
		return 0, fmt.Errorf("failed to write pid file: %w", err)
	}

	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// reapStalePidFile terminates the process referenced by a leftover pid
// file and removes the file. All failures are ignored: the file may be
// empty, the process long gone, or owned by someone else.
func reapStalePidFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid > 1 {
		if proc, err := os.FindProcess(pid); err == nil {
			// Signal 0 probes liveness without affecting the process.
			if proc.Signal(syscall.Signal(0)) == nil {
				log.Warn().Int("pid", pid).Str("pid_file", path).Msg("terminating stale process")
				_ = proc.Signal(syscall.SIGTERM)
			}
		}
	}

	_ = os.Remove(path)
}
