package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSupervisor() *Supervisor {
	return NewWithPolicy(200*time.Millisecond, PollPolicy{Attempts: 3, Interval: 10 * time.Millisecond})
}

func TestEnsure_HealthyServiceIsNotSpawned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := Spec{
		Name: "svc",
		URL:  srv.URL,
		// a command that would be visible if it ran
		Command: "touch",
		Args:    []string{filepath.Join(dir, "spawned")},
		PidFile: filepath.Join(dir, "svc.pid"),
		LogFile: filepath.Join(dir, "svc.log"),
	}

	handle, err := fastSupervisor().Ensure(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, StateHealthy, handle.State)
	assert.Equal(t, 0, handle.PID)

	_, statErr := os.Stat(filepath.Join(dir, "spawned"))
	assert.True(t, os.IsNotExist(statErr), "healthy service must not be spawned again")
}

func TestEnsure_Idempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sv := fastSupervisor()
	spec := Spec{Name: "svc", URL: srv.URL}

	for i := 0; i < 3; i++ {
		handle, err := sv.Ensure(context.Background(), spec)
		require.NoError(t, err)
		assert.Equal(t, StateHealthy, handle.State)
	}
}

func TestEnsure_NonOKProbeIsUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := Spec{
		Name:    "svc",
		URL:     srv.URL,
		Command: "true", // exits immediately, never becomes healthy
		PidFile: filepath.Join(dir, "svc.pid"),
		LogFile: filepath.Join(dir, "svc.log"),
	}

	handle, err := fastSupervisor().Ensure(context.Background(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStartTimeout)
	assert.Equal(t, StateFailed, handle.State)
	// the error names the log file for diagnosis
	assert.Contains(t, err.Error(), spec.LogFile)
}

func TestEnsure_SpawnWritesPidFile(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{
		Name:    "svc",
		URL:     "http://127.0.0.1:1", // nothing listens here
		Command: "sleep",
		Args:    []string{"5"},
		PidFile: filepath.Join(dir, "svc.pid"),
		LogFile: filepath.Join(dir, "svc.log"),
	}

	handle, err := fastSupervisor().Ensure(context.Background(), spec)
	require.Error(t, err)
	assert.Greater(t, handle.PID, 0)

	data, readErr := os.ReadFile(spec.PidFile)
	require.NoError(t, readErr)
	assert.NotEmpty(t, data)

	// clean up the spawned sleep
	if proc, findErr := os.FindProcess(handle.PID); findErr == nil {
		_ = proc.Kill()
	}
}

func TestEnsure_MissingCommandFails(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{
		Name:    "svc",
		URL:     "http://127.0.0.1:1",
		Command: filepath.Join(dir, "no-such-binary"),
		PidFile: filepath.Join(dir, "svc.pid"),
		LogFile: filepath.Join(dir, "svc.log"),
	}

	handle, err := fastSupervisor().Ensure(context.Background(), spec)
	require.Error(t, err)
	assert.Equal(t, StateFailed, handle.State)
	assert.Equal(t, 0, handle.PID)
}

func TestReapStalePidFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("removes file with dead pid", func(t *testing.T) {
		path := filepath.Join(dir, "dead.pid")
		// a pid that is almost certainly unused
		require.NoError(t, os.WriteFile(path, []byte("999999\n"), 0o600))

		reapStalePidFile(path)

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("removes malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.pid")
		require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o600))

		reapStalePidFile(path)

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("tolerates missing file", func(t *testing.T) {
		reapStalePidFile(filepath.Join(dir, "absent.pid"))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "healthy", StateHealthy.String())
	assert.Equal(t, "unreachable", StateUnreachable.String())
	assert.Equal(t, "failed", StateFailed.String())
}
