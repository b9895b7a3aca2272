// Package sysinfo detects the host environment the launcher runs on.
//
// Detection is a pure query: one pass over stable facts (OS family, CPU
// architecture, physical memory), no retries.
package sysinfo

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// ErrUnsupportedEnvironment is returned for OS/architecture combinations
// the local model runtime cannot serve.
var ErrUnsupportedEnvironment = errors.New("unsupported environment")

// Env describes the detected host.
type Env struct {
	OS       string // "linux" or "darwin"
	Arch     string // "amd64" or "arm64"
	MemoryGB int    // physical memory, rounded down to whole GiB
}

func (e Env) String() string {
	return fmt.Sprintf("%s/%s %dGB", e.OS, e.Arch, e.MemoryGB)
}

// Detect queries the operating system once and returns the host facts.
// Unrecognized OS or architecture combinations fail with
// ErrUnsupportedEnvironment.
func Detect() (Env, error) {
	env := Env{OS: runtime.GOOS, Arch: runtime.GOARCH}

	switch env.OS {
	case "linux", "darwin":
	default:
		return Env{}, fmt.Errorf("%w: OS %q", ErrUnsupportedEnvironment, env.OS)
	}
	switch env.Arch {
	case "amd64", "arm64":
	default:
		return Env{}, fmt.Errorf("%w: architecture %q", ErrUnsupportedEnvironment, env.Arch)
	}

	memBytes, err := totalMemoryBytes(env.OS)
	if err != nil {
		return Env{}, fmt.Errorf("%w: %v", ErrUnsupportedEnvironment, err)
	}
	env.MemoryGB = int(memBytes / (1 << 30))

	return env, nil
}

// totalMemoryBytes reads physical memory size for the given OS.
func totalMemoryBytes(goos string) (int64, error) {
	switch goos {
	case "linux":
		data, err := os.ReadFile("/proc/meminfo")
		if err != nil {
			return 0, fmt.Errorf("failed to read /proc/meminfo: %w", err)
		}
		return parseMemInfo(string(data))
	case "darwin":
		out, err := exec.Command("sysctl", "-n", "hw.memsize").Output()
		if err != nil {
			return 0, fmt.Errorf("sysctl hw.memsize failed: %w", err)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unexpected sysctl output: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("no memory probe for OS %q", goos)
	}
}

// parseMemInfo extracts MemTotal from /proc/meminfo content.
// The value is reported in kB.
func parseMemInfo(content string) (int64, error) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed MemTotal line %q: %w", line, err)
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("MemTotal not found in meminfo")
}
