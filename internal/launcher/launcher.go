// Package launcher assembles the final environment and arguments for the
// interactive agent process and hands control over to it.
package launcher

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
)

// Mode is the execution mode decided once per session.
type Mode int

const (
	// ModeLocal routes the agent through the local translation proxy.
	ModeLocal Mode = iota
	// ModeRemote lets the agent use its default cloud configuration.
	ModeRemote
)

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

// AgentCommand is the downstream agent binary.
const AgentCommand = "claude"

// PlaceholderAPIKey satisfies the agent's credential check in local mode.
// The proxy performs no cloud authentication, so any value works.
const PlaceholderAPIKey = "vibe-local-placeholder"

// Environment variables recognized by the agent.
const (
	EnvBaseURL = "ANTHROPIC_BASE_URL"
	EnvAPIKey  = "ANTHROPIC_API_KEY"
)

// UnattendedFlag enables the agent's unattended tool-execution mode.
const UnattendedFlag = "--dangerously-skip-permissions"

// Params collects everything the handoff needs.
type Params struct {
	Mode            Mode
	Model           string   // resolved model id; used in local mode only
	ProxyURL        string   // local proxy base URL; used in local mode only
	SkipPermissions bool     // append UnattendedFlag (requires granted permission)
	OneShotPrompt   string   // non-empty runs the agent with -p <prompt>
	Passthrough     []string // user arguments forwarded unchanged
}

// BuildEnv returns the environment for the agent process. In local mode
// the endpoint override and placeholder credential are set; in remote
// mode base is returned untouched so the agent uses its own cloud
// configuration.
func BuildEnv(base []string, p Params) []string {
	if p.Mode == ModeRemote {
		return base
	}

	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		if strings.HasPrefix(kv, EnvBaseURL+"=") || strings.HasPrefix(kv, EnvAPIKey+"=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, EnvBaseURL+"="+p.ProxyURL)
	env = append(env, EnvAPIKey+"="+PlaceholderAPIKey)
	return env
}

// BuildArgs returns the agent's argument list. Passthrough arguments are
// always appended last, unchanged.
func BuildArgs(p Params) []string {
	var args []string

	if p.Mode == ModeLocal {
		args = append(args, "--model", p.Model)
		if p.SkipPermissions {
			args = append(args, UnattendedFlag)
		}
	}

	if p.OneShotPrompt != "" {
		args = append(args, "-p", p.OneShotPrompt)
	}

	args = append(args, p.Passthrough...)
	return args
}

// Run hands control to the agent process and blocks until it exits,
// returning its exit code. The parent swallows SIGINT/SIGTERM while the
// agent runs: Ctrl+C belongs to the agent, and killing the parent would
// tear the proxy out from under it. Registered teardown still runs once
// the agent returns.
func Run(p Params) (int, error) {
	// #nosec G204 -- args are assembled above from validated inputs
	cmd := exec.Command(AgentCommand, BuildArgs(p)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = BuildEnv(os.Environ(), p)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	}()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}
