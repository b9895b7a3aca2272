// Package main is the entry point for the vibe-local launcher.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kn1cht/vibe-local/internal/tui"
)

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/vibe-local/.env first
	configEnv := filepath.Join(homeDir, ".config", "vibe-local", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	// Handle subcommands first (before flags)
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "proxy":
			// Run the translation proxy in the foreground
			runProxyCommand(os.Args[2:])
			return
		case "version", "-v", "--version":
			PrintVersion()
			return
		case "help", "-h", "--help":
			printHelp()
			return
		}
	}

	// Default: stand up the session and hand off to the agent
	os.Exit(runLaunch(os.Args[1:]))
}

func printHelp() {
	tui.PrintBanner()
	fmt.Println(`Usage: vibe-local [options] [-- agent-args...]

Stands up a Claude Code session backed by a local model (default) or
the cloud API (with --auto, when the API is reachable).

Options:
  --auto              probe the cloud API; use it when reachable
  --model <id>        model identifier (overrides config and auto-select)
  -y, --yes           skip the unattended-mode prompt (grants consent)
  -p <prompt>         run one prompt non-interactively and exit
  -c, --config <path> config file (default: ~/.config/vibe-local/config)
  -d, --debug         verbose logging
  -h, --help          show this help
  --                  pass everything after to the agent unchanged

Subcommands:
  proxy               run the Anthropic-to-Ollama translation proxy
  version             print version
  help                show this help`)
}
