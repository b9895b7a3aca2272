package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kn1cht/vibe-local/internal/config"
	"github.com/kn1cht/vibe-local/internal/monitoring"
	"github.com/kn1cht/vibe-local/internal/proxy"
)

// runProxyCommand runs the translation proxy in the foreground. The
// launcher spawns this as a background collaborator process, but it
// works equally well standalone for debugging.
func runProxyCommand(args []string) {
	var (
		portFlag        string
		runtimeHostFlag string
		configFlag      string
		debugFlag       bool
	)

	i := 0
	for i < len(args) {
		switch args[i] {
		case "--port":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --port requires a value")
				os.Exit(1)
			}
			portFlag = args[i+1]
			i += 2
		case "--runtime-host":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --runtime-host requires a value")
				os.Exit(1)
			}
			runtimeHostFlag = args[i+1]
			i += 2
		case "-c", "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --config requires a value")
				os.Exit(1)
			}
			configFlag = args[i+1]
			i += 2
		case "-d", "--debug":
			debugFlag = true
			i++
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown option: %s\n", args[i])
			os.Exit(1)
		}
	}

	loadEnvFiles()

	configPath := configFlag
	if configPath == "" {
		configPath = config.Path()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var ov config.Overrides
	if portFlag != "" {
		port, err := strconv.Atoi(portFlag)
		if err != nil || port <= 0 || port > 65535 {
			fmt.Fprintf(os.Stderr, "Error: invalid port '%s'\n", portFlag)
			os.Exit(1)
		}
		ov.ProxyPort = port
	}
	ov.RuntimeHost = runtimeHostFlag
	cfg = cfg.Resolve(ov)

	settings, err := config.LoadProxySettings(config.ProxySettingsPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := "info"
	if debugFlag {
		level = "debug"
	}
	loggerCfg := monitoring.LoggerConfig{Level: level, Format: "json", Output: "stderr"}
	monitoring.Global(loggerCfg)
	logger := monitoring.New(loggerCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := proxy.New(cfg, settings, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("proxy exited")
		os.Exit(1)
	}
}
