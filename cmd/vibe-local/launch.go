package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kn1cht/vibe-local/internal/config"
	"github.com/kn1cht/vibe-local/internal/launcher"
	"github.com/kn1cht/vibe-local/internal/model"
	"github.com/kn1cht/vibe-local/internal/monitoring"
	"github.com/kn1cht/vibe-local/internal/netcheck"
	"github.com/kn1cht/vibe-local/internal/ollama"
	"github.com/kn1cht/vibe-local/internal/permission"
	"github.com/kn1cht/vibe-local/internal/supervisor"
	"github.com/kn1cht/vibe-local/internal/sysinfo"
	"github.com/kn1cht/vibe-local/internal/tui"
)

// launchOptions holds the parsed launch command line.
type launchOptions struct {
	Auto        bool
	Model       string
	Yes         bool
	Prompt      string
	Config      string
	Debug       bool
	Passthrough []string
}

// parseLaunchArgs parses the launch flags. Everything after -- goes to
// the agent unchanged.
func parseLaunchArgs(args []string) (launchOptions, error) {
	var opts launchOptions

	i := 0
	for i < len(args) {
		switch args[i] {
		case "--auto":
			opts.Auto = true
			i++
		case "--model":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--model requires a value")
			}
			opts.Model = args[i+1]
			i += 2
		case "-y", "--yes":
			opts.Yes = true
			i++
		case "-p":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("-p requires a value")
			}
			opts.Prompt = args[i+1]
			i += 2
		case "-c", "--config":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--config requires a value")
			}
			opts.Config = args[i+1]
			i += 2
		case "-d", "--debug":
			opts.Debug = true
			i++
		case "--":
			opts.Passthrough = args[i+1:]
			return opts, nil
		default:
			return opts, fmt.Errorf("unknown option: %s", args[i])
		}
	}
	return opts, nil
}

// runLaunch stands up the session end to end and returns the process
// exit code. Teardown of everything this session started is guaranteed
// on every path out, including signals.
func runLaunch(args []string) int {
	opts, err := parseLaunchArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'vibe-local help' for usage.")
		return 1
	}

	loadEnvFiles()

	level := "info"
	if opts.Debug {
		level = "debug"
	}
	monitoring.Global(monitoring.LoggerConfig{Level: level, Format: "console", Output: "stderr"})

	tui.PrintBanner()

	configPath := opts.Config
	if configPath == "" {
		configPath = config.Path()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	cfg = cfg.Resolve(config.Overrides{Model: opts.Model})

	ctx := context.Background()

	// Mode decision. The network probe runs only when --auto asks for
	// it; the default is fully local.
	if opts.Auto {
		tui.PrintStep("Checking cloud API reachability")
		if netcheck.IsReachable(ctx, netcheck.DefaultProbeURL, netcheck.DefaultTimeout) {
			tui.PrintSuccess("Cloud API reachable, using remote mode")
			return runRemote(opts.Prompt, opts.Passthrough)
		}
		tui.PrintWarn("Cloud API unreachable, falling back to local mode")
	}

	return runLocal(ctx, cfg, opts)
}

// runRemote hands off to the agent untouched: no endpoint override, no
// local services.
func runRemote(prompt string, passthrough []string) int {
	code, err := launcher.Run(launcher.Params{
		Mode:          launcher.ModeRemote,
		OneShotPrompt: prompt,
		Passthrough:   passthrough,
	})
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to launch agent: %v", err))
		return 1
	}
	return code
}

// runLocal stands up the model runtime and translation proxy, then
// launches the agent against the proxy.
func runLocal(ctx context.Context, cfg config.Config, opts launchOptions) int {
	tui.PrintHeader("Local session")

	tui.PrintStep("Detecting environment")
	env, err := sysinfo.Detect()
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	tui.PrintInfo(env.String())

	modelID, err := model.Select(env.MemoryGB, cfg.Model)
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	tui.PrintInfo("Model: " + modelID)

	session, err := supervisor.NewSession()
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	defer session.Teardown()

	// Structured logs move to the session directory so the agent's
	// terminal stays clean; --debug keeps them on stderr.
	if !opts.Debug {
		monitoring.Global(monitoring.LoggerConfig{Level: "info", Format: "json", Output: session.LauncherLog()})
	}

	// Signals tear the session down before exiting. During the agent
	// run the launcher masks these, so this path fires only while the
	// services are still coming up.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		session.Teardown()
		os.Exit(1)
	}()

	sv := supervisor.New()

	tui.PrintStep("Ensuring model runtime")
	runtimeHandle, err := sv.Ensure(ctx, supervisor.Spec{
		Name:       "ollama",
		URL:        cfg.RuntimeHost,
		HealthPath: "/v1/models",
		Command:    "ollama",
		Args:       []string{"serve"},
		PidFile:    session.PidFile("ollama"),
		LogFile:    session.LogFile("ollama"),
	})
	if runtimeHandle != nil {
		session.Track(runtimeHandle)
	}
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	tui.PrintSuccess("Model runtime ready")

	tui.PrintStep("Verifying model")
	client := ollama.NewClient(cfg.RuntimeHost)
	if err := client.VerifyModel(ctx, modelID); err != nil {
		var absent *ollama.ModelAbsentError
		if errors.As(err, &absent) {
			tui.PrintError(fmt.Sprintf("model %q is not installed", absent.Model))
			if len(absent.Catalog) > 0 {
				tui.PrintInfo("Installed models:")
				for _, m := range absent.Catalog {
					fmt.Println("    " + m)
				}
			}
			tui.PrintInfo("Install it with: ollama pull " + absent.Model)
		} else {
			tui.PrintError(err.Error())
		}
		return 1
	}
	tui.PrintSuccess("Model available")

	tui.PrintStep("Ensuring translation proxy")
	exe, err := os.Executable()
	if err != nil {
		tui.PrintError(fmt.Sprintf("cannot locate own executable: %v", err))
		return 1
	}
	proxyHandle, err := sv.Ensure(ctx, supervisor.Spec{
		Name:    "proxy",
		URL:     cfg.ProxyURL(),
		Command: exe,
		Args: []string{"proxy",
			"--port", strconv.Itoa(cfg.ProxyPort),
			"--runtime-host", cfg.RuntimeHost,
		},
		PidFile: session.PidFile("proxy"),
		LogFile: session.LogFile("proxy"),
	})
	if proxyHandle != nil {
		session.Track(proxyHandle)
	}
	if err != nil {
		tui.PrintError(err.Error())
		return 1
	}
	tui.PrintSuccess("Translation proxy ready at " + cfg.ProxyURL())

	gate := permission.NewGate(os.Stdin, os.Stdout)
	gate.Interactive = tui.IsInteractive()
	decision := gate.Decide(opts.Yes)
	if decision.Granted {
		tui.PrintWarn("Unattended mode enabled: the agent will not ask before acting")
	}

	// From here on Ctrl+C belongs to the agent; the startup handler
	// must not fire anymore. Teardown still runs via the defer.
	signal.Stop(sigCh)

	tui.PrintStep("Launching agent")
	code, err := launcher.Run(launcher.Params{
		Mode:            launcher.ModeLocal,
		Model:           modelID,
		ProxyURL:        cfg.ProxyURL(),
		SkipPermissions: decision.Granted,
		OneShotPrompt:   opts.Prompt,
		Passthrough:     opts.Passthrough,
	})
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to launch agent: %v", err))
		return 1
	}
	return code
}
