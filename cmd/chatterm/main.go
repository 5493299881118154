package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/codefionn/chatterm/internal/cli"
	"github.com/codefionn/chatterm/internal/config"
	"github.com/codefionn/chatterm/internal/eventbus"
	"github.com/codefionn/chatterm/internal/logger"
	"github.com/codefionn/chatterm/internal/pprof"
	"github.com/codefionn/chatterm/internal/socketclient"
	"github.com/codefionn/chatterm/internal/tui"
)

var (
	configFile string
	serverURL  string
	username   string
	logLevel   string
	plainMode  bool

	profiling pprof.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatterm",
	Short: "Terminal client for a websocket chat relay",
	Long: `chatterm joins a websocket chat relay under a display name, shows who is
online and lets you send and read messages.

When stdout is a terminal a full-screen interface is started. Otherwise, or
with --plain, lines read from stdin are sent as messages and incoming
messages are printed one per line.

Settings are read from the config file, then CHATTERM_* environment
variables, then flags.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", config.GetConfigPath(), "Configuration file (JSON)")
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "", "Relay URL (ws:// or wss://)")
	rootCmd.Flags().StringVarP(&username, "name", "n", "", "Display name, skips the login screen")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, none)")
	rootCmd.Flags().BoolVar(&plainMode, "plain", false, "Line-oriented mode even on a terminal")

	rootCmd.Flags().StringVar(&profiling.HTTPAddr, "pprof-addr", "", "Serve /debug/pprof/ on this address")
	rootCmd.Flags().StringVar(&profiling.CPUProfile, "cpuprofile", "", "Write a CPU profile to this file")
	rootCmd.Flags().StringVar(&profiling.HeapProfile, "memprofile", "", "Write a heap profile to this file on exit")
	rootCmd.Flags().StringVar(&profiling.GoroutineProfile, "goroutineprofile", "", "Write a goroutine profile to this file on exit")
	_ = rootCmd.Flags().MarkHidden("goroutineprofile")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("server") {
		cfg.ServerURL = strings.TrimSpace(serverURL)
	}
	if cmd.Flags().Changed("name") {
		cfg.Username = strings.TrimSpace(username)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func socketConfig(cfg *config.Config) *socketclient.Config {
	sc := socketclient.DefaultConfig()
	sc.URL = cfg.ServerURL
	sc.SendBuffer = cfg.SendBuffer
	sc.HandshakeTimeout = time.Duration(cfg.HandshakeTimeout)
	sc.ReconnectEnabled = cfg.Reconnect.Enabled
	sc.MaxReconnectAttempts = cfg.Reconnect.MaxAttempts
	sc.ReconnectDelay = time.Duration(cfg.Reconnect.Delay)
	sc.ReconnectMaxDelay = time.Duration(cfg.Reconnect.MaxDelay)
	return sc
}

func run(cmd *cobra.Command) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	logger.Info("chatterm starting")
	logger.Debug("Configuration loaded: server=%s log_level=%s log_path=%s", cfg.ServerURL, cfg.LogLevel, cfg.LogPath)

	if profiling.Enabled() {
		profiler := pprof.NewHandler(profiling)
		if err := profiler.Start(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
		defer func() {
			if stopErr := profiler.Stop(); stopErr != nil {
				logger.Warn("Failed to write profiles: %v", stopErr)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	levelPinned := cmd.Flags().Changed("log-level")
	if watchErr := config.Watch(ctx, configFile, func(updated *config.Config) {
		if levelPinned {
			return
		}
		logger.Global().SetLevel(logger.ParseLevel(updated.LogLevel))
		logger.Info("log level set to %s", updated.LogLevel)
	}); watchErr != nil {
		logger.Warn("config reload disabled: %v", watchErr)
	}

	bus := eventbus.New()
	client, err := socketclient.NewClient(socketConfig(cfg), bus, logger.NewSlogLogger(logger.Global().WithPrefix("socket")))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("Failed to close socket cleanly: %v", closeErr)
		}
		stats := bus.Stats()
		logger.Debug("event bus: published=%d delivered=%d dropped=%d", stats.Published, stats.Delivered, stats.Dropped)
	}()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.ServerURL, err)
	}

	if plainMode || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runCLI(ctx, cfg, client, bus)
	}
	return runTUI(ctx, cfg, client, bus)
}

func runCLI(ctx context.Context, cfg *config.Config, client *socketclient.Client, bus *eventbus.Bus) error {
	if cfg.Username == "" {
		return errors.New("a display name is required in plain mode (--name or CHATTERM_USERNAME)")
	}
	logger.Info("Running in plain mode as %s", cfg.Username)

	runner, err := cli.New(cli.Options{
		Username:       cfg.Username,
		AvatarTemplate: cfg.AvatarTemplate,
		StrictProtocol: cfg.StrictProtocol,
		Sender:         client,
		Bus:            bus,
		In:             os.Stdin,
		Out:            os.Stdout,
		Color:          !color.NoColor,
	})
	if err != nil {
		return fmt.Errorf("failed to create CLI runner: %w", err)
	}

	client.SetStateChangedCallback(func(state socketclient.ConnectionState, err error) {
		runner.ConnectionState(state.String(), err)
	})
	client.SetReconnectedCallback(runner.Reconnected)

	return runner.Run(ctx)
}

func runTUI(ctx context.Context, cfg *config.Config, client *socketclient.Client, bus *eventbus.Bus) error {
	model := tui.New(tui.Options{
		Username:       cfg.Username,
		ServerURL:      cfg.ServerURL,
		AvatarTemplate: cfg.AvatarTemplate,
		StrictProtocol: cfg.StrictProtocol,
		Sender:         client,
		Bus:            bus,
	})

	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion())
	model.SetProgram(program)

	client.SetStateChangedCallback(func(state socketclient.ConnectionState, err error) {
		program.Send(tui.ConnStateMsg{State: state.String(), Err: err})
	})
	client.SetReconnectedCallback(func() {
		program.Send(tui.ReconnectedMsg{})
	})
	model.Update(tui.ConnStateMsg{State: client.GetState().String()})

	_, err := program.Run()
	// Deliveries block on program.Send, so the bus subscription is only torn
	// down once the event loop has stopped.
	model.Close()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
