// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// talia-chat is a terminal client for the Tal-IA webchat. It keeps one
// chat session per machine (the session id is persisted in the
// configured store), renders the conversation with the assistant and
// human operators, and polls the server for messages that arrive
// outside the visitor's own turns.
//
// Two modes of operation:
//
// Interactive (default): a full-screen TUI. Losing terminal focus
// counts as the page being hidden: polling stops, and after the idle
// timeout the session is closed and reopened.
//
// Headless (--headless): reads one message per stdin line and prints
// every reply and operator message to stdout as "role: content".
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/talia-ai/webchat/lib/chatui"
	"github.com/talia-ai/webchat/lib/config"
	"github.com/talia-ai/webchat/lib/kvstore"
	"github.com/talia-ai/webchat/lib/process"
	"github.com/talia-ai/webchat/lib/tui"
	"github.com/talia-ai/webchat/lib/version"
	"github.com/talia-ai/webchat/webchat"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath string
	envFile    string
	serverURL  string
	headless   bool
	logOutput  string
	verbose    bool
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("talia-chat", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flagSet.StringVar(&opts.serverURL, "server", "", "server URL, overriding server_url from the config")
	flagSet.BoolVar(&opts.headless, "headless", false, "read messages from stdin and print replies to stdout")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("talia-chat")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return &process.Exit{Code: 2, Message: err.Error()}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return &process.Exit{Code: 2, Message: "unexpected argument: " + args[0]}
	}

	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", opts.envFile, err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	baseURL, err := cfg.ResolveAPIBaseURL()
	if err != nil {
		return err
	}

	if opts.headless {
		logger := newCommandLogger(opts.verbose)
		return runHeadless(context.Background(), cfg, baseURL, logger, os.Stdin, os.Stdout)
	}
	return runInteractive(cfg, baseURL, opts)
}

// loadConfig reads the config named by --config or the environment
// variable, or falls back to the defaults, then validates it.
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvironmentVariable)
	}
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Parse(nil, "yaml")
	}
	if err != nil {
		return nil, err
	}
	if opts.serverURL != "" {
		cfg.ServerURL = opts.serverURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newBackend builds the HTTP client and opens the session store.
func newBackend(ctx context.Context, cfg *config.Config, baseURL string, logger *slog.Logger) (*webchat.Client, kvstore.Store, error) {
	client, err := webchat.NewClient(webchat.ClientConfig{
		BaseURL:       baseURL,
		Logger:        logger,
		CloseTimeout:  cfg.CloseTimeout,
		DisableBeacon: !cfg.Beacon,
	})
	if err != nil {
		return nil, nil, err
	}
	store, err := kvstore.Open(ctx, kvstore.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Redis: kvstore.RedisConfig{
			Addr: cfg.Storage.RedisAddr,
			DB:   cfg.Storage.RedisDB,
		},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s session store: %w", cfg.Storage.Driver, err)
	}
	return client, store, nil
}

func runInteractive(cfg *config.Config, baseURL string, opts options) error {
	tuiHandler := chatui.NewLogHandler(slog.LevelWarn)
	var logger *slog.Logger
	if opts.logOutput != "" {
		fileHandler, closeFile, err := openFileLogHandler(opts.logOutput, opts.verbose)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", opts.logOutput, err)
		}
		defer closeFile()
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}

	ctx := context.Background()
	client, store, err := newBackend(ctx, cfg, baseURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	view := chatui.NewView(tui.DefaultTheme)
	session := newSession(sessionConfig{
		Config:  cfg,
		Backend: client,
		Store:   store,
		View:    view,
		Logger:  logger,
	})
	if err := session.Start(ctx); err != nil {
		return err
	}

	model := chatui.NewModel(session, view, tui.DefaultTheme)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	tuiHandler.SetProgram(program)

	_, runErr := program.Run()
	tuiHandler.SetProgram(nil)

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.CloseTimeout+time.Second)
	defer cancel()
	if err := session.Close(shutdownCtx); err != nil {
		logger.Warn("closing chat session", "error", err)
	}
	if err := client.Shutdown(shutdownCtx); err != nil {
		logger.Warn("waiting for closure notice", "error", err)
	}
	return runErr
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `talia-chat: terminal client for the Tal-IA webchat.

The session id is kept in the configured store, so restarting the
client resumes the same conversation.

Usage:
  talia-chat [flags]

Examples:
  # Chat against a local mock backend
  talia-webchat-mock &
  talia-chat --server http://127.0.0.1:8080

  # Pipe a question through the assistant
  echo "¿Cuál es el horario?" | talia-chat --headless --config webchat.yaml

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
