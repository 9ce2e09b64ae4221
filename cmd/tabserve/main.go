// Copyright 2025 The tabserve Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the tabserve completion server and its CLI.

tabserve keeps incremental text completion engines for the input fields of a
client process. The client types, tabserve completes: auto-completion of the
longest unambiguous prefix, shell style listing on a repeated query, popup
lists, rotation through the matches and weighted ranking.

# Usage

Start the msgpack server on stdin/stdout:

	tabserve

Seed every session with word lists and enable debug logging:

	tabserve --dict words.txt --dict commands.txt -d

Try the engine interactively:

	tabserve cli

# Configuration

The config file lives in the user config dir (or --config, or TABSERVE_CONFIG
from the environment or a .env file) and is created with defaults when
missing:

	[completion]
	mode = "auto"
	order = "insertion"
	ignore_case = false
	sounds = true

	[server]
	max_query = 256
	max_sessions = 64
	max_items = 100000

	[dict]
	files = ["words.txt"]

	[store]
	enabled = true
	path = "lists.db"

# Word lists

One item per line, optionally followed by ":weight". Blank lines and lines
starting with '#' are skipped.

	kate:12
	konqueror
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/bastiangx/tabserve/internal/cli"
	"github.com/bastiangx/tabserve/internal/logger"
	"github.com/bastiangx/tabserve/internal/utils"
	"github.com/bastiangx/tabserve/pkg/completion"
	"github.com/bastiangx/tabserve/pkg/config"
	"github.com/bastiangx/tabserve/pkg/dictionary"
	"github.com/bastiangx/tabserve/pkg/server"
	"github.com/bastiangx/tabserve/pkg/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	AppName = "tabserve"
	gh      = "https://github.com/bastiangx/tabserve"
)

var (
	configPath string
	dictFiles  []string
	debugMode  bool
	noStore    bool
)

// app is what every command needs after startup.
type app struct {
	cfg      *config.Config
	resolver *utils.PathResolver
	usedPath string
}

// sigHandler cancels the returned context on SIGINT or SIGTERM.
func sigHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-c:
			fmt.Fprintf(os.Stderr, "\nExiting...\n")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	ctx, cancel := sigHandler()
	defer cancel()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Incremental text completion over msgpack IPC",
		Long: `tabserve completes text for the input fields of a client process.

Without a subcommand it serves msgpack requests on stdin and answers on stdout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("TABSERVE_CONFIG"), "Path to a config file")
	rootCmd.PersistentFlags().StringArrayVar(&dictFiles, "dict", nil, "Word list to seed sessions with (repeatable, adds to config)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", envBool("TABSERVE_DEBUG"), "Toggle debug mode")
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "Disable the SQLite list store")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(cliCmd(a))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err)
		os.Exit(1)
	}
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve msgpack requests on stdin/stdout (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func cliCmd(a *app) *cobra.Command {
	var mode, order string
	var ignoreCase bool

	cmd := &cobra.Command{
		Use:   "cli",
		Short: "Try the completion engine interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "" {
				a.cfg.Completion.Mode = mode
			}
			if order != "" {
				a.cfg.Completion.Order = order
			}
			if cmd.Flags().Changed("ignore-case") {
				a.cfg.Completion.IgnoreCase = ignoreCase
			}
			return a.cli(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Completion mode (none, auto, manual, shell, popup, popup-auto)")
	cmd.Flags().StringVar(&order, "order", "", "Match order (insertion, sorted, weighted)")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "Match case-insensitively")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			showVersion()
		},
	}
}

func (a *app) init(cmd *cobra.Command) error {
	logger.Setup(debugMode)

	resolver, err := utils.NewPathResolver()
	if err != nil {
		log.Warnf("Failed to initialize path resolver: %v. Using builtin defaults...", err)
	}
	a.resolver = resolver

	cfg, used, err := config.LoadConfigWithPriority(configPath, resolver)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg, a.usedPath = cfg, used
	log.Debugf("Using config file: (%s)", utils.GetAbsolutePath(used))
	return nil
}

// loadDictionary reads the configured word lists plus the --dict ones.
func (a *app) loadDictionary(ctx context.Context) (*dictionary.List, error) {
	sources := append(append([]string{}, a.cfg.Dict.Files...), dictFiles...)
	var paths []string
	for _, p := range sources {
		resolved := p
		if a.resolver != nil {
			r, err := a.resolver.ResolveFile(p)
			if err != nil {
				return nil, fmt.Errorf("word list %s: %w", p, err)
			}
			resolved = r
		}
		paths = append(paths, resolved)
	}
	if len(paths) == 0 {
		log.Warn("No word lists configured, sessions start empty")
		return nil, nil
	}
	return dictionary.LoadFiles(ctx, paths)
}

// openStore opens the list store unless it is disabled.
func (a *app) openStore() (*store.Store, error) {
	if noStore || !a.cfg.Store.Enabled {
		return nil, nil
	}
	path := a.cfg.Store.Path
	if a.resolver != nil {
		path = a.resolver.ResolveDataPath(path)
	}
	log.Debugf("Using list store at: %s", path)
	return store.Open(path)
}

func (a *app) serve(ctx context.Context) error {
	dict, err := a.loadDictionary(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	srv := server.NewServer(a.cfg, dict, st, os.Stdin, os.Stdout)
	showStartupInfo(dict, a.usedPath)

	log.Debug("spawning IPC")
	return srv.Serve(ctx)
}

func (a *app) cli(ctx context.Context) error {
	dict, err := a.loadDictionary(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	engine := completion.New(a.cfg.Options()...)
	if dict != nil {
		if max := a.cfg.Server.MaxItems; max > 0 && dict.Len() > max {
			log.Warnf("Dictionary has %d entries, keeping the first %d", dict.Len(), max)
			dict.Truncate(max)
		}
		if err := engine.InsertItems(dict.Strings(engine.Order() == completion.Weighted)); err != nil {
			log.Warnf("Some dictionary entries were rejected: %v", err)
		}
	}

	log.SetReportTimestamp(false)
	handler := cli.NewInputHandler(engine, st, os.Stdin, os.Stdout, a.cfg.CLI.ShowWeights, a.cfg.CLI.MaxListed)
	return handler.Start(ctx)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func showVersion() {
	l := logger.NewWithConfig(os.Stderr, "", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ tabserve ] Incremental completion for your input fields")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dict *dictionary.List, usedConfig string) {
	l := logger.NewWithConfig(os.Stderr, "", log.InfoLevel, false, debugMode, log.TextFormatter)

	words := 0
	if dict != nil {
		words = dict.Len()
	}
	l.Infof("Version: %s", Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("config: ( %s )", utils.GetAbsolutePath(usedConfig))
	l.Infof("dictionary: %s entries", utils.FormatWithCommas(uint(words)))
	l.Info("status: ready")
}
