// Package cli defines the cobra commands for the ctfdojo binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"ctfdojo/internal/app"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

// options holds the persistent flags. Only flags the user actually set
// override the environment.
type options struct {
	envFile    string
	catalog    string
	catalogDir string
	dataDir    string
	logPath    string
	debug      bool
	seed       int64
	duration   int
	style      string
	motion     string
	mouse      string
	ascii      bool
	noStats    bool
	demo       string
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the TUI game.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ctfdojo",
		Short: "A timed capture-the-flag game in your terminal",
		Long: `ctfdojo drops you into a simulated shell with a ten minute clock.
List the challenges, read the hints and submit every flag before time runs out.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(opts.envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before reading CTFDOJO_* variables")
	pf.StringVar(&opts.catalog, "catalog", "", "Catalog id (dns or eggs)")
	pf.StringVar(&opts.catalogDir, "catalog-dir", "", "Directory of extra catalog YAML files")
	pf.StringVar(&opts.dataDir, "data-dir", "", "Directory holding the round history database")
	pf.StringVar(&opts.logPath, "log", "", "Append JSON event telemetry to this file")
	pf.BoolVar(&opts.debug, "debug", false, "Verbose UI logging on stderr")
	pf.Int64Var(&opts.seed, "seed", 0, "Seed for hint selection (0 picks one)")
	pf.IntVar(&opts.duration, "duration", 0, "Round length in seconds")
	pf.StringVar(&opts.style, "style", "", "UI style: modern_arcade, cozy_clean or retro_terminal")
	pf.StringVar(&opts.motion, "motion", "", "UI motion: full, reduced or off")
	pf.StringVar(&opts.mouse, "mouse", "", "Mouse capture: scoped, full or off")
	pf.BoolVar(&opts.ascii, "ascii", false, "Draw with ASCII only")
	pf.BoolVar(&opts.noStats, "no-stats", false, "Keep round history in memory only")

	root.AddCommand(
		newPlayCommand(opts),
		newServeCommand(opts),
		newCatalogsCommand(opts),
		newStatsCommand(opts),
		newDemoCommand(opts),
	)
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPlayCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a round in the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.demo, "demo", "", "Open on a staged demo scenario with the clock frozen")
	return cmd
}

func runPlay(cmd *cobra.Command, opts *options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return a.Run(ctx)
}

// resolveConfig layers flags over CTFDOJO_* variables over defaults and
// validates the result.
func resolveConfig(cmd *cobra.Command, opts *options) (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.Catalog = opts.catalog
	}
	if flags.Changed("catalog-dir") {
		cfg.CatalogDir = opts.catalogDir
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("log") {
		cfg.LogPath = opts.logPath
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("duration") {
		cfg.DurationSeconds = opts.duration
	}
	if flags.Changed("style") {
		cfg.UI.StyleVariant = opts.style
	}
	if flags.Changed("motion") {
		cfg.UI.MotionLevel = opts.motion
	}
	if flags.Changed("mouse") {
		cfg.UI.MouseScope = opts.mouse
	}
	if flags.Changed("ascii") {
		cfg.ASCIIOnly = opts.ascii
	}
	if flags.Changed("no-stats") {
		cfg.NoStats = opts.noStats
	}
	if flags.Lookup("demo") != nil && flags.Changed("demo") {
		cfg.DemoScenario = opts.demo
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadEnvFile reads a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
