// statusfeed keeps a single status line up to date and feeds it to a
// display program such as dzen2 or lemonbar, or to stdout.
//
// Each widget in the configuration is refreshed on its own interval; every
// refresh re-renders the whole line and writes it to the output.
//
// Usage:
//
//	statusfeed [flags]           run the feeder (same as "statusfeed run")
//	statusfeed once              print one line and exit
//	statusfeed check             validate the configuration
//	statusfeed version           print version information
//
// Flags:
//
//	-c, --config string    configuration file (default: $XDG_CONFIG_HOME/statusfeed/config.toml)
//	-o, --output string    display command, or "-" for stdout
//	-v, --verbose          enable debug logging
//	    --pid-file string  refuse to start while another feeder holds this file
//	    --watch            reload when the configuration file changes
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/statusfeed/pkg/config"
	"gitlab.com/tinyland/lab/statusfeed/pkg/daemon"
	"gitlab.com/tinyland/lab/statusfeed/pkg/sink"
)

// Version info set via ldflags at build time.
var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// cliOptions holds the flags shared by every subcommand.
type cliOptions struct {
	configPath string
	output     string
	verbose    bool
	pidFile    string
	watch      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "statusfeed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the feeder until interrupted",
		Long: `Build the widgets from the configuration, write the first line at once and
keep writing a new line whenever a widget refreshes.

SIGHUP reloads the widget list from the configuration file.

Examples:
  statusfeed run
  statusfeed run --output "dzen2 -ta r"
  statusfeed run --config ~/.config/statusfeed/bar.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeeder(cmd, opts)
		},
	}
	runCmd.Flags().StringVar(&opts.pidFile, "pid-file", "", "refuse to start while another feeder holds this file")
	runCmd.Flags().BoolVar(&opts.watch, "watch", false, "reload when the configuration file changes")

	root := &cobra.Command{
		Use:           "statusfeed",
		Short:         "Feed a status line to a display program",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCmd.RunE,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", `display command, or "-" for stdout`)
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().AddFlagSet(runCmd.Flags())

	root.AddCommand(
		runCmd,
		&cobra.Command{
			Use:   "once",
			Short: "Print a single status line to stdout and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return printOnce(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and report every problem",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return checkConfig(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "statusfeed %s (commit %s, built %s)\n", version, commit, date)
			},
		},
	)

	return root
}

// loadConfig reads the configuration named by --config, or searches the
// default locations, and applies --output.
func loadConfig(opts *cliOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	switch opts.output {
	case "":
	case "-", "stdout":
		cfg.Output.Command = config.CommandSpec{}
	default:
		cfg.Output.Command = config.CommandSpec{Shell: opts.output}
	}
	return cfg, nil
}

// newLogger writes to stderr and, when configured, also to the log file.
// The returned func closes the log file.
func newLogger(cfg *config.Config, verbose bool, stderr io.Writer) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	out, closeFn := stderr, func() {}
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(stderr, f)
		closeFn = func() { f.Close() }
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// openSink starts the configured display command, or writes to stdout when
// none is set.
func openSink(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) (sink.Sink, error) {
	cmdSpec := cfg.Output.Command
	if cmdSpec.IsZero() {
		return sink.NewWriter(stdout), nil
	}
	argv := cmdSpec.Argv
	if cmdSpec.Shell != "" {
		argv = sink.ShellArgv(cmdSpec.Shell)
	}
	return sink.StartCommand(ctx, argv, sink.WithLogger(logger))
}

func runFeeder(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, opts.verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	if opts.pidFile != "" {
		if err := daemon.AcquirePID(opts.pidFile); err != nil {
			return err
		}
		defer daemon.ReleasePID(opts.pidFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openSink(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	d, err := daemon.New(cfg, s, daemon.WithLogger(logger))
	if err != nil {
		s.Close()
		return err
	}

	logger.Info("starting statusfeed",
		"version", version,
		"config", cfg.Path,
		"output", cfg.Output.Command.String(),
		"widgets", len(cfg.Widgets),
	)
	go func() {
		if err := d.WatchReload(ctx, cfg.Path, opts.watch); err != nil {
			logger.Error("config watcher stopped", "error", err)
		}
	}()
	runErr := d.Run(ctx)
	stop()
	if err := s.Close(); err != nil {
		logger.Debug("output closed", "error", err)
	}

	if sink.IsBrokenPipe(runErr) {
		logger.Info("output closed by reader, exiting")
		return nil
	}
	if runErr != nil {
		logger.Error("statusfeed stopped", "error", runErr)
		return runErr
	}
	logger.Info("statusfeed stopped")
	return nil
}

func printOnce(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, opts.verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	d, err := daemon.New(cfg, sink.NewWriter(cmd.OutOrStdout()), daemon.WithLogger(logger))
	if err != nil {
		return err
	}
	return d.Once()
}

func checkConfig(cmd *cobra.Command, opts *cliOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	source := cfg.Path
	if source == "" {
		source = "built-in defaults"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "%s: invalid\n%v\n", source, err)
		return err
	}
	fmt.Fprintf(out, "%s: ok (%d widgets)\n", source, len(cfg.Widgets))
	return nil
}
