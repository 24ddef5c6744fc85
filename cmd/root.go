package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/daemon"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/internal/notify"
	"github.com/danielolaszy/handoff/internal/tracker"
)

// Version is set at build time.
var Version = "dev"

var (
	// newService connects to the configured tracker. Tests replace it.
	newService = tracker.New

	// exitFunc terminates the process on a forced shutdown. Tests replace it.
	exitFunc = os.Exit
)

// ExitError asks main to exit with Code without printing a fatal summary.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "handoff",
		Short: "Handoff claims task-labelled issues for an automation agent",
		Long: `Handoff polls an issue tracker for open issues carrying the task label,
picks the newest one that has not been handed off yet, posts the handoff comment
and adds the doing label. It runs once, or repeatedly in daemon mode.

Examples:
  handoff              # Run once
  handoff --daemon     # Run in daemon mode
  handoff -d -i 600    # Run daemon with 10-minute interval`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &UsageError{Err: fmt.Errorf("unknown argument: %s", args[0])}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetupFromEnvironment(cmd.ErrOrStderr()); err != nil {
				logging.Warn("could not open log file", "error", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
		RunE:    runAutomation,
		Version: Version,
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.Flags().BoolP("daemon", "d", false, "Run in daemon mode (continuous monitoring)")
	rootCmd.Flags().Float64P("interval", "i", 0, "Daemon interval in seconds (default: 300)")
	rootCmd.Flags().StringP("output", "o", automation.OutputText, "Summary format: text, yaml or json")

	rootCmd.AddCommand(newLabelsCmd())
	rootCmd.AddCommand(newReleaseCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the configuration named by the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	logging.Info("loading configuration")
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	logging.Info("configuration loaded successfully",
		"tracker", cfg.Tracker,
		"repository", cfg.RepositoryName(),
		"token", logging.MaskSensitive(cfg.Token()))
	return cfg, nil
}

func runAutomation(cmd *cobra.Command, args []string) error {
	daemonFlag, err := cmd.Flags().GetBool("daemon")
	if err != nil {
		return err
	}
	intervalSec, err := cmd.Flags().GetFloat64("interval")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("interval") {
		if intervalSec <= 0 {
			return &UsageError{Err: errors.New("invalid interval value, please provide a positive number of seconds")}
		}
		if intervalSec*1000 > float64(config.MaxDaemonIntervalMs) {
			return &UsageError{Err: fmt.Errorf("invalid interval value, must not exceed %d seconds", config.MaxDaemonIntervalMs/1000)}
		}
	}
	if _, err := automation.FormatResult(automation.RunResult{}, output); err != nil {
		return &UsageError{Err: err}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Flags override the environment
	if daemonFlag {
		cfg.Daemon.Enabled = true
	}
	if cmd.Flags().Changed("interval") {
		cfg.Daemon.IntervalMs = int(intervalSec * 1000)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	service, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	var opts []automation.Option
	if notifier := notify.NewSlack(cfg.Slack); notifier != nil {
		opts = append(opts, automation.WithNotifier(notifier))
	}
	runner := automation.NewRunner(service, cfg, opts...)

	out := cmd.OutOrStdout()

	if cfg.Daemon.Enabled {
		sigCh := make(chan os.Signal, 2)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		defer signal.Stop(sigCh)

		return runDaemon(ctx, runner, cfg.Daemon.Interval(), sigCh, out, output)
	}

	result := runner.Run(ctx)
	printResult(out, result, output)
	if !result.Success {
		return &ExitError{Code: 1, Err: errors.New(result.Message)}
	}
	return nil
}

// runDaemon runs the scheduler until the first signal on sigCh and shuts it down
// gracefully. A second signal before shutdown completes exits the process with code 1.
func runDaemon(ctx context.Context, runner daemon.Runner, interval time.Duration, sigCh <-chan os.Signal, out io.Writer, format string) error {
	scheduler := daemon.New(runner, interval, func(result automation.RunResult) {
		printResult(out, result, format)
	})

	logging.Info("press Ctrl+C to stop gracefully", "interval_seconds", interval.Seconds())
	go watchSignals(sigCh, scheduler)

	return scheduler.Start(ctx)
}

func watchSignals(sigCh <-chan os.Signal, scheduler *daemon.Scheduler) {
	for {
		select {
		case sig := <-sigCh:
			if scheduler.Shutdown() {
				logging.Info("received signal, shutting down gracefully", "signal", sig.String())
				continue
			}
			logging.Warn("force shutdown", "signal", sig.String())
			exitFunc(1)
			return
		case <-scheduler.Done():
			return
		}
	}
}

func printResult(out io.Writer, result automation.RunResult, format string) {
	text, err := automation.FormatResult(result, format)
	if err != nil {
		logging.Error("failed to format result", "error", err)
		text = result.Summary()
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, text)
}
