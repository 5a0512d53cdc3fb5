package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gonogo/internal/console"
)

// ConsoleOptions holds flags for the console command.
type ConsoleOptions struct {
	*RootOptions
	SimOptions
	LogFile string
}

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConsoleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive operator console on the simulated module",
		Long: `Open the operator console.

Keys:
  tab    toggle GO / NO-GO
  enter  run a trial
  space  inject a subject response
  a      abort the running trial
  q      quit

The console owns the terminal, so logs are discarded unless --log-file is set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "append logs to this file")

	return cmd
}

func runConsole(opts *ConsoleOptions, cmd *cobra.Command) error {
	logger := discardLogger()
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open log file", err)
		}
		defer f.Close()
		logger, err = newLogger(f, opts.Format, opts.LogLevel, opts.Verbose)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid log level", err)
		}
	}

	profile, err := loadProfile(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rig", err)
	}

	sim := newSimulator(cmd, &opts.SimOptions, profile, logger)
	defer sim.Close()

	player, closePlayer, err := newPlayer(opts.Audio, profile, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open audio", err)
	}
	defer closePlayer()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := console.New(ctx, console.Config{
		Profile:   *profile,
		Simulator: sim,
		Player:    player,
		Logger:    logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start console", err)
	}

	logger.Info("console started", slog.String("rig", profile.Name))
	if err := console.Run(ctx, m); err != nil {
		return WrapExitError(ExitFailure, "console error", err)
	}
	return nil
}
