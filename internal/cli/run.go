package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gonogo/internal/hardware"
	"github.com/roach88/gonogo/internal/rig"
	"github.com/roach88/gonogo/internal/stimulus"
	"github.com/roach88/gonogo/internal/stimulus/miniaudio"
	"github.com/roach88/gonogo/internal/trial"
)

// SimOptions are the simulated-module flags shared by run and console.
type SimOptions struct {
	RespondAfter int
	Window       int
	Audio        string // stimulus directory; empty uses the rig's stimuli.dir
}

func (s *SimOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&s.RespondAfter, "respond-after", 0, "simulated response on the N-th status read (0: none; default from rig)")
	cmd.Flags().IntVar(&s.Window, "window", 0, "status reads before the window closes (default from rig)")
	cmd.Flags().StringVar(&s.Audio, "audio", "", "play stimuli from this directory through the default audio device (default from rig stimuli.dir)")
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	SimOptions
	Type string
}

// RunReport is the result of one headless trial.
type RunReport struct {
	Trial       int64  `json:"trial"`
	Session     string `json:"session"`
	Type        string `json:"type"`
	Outcome     string `json:"outcome,omitempty"`
	Message     string `json:"message,omitempty"`
	Code        string `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
	Polls       int    `json:"polls"`
	Duration    string `json:"duration"`
	Rewards     int    `json:"rewards"`
	Punishments int    `json:"punishments"`
}

func (r RunReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trial %d (%s) session %s\n", r.Trial, strings.ToUpper(r.Type), r.Session)
	if r.Error != "" {
		fmt.Fprintf(&b, "  error:    %s\n", r.Error)
	} else {
		fmt.Fprintf(&b, "  outcome:  %s\n", r.Outcome)
		fmt.Fprintf(&b, "  %s\n", r.Message)
	}
	fmt.Fprintf(&b, "  polls:    %d (%s)\n", r.Polls, r.Duration)
	fmt.Fprintf(&b, "  reward lines: %d, punishment lines: %d", r.Rewards, r.Punishments)
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trial on the simulated module",
		Long: `Run a single go/no-go trial headlessly on the in-process module simulator.

The status register is polled at the rig's poll interval until the response
window closes or the poll budget runs out. Ctrl-C aborts the trial: no reward
or punishment is delivered and the module is re-armed.

Exit codes:
  0 - Trial completed with an outcome
  1 - Trial ended in error (timeout, abort, hardware failure)
  2 - Command error (bad flags, rig or audio unavailable)

Examples:
  gonogo run --type go --respond-after 3
  gonogo run --type no-go --window 12 --format json
  gonogo run --rig booth.cue --audio ./stimuli`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrial(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "go", "trial type (go|no-go)")
	opts.addFlags(cmd)

	return cmd
}

func runTrial(opts *RunOptions, cmd *cobra.Command) error {
	logger := opts.logger()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	typ, err := trial.ParseType(opts.Type)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --type", err)
	}

	profile, err := loadProfile(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rig", err)
	}
	formatter.VerboseLog("rig %s: poll every %s, max %d polls", profile.Name, profile.PollInterval, profile.MaxPolls)

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
	if err := sim.Ready(ctx); err != nil {
		return WrapExitError(ExitCommandError, "module not ready", err)
	}

	var report *trial.Report
	listener := trial.ListenerFunc(func(r trial.Report) { report = &r })
	seq, err := trial.New(sim, player, listener, append(profile.TrialOptions(), trial.WithLogger(logger))...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create sequencer", err)
	}

	if _, err := seq.Start(ctx, typ); err != nil {
		_ = formatter.Error(ErrCodeTrialFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to start trial", err)
	}

	pollUntilReport(ctx, seq, profile.PollInterval, logger, func() bool { return report != nil })

	out := newRunReport(*report, sim.State())
	if err := formatter.Result(out, !report.OK(), ErrCodeTrialFailed, out.Error); err != nil {
		return err
	}
	if !report.OK() {
		return WrapExitError(ExitFailure, "trial failed", report.Err)
	}
	return nil
}

// pollUntilReport serializes Poll and Abort on the calling goroutine until
// done reports true. SIGINT/SIGTERM and ctx cancellation abort the trial.
func pollUntilReport(ctx context.Context, seq *trial.Sequencer, interval time.Duration, logger *slog.Logger, done func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctxDone := ctx.Done()
	for !done() {
		select {
		case <-ticker.C:
			seq.Poll(ctx)
		case sig := <-sigCh:
			logger.Warn("received signal, aborting trial", "signal", sig.String())
			_ = seq.Abort(context.WithoutCancel(ctx), "interrupted by "+sig.String())
		case <-ctxDone:
			ctxDone = nil
			_ = seq.Abort(context.WithoutCancel(ctx), "context cancelled")
			ctx = context.WithoutCancel(ctx)
		}
	}
}

func newRunReport(r trial.Report, sim hardware.SimState) RunReport {
	out := RunReport{
		Trial:       r.Trial.ID,
		Session:     r.Trial.Session,
		Type:        r.Trial.Type.String(),
		Polls:       r.Trial.Polls,
		Duration:    r.Duration.String(),
		Rewards:     sim.Rewards,
		Punishments: sim.Punishments,
	}
	if r.OK() {
		out.Outcome = r.Outcome.String()
		out.Message = r.Outcome.Message()
	} else {
		out.Code = string(trial.CodeOf(r.Err))
		out.Error = r.Err.Error()
	}
	return out
}

// newSimulator applies rig simulator defaults, then any flags the user set.
func newSimulator(cmd *cobra.Command, s *SimOptions, profile *rig.Profile, logger *slog.Logger) *hardware.Simulator {
	window := profile.SimWindow
	if s.Window > 0 {
		window = s.Window
	}
	respondAfter := profile.SimRespondAfter
	if cmd.Flags().Changed("respond-after") {
		respondAfter = s.RespondAfter
	}
	return hardware.NewSimulator(profile.Wiring,
		hardware.WithWindow(window),
		hardware.WithRespondAfter(respondAfter),
		hardware.WithSimLogger(logger),
	)
}

// newPlayer opens the audio device for dir, falling back to the rig's
// stimuli.dir. Without either it returns a silent player.
func newPlayer(dir string, profile *rig.Profile, logger *slog.Logger) (trial.StimulusPlayer, func(), error) {
	if dir == "" {
		dir = profile.StimulusDir
	}
	if dir == "" {
		return stimulus.Silent{Logger: logger}, func() {}, nil
	}

	bank, err := stimulus.LoadBank(dir, profile.Stimuli)
	if err != nil {
		return nil, nil, err
	}
	p, err := miniaudio.NewPlayer(bank, miniaudio.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error("error closing audio device", "error", err)
		}
	}, nil
}
