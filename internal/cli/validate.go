package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gonogo/internal/rig"
)

// RigSummary describes a valid rig profile.
type RigSummary struct {
	Name         string `json:"name"`
	Source       string `json:"source"`
	Trigger      string `json:"trigger"`
	Status       string `json:"status"`
	Actuation    string `json:"actuation"`
	PollInterval string `json:"poll_interval"`
	MaxPolls     int    `json:"max_polls"`
	Timeout      string `json:"timeout"`
}

func (s RigSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ rig %s is valid (%s)\n", s.Name, s.Source)
	fmt.Fprintf(&b, "  trigger:   %s\n", s.Trigger)
	fmt.Fprintf(&b, "  status:    %s\n", s.Status)
	fmt.Fprintf(&b, "  actuation: %s\n", s.Actuation)
	fmt.Fprintf(&b, "  poll:      every %s, max %d polls, timeout %s", s.PollInterval, s.MaxPolls, s.Timeout)
	return b.String()
}

// ValidationDetails locates a rig error in its source.
type ValidationDetails struct {
	Field  string `json:"field"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [rig.cue]",
		Short: "Validate a rig profile",
		Long: `Compile a rig profile against the rig schema and check its wiring.

Every bit must be in range, bits sharing a register must be distinct, the poll
interval must be positive and at least one of max_polls or timeout must bound
a trial. Without an argument the --rig profile (or the reference rig) is
validated.

Exit codes:
  0 - Profile is valid
  1 - Profile is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Rig
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var profile *rig.Profile
	if path == "" {
		p := rig.Default()
		profile = &p
	} else {
		formatter.VerboseLog("compiling %s", path)
		p, err := rig.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("rig file not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "rig file not found", err)
		}
		if err != nil {
			return outputRigError(formatter, err)
		}
		profile = p
	}

	if err := profile.Validate(); err != nil {
		return outputRigError(formatter, err)
	}

	source := profile.Source
	if source == "" {
		source = "built-in"
	}
	w := profile.Wiring
	return formatter.Success(RigSummary{
		Name:         profile.Name,
		Source:       source,
		Trigger:      fmt.Sprintf("%s start bit %d, reset bit %d", w.TriggerAddr, w.StartBit, w.ResetBit),
		Status:       fmt.Sprintf("%s response bit %d, done bit %d", w.StatusAddr, w.ResponseBit, w.DoneBit),
		Actuation:    fmt.Sprintf("%s reward bit %d, punishment bit %d", w.ActuationAddr, w.RewardBit, w.PunishmentBit),
		PollInterval: profile.PollInterval.String(),
		MaxPolls:     profile.MaxPolls,
		Timeout:      profile.Timeout.String(),
	})
}

func outputRigError(formatter *OutputFormatter, err error) error {
	var details *ValidationDetails
	var ce *rig.CompileError
	if errors.As(err, &ce) {
		details = &ValidationDetails{Field: ce.Field}
		if ce.Pos.IsValid() {
			details.File = ce.Pos.Filename()
			details.Line = ce.Pos.Line()
			details.Column = ce.Pos.Column()
		}
	}
	if details != nil {
		_ = formatter.Error(ErrCodeRigInvalid, err.Error(), details)
	} else {
		_ = formatter.Error(ErrCodeRigInvalid, err.Error(), nil)
	}
	return WrapExitError(ExitFailure, "rig profile is invalid", err)
}
