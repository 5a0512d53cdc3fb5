package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
//
// Values are resolved through viper after flag parsing, so each one can also
// come from GONOGO_* environment variables (including a .env file) or from
// gonogo.yaml.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // config file path
	Rig      string // rig profile path, empty for the reference rig
	LogLevel string

	// Logger is configured in PersistentPreRunE.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gonogo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "gonogo",
		Short: "Go/no-go trial sequencer",
		Long: `gonogo runs go/no-go behavioural trials against a timed-response module.

A trial fires a start trigger, plays the GO or NO-GO stimulus, polls the
module's status register until the response window closes, then rewards or
punishes the subject and re-arms the module.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd, v)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "config file (default ./gonogo.yaml when present)")
	flags.StringVar(&opts.Rig, "rig", "", "rig profile (.cue); the reference wiring when empty")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewConsoleCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// resolve loads .env and the config file, then reads every global option
// back from viper and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command, v *viper.Viper) error {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return WrapExitError(ExitCommandError, "failed to load .env", err)
	}
	if err := readConfig(v); err != nil {
		return WrapExitError(ExitCommandError, "failed to read config", err)
	}

	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.Config = v.ConfigFileUsed()
	o.Rig = v.GetString("rig")
	o.LogLevel = v.GetString("log-level")

	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	logger, err := newLogger(cmd.ErrOrStderr(), o.Format, o.LogLevel, o.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	o.Logger = logger
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
