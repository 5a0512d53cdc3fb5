package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gonogo/internal/harness"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the scenario JSON Schema",
		Long: `Print the JSON Schema of scenario files, for editor completion and
validation of scenario YAML.

The schema is printed as-is regardless of --format.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := harness.SchemaJSON()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render schema", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
