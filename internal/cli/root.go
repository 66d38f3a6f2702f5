package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the oasderef CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oasderef",
		Short:         "Resolve $ref references in Swagger/OpenAPI documents",
		Long:          "oasderef inlines #/components/schemas references in Swagger/OpenAPI documents, marks circular references instead of looping, and prints compact schema summaries.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetFlagErrorFunc(flagErrorFunc)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("log-format", "", "Log format on stderr (text|json)")

	for _, sub := range []*cobra.Command{
		newResolveCmd(),
		newSchemasCmd(),
		newInspectCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagErrorFunc)
		cmd.AddCommand(sub)
	}

	return cmd
}

// flagErrorFunc turns cobra flag errors (like unknown flags) into usage
// errors that carry the command's help text.
func flagErrorFunc(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}
