package cmd

import (
	"os"

	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/spf13/cobra"
)

// CreateRegistryCmd creates the registry command.
func CreateRegistryCmd() *cobra.Command {
	var overrides string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the device registry",
		Long:  `Prints the built-in capability catalogue, merged with --overrides when given, in the override file format.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text", Output: os.Stderr})
			reg, err := registry.NewWithOverrides(overrides)
			if err != nil {
				fail(cmd, err)
			}
			data, err := registry.EncodeTOML(reg.Catalog())
			if err != nil {
				fail(cmd, err)
			}
			cmd.OutOrStdout().Write(data)
		},
	}
	cmd.Flags().StringVar(&overrides, "overrides", "", "Registry override file")
	return cmd
}
