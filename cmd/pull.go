package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// CreatePullCmd creates the pull command.
func CreatePullCmd() *cobra.Command {
	var flags deviceFlags
	var slot int
	var out string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Read the filters stored on a device",
		Long:  `Connects to a device, reads the filters in one slot and prints them as TOML, or writes them to --out.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			e, err := flags.setup()
			if err != nil {
				fail(cmd, err)
			}
			defer e.orch.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			sess, err := flags.connect(ctx, e)
			if err != nil {
				fail(cmd, err)
			}
			if !cmd.Flags().Changed("slot") {
				if slot, err = sess.CurrentSlot(ctx); err != nil {
					fail(cmd, err)
				}
			}

			result, err := e.orch.Pull(ctx, slot)
			if err != nil {
				fail(cmd, err)
			}
			printWarnings(cmd.ErrOrStderr(), result.Warnings)

			data, err := toml.Marshal(result.Result.FilterSet)
			if err != nil {
				fail(cmd, err)
			}
			if out == "" {
				cmd.OutOrStdout().Write(data)
				return
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				fail(cmd, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d filters from slot %d to %s\n", len(result.Result.Filters), slot, out)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().IntVar(&slot, "slot", 0, "Slot to read, defaults to the active slot")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the filter set to this TOML file")
	return cmd
}
