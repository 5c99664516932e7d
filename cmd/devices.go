package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/smazurov/peqlink/internal/peq"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var flags deviceFlags

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached devices",
		Long:  `Enumerates devices on one transport and shows the capability the registry resolves for each.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			e, err := flags.setup()
			if err != nil {
				fail(cmd, err)
			}
			defer e.orch.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			found, err := e.orch.Candidates(ctx, peq.TransportKind(flags.transport))
			if err != nil {
				fail(cmd, err)
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices found")
				return
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tVENDOR\tMODEL\tFILTERS\tSLOTS\tSTATUS")
			for _, c := range found {
				status := "supported"
				switch {
				case !c.Supported:
					status = "unsupported"
				case c.Capability.Experimental:
					status = "experimental"
				case !c.Known:
					status = "vendor defaults"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					c.Path, c.Vendor, c.Capability.Model, c.Capability.MaxFilters, len(c.Capability.AvailableSlots), status)
			}
			tw.Flush()
		},
	}
	flags.register(cmd, false)
	return cmd
}
