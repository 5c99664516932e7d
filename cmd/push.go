package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/peqlink/internal/peq"
	"github.com/spf13/cobra"
)

// CreatePushCmd creates the push command.
func CreatePushCmd() *cobra.Command {
	var flags deviceFlags
	var slot int
	var in string
	var preamp float64

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write a filter set to a device",
		Long: `Reads a filter set from a TOML file, fits it to the connected device and writes it to a slot. ` +
			`The pre-amp is derived from the filters unless --preamp is given.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			data, err := os.ReadFile(in)
			if err != nil {
				fail(cmd, err)
			}
			var set peq.FilterSet
			if err := toml.Unmarshal(data, &set); err != nil {
				fail(cmd, fmt.Errorf("parse %s: %w", in, err))
			}

			e, err := flags.setup()
			if err != nil {
				fail(cmd, err)
			}
			defer e.orch.Close()
			if err := e.list.Replace(set); err != nil {
				fail(cmd, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			if _, err := flags.connect(ctx, e); err != nil {
				fail(cmd, err)
			}

			var gain *float64
			if cmd.Flags().Changed("preamp") {
				gain = &preamp
			}
			result, err := e.orch.Push(ctx, slot, gain)
			if err != nil {
				fail(cmd, err)
			}
			printWarnings(cmd.ErrOrStderr(), result.Warnings)
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d filters to slot %d with pre-amp %.1f dB\n", len(result.Filters), slot, result.Preamp)
			if result.DisconnectRequired {
				fmt.Fprintln(cmd.OutOrStdout(), "The device restarts to apply the new settings")
			}
		},
	}
	flags.register(cmd, true)
	cmd.Flags().IntVar(&slot, "slot", 0, "Slot to write")
	cmd.Flags().StringVarP(&in, "in", "i", "", "TOML file holding the filter set")
	cmd.Flags().Float64Var(&preamp, "preamp", 0, "Pre-amp in dB")
	_ = cmd.MarkFlagRequired("slot")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
