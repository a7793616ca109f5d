package object

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the object command, which aggregates a source table into
// one record per lens.
func Command(rt *pipeline.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Build the object table from a source table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunObject(cmd.Context(), rt)
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the object command.
func setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("source", "s", "", "Source table CSV, defaults to the configured source output")
	conf.FlagKey(f, "source", "input.source")
	f.StringP("output", "o", "", "Object table CSV path")
	conf.FlagKey(f, "output", "output.object")
	f.Bool("std", false, "Add per-band sample standard deviations")
	conf.FlagKey(f, "std", "output.includestd")
}
