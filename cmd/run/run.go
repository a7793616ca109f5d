package run

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the run command, which builds the source and object tables in sequence.
func Command(rt *pipeline.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the source and object tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunAll(cmd.Context(), rt)
		},
	}

	setupFlags(cmd)

	return cmd
}

func setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("catalog", "c", "", "Lens catalog, .csv or .yaml")
	conf.FlagKey(f, "catalog", "input.catalog")
	f.StringP("observations", "O", "", "Observation history CSV")
	conf.FlagKey(f, "observations", "input.observations")
	f.String("source-output", "", "Source table CSV path")
	conf.FlagKey(f, "source-output", "output.source")
	f.String("object-output", "", "Object table CSV path")
	conf.FlagKey(f, "object-output", "output.object")
	f.Bool("std", false, "Add per-band sample standard deviations to the object table")
	conf.FlagKey(f, "std", "output.includestd")
	f.Bool("night", false, "Keep only epochs observed during astronomical night at the site")
	conf.FlagKey(f, "night", "survey.nightfilter.enabled")
}
