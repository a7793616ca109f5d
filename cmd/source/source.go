package source

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the source command, which realizes every lens at every
// selected epoch and writes the source table.
func Command(rt *pipeline.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Build the source table",
		Long:  `Realize every lens of the catalog at every selected epoch of the observation history and write one row per measurement.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunSource(cmd.Context(), rt)
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags configures flags specific to the source command.
func setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("catalog", "c", "", "Lens catalog, .csv or .yaml")
	conf.FlagKey(f, "catalog", "input.catalog")
	f.StringP("observations", "O", "", "Observation history CSV")
	conf.FlagKey(f, "observations", "input.observations")
	f.StringP("output", "o", "", "Source table CSV path")
	conf.FlagKey(f, "output", "output.source")
	f.Float64("max-mjd", 0, "Skip epochs at or after this MJD")
	conf.FlagKey(f, "max-mjd", "survey.maxmjd")
	f.StringSlice("exclude-filters", nil, "Bands never realized")
	conf.FlagKey(f, "exclude-filters", "survey.excludefilters")
	f.Bool("night", false, "Keep only epochs observed during astronomical night at the site")
	conf.FlagKey(f, "night", "survey.nightfilter.enabled")
}
