package draw

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the draw command
func Command(rt *pipeline.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Compare true and emulated moments of one lens",
		Long:  `Realize one lens at the given epoch, or at a seeded random epoch, and print its noiseless moments next to the emulated measurement.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := pipeline.Draw(cmd.Context(), rt)
			return err
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
	f.IntP("lens", "l", 0, "LENSID to draw")
	conf.FlagKey(f, "lens", "input.lensid")
	f.IntP("epoch", "e", -1, "Epoch index, negative picks a seeded random epoch")
	conf.FlagKey(f, "epoch", "input.epoch")
	_ = cmd.MarkFlagRequired("lens")
}
