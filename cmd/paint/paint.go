package paint

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the paint command, which writes a synthetic lens catalog
func Command(rt *pipeline.Runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Write a synthetic lens catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			systems, err := pipeline.Paint(rt, output)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d systems to %s\n", len(systems), output)
			return err
		},
	}

	setupFlags(cmd, &output)

	return cmd
}

func setupFlags(cmd *cobra.Command, output *string) {
	f := cmd.Flags()
	f.StringVarP(output, "output", "o", "catalog.yaml", "Catalog path, .csv or .yaml")
	f.IntP("count", "n", 0, "Number of systems")
	conf.FlagKey(f, "count", "paint.count")
	f.Uint64("paint-seed", 0, "Painter seed")
	conf.FlagKey(f, "paint-seed", "paint.seed")
	f.Float64("quad-fraction", 0, "Fraction of quads, the rest are doubles")
	conf.FlagKey(f, "quad-fraction", "paint.quadfraction")
	f.Int("first-id", 0, "LENSID of the first system")
	conf.FlagKey(f, "first-id", "paint.firstid")
}
