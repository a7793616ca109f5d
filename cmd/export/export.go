package export

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/pipeline"
)

// Command creates the export command, which lists stored runs or writes the
// tables of one stored run back to CSV.
func Command(rt *pipeline.Runtime) *cobra.Command {
	var (
		runID string
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored run from the datastore",
		Long: `Write the source and object tables of a run stored in the datastore back to CSV.
Use --list to show the stored runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || runID == "" {
				_, err := pipeline.ListRuns(cmd.Context(), rt)
				return err
			}
			return pipeline.Export(cmd.Context(), rt, runID)
		},
	}

	setupFlags(cmd, &runID, &list)

	return cmd
}

func setupFlags(cmd *cobra.Command, runID *string, list *bool) {
	f := cmd.Flags()
	f.StringVar(runID, "run", "", "Run id to export")
	f.BoolVar(list, "list", false, "List stored runs")
	f.String("source-output", "", "Source table CSV path")
	conf.FlagKey(f, "source-output", "output.source")
	f.String("object-output", "", "Object table CSV path")
	conf.FlagKey(f, "object-output", "output.object")
	f.Bool("std", false, "Read per-band standard deviations, stored when the run used --std")
	conf.FlagKey(f, "std", "output.includestd")
}
