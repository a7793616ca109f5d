package pipeline

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tphakala/slrealizer/internal/datastore"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
)

// ListRuns prints the runs stored in the configured datastore, newest first
func ListRuns(ctx context.Context, rt *Runtime) ([]datastore.Run, error) {
	store, err := openStore(rt)
	if err != nil {
		return nil, err
	}
	defer closeStore(rt, store)

	runs, err := store.Runs(ctx)
	if err != nil {
		return nil, err
	}

	tw := tabwriter.NewWriter(rt.out(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tCREATED\tSEED\tMETHOD\tPAIRS\tROWS\tFAILURES")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Seed, r.Method, r.Pairs, r.Rows, r.Failures)
	}
	return runs, tw.Flush()
}

// Export writes the tables stored under runID to the configured output
// paths. Tables without rows are not written.
func Export(ctx context.Context, rt *Runtime, runID string) error {
	store, err := openStore(rt)
	if err != nil {
		return err
	}
	defer closeStore(rt, store)

	src, err := store.LoadSourceTable(ctx, runID)
	if err != nil {
		return err
	}
	obj, err := store.LoadObjectTable(ctx, runID, rt.Settings.Output.IncludeStd)
	if err != nil {
		return err
	}
	if src.Len() == 0 && obj.Len() == 0 {
		return errors.Newf("run %s has no stored rows", runID).
			Category(errors.CategoryNotFound).
			Component("pipeline").
			Context("run_id", runID).
			Build()
	}

	if src.Len() > 0 {
		if err := writeSource(rt, src); err != nil {
			return err
		}
	}
	if obj.Len() > 0 {
		if err := writeObject(rt, obj); err != nil {
			return err
		}
	}
	rt.log().Info("run exported",
		logger.String("run_id", runID),
		logger.Int("source_rows", src.Len()),
		logger.Int("object_records", obj.Len()))
	return nil
}

func openStore(rt *Runtime) (*datastore.Store, error) {
	return datastore.Open(&rt.Settings.Datastore, datastore.GetLogger(), rt.datastoreRecorder())
}

func closeStore(rt *Runtime, store io.Closer) {
	if err := store.Close(); err != nil {
		rt.log().Warn("failed to close datastore", logger.Error(err))
	}
}
