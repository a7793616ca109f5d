package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/datastore"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/realize"
)

// BuildSource loads the inputs and realizes the source table
func BuildSource(ctx context.Context, rt *Runtime) (*catalog.SourceTable, realize.BuildStats, error) {
	s := rt.Settings
	log := rt.log()

	lenses, err := LoadLenses(s)
	if err != nil {
		return nil, realize.BuildStats{}, err
	}
	epochs, err := LoadEpochs(s, log)
	if err != nil {
		return nil, realize.BuildStats{}, err
	}
	gen, err := realize.NewRowGenerator(s)
	if err != nil {
		return nil, realize.BuildStats{}, err
	}

	builder := &realize.SourceTableBuilder{
		Generator:        gen,
		Seed:             s.Realize.Seed,
		Workers:          Workers(s, log),
		ProgressInterval: s.Realize.ProgressInterval,
		Metrics:          rt.realizeRecorder(),
		Logger:           realize.GetLogger(),
	}
	return builder.Build(ctx, lenses.Systems(), epochs)
}

// BuildObject aggregates a source table into the object table
func BuildObject(rt *Runtime, src *catalog.SourceTable) (*catalog.ObjectTable, realize.ObjectStats) {
	builder := &realize.ObjectTableBuilder{
		IncludeStd: rt.Settings.Output.IncludeStd,
		Metrics:    rt.realizeRecorder(),
		Logger:     realize.GetLogger(),
	}
	return builder.Build(src)
}

// RunSource builds the source table and writes it to the configured output
func RunSource(ctx context.Context, rt *Runtime) error {
	src, stats, err := BuildSource(ctx, rt)
	if err != nil {
		return err
	}
	if err := writeSource(rt, src); err != nil {
		return err
	}
	if err := persist(ctx, rt, newRun(rt, stats), src, nil); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(rt.out(), describeStats(stats))
	return rt.finish()
}

// RunObject reads a source table CSV and writes the object table built from it
func RunObject(ctx context.Context, rt *Runtime) error {
	path := rt.Settings.Input.Source
	if path == "" {
		path = rt.Settings.Output.Source
	}
	src, err := catalog.ReadSourceFile(path)
	if err != nil {
		return err
	}
	rt.log().Info("source table loaded", logger.String("path", path), logger.Int("rows", src.Len()))

	obj, _ := BuildObject(rt, src)
	if err := writeObject(rt, obj); err != nil {
		return err
	}
	run := newRun(rt, realize.BuildStats{RunID: uuid.NewString(), Rows: src.Len()})
	if err := persist(ctx, rt, run, nil, obj); err != nil {
		return err
	}
	return rt.finish()
}

// RunAll builds and writes both tables from the lens catalog and observation history
func RunAll(ctx context.Context, rt *Runtime) error {
	src, stats, err := BuildSource(ctx, rt)
	if err != nil {
		return err
	}
	if err := writeSource(rt, src); err != nil {
		return err
	}
	obj, _ := BuildObject(rt, src)
	if err := writeObject(rt, obj); err != nil {
		return err
	}
	if err := persist(ctx, rt, newRun(rt, stats), src, obj); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(rt.out(), describeStats(stats))
	return rt.finish()
}

func writeSource(rt *Runtime, src *catalog.SourceTable) error {
	path := rt.Settings.Output.Source
	if err := catalog.WriteFile(path, func(w io.Writer) error { return catalog.WriteSourceCSV(w, src) }); err != nil {
		return err
	}
	rt.log().Info("source table written", logger.String("path", path), logger.Int("rows", src.Len()))
	return nil
}

func writeObject(rt *Runtime, obj *catalog.ObjectTable) error {
	path := rt.Settings.Output.Object
	if err := catalog.WriteFile(path, func(w io.Writer) error { return catalog.WriteObjectCSV(w, obj) }); err != nil {
		return err
	}
	rt.log().Info("object table written", logger.String("path", path), logger.Int("records", obj.Len()))
	return nil
}

func newRun(rt *Runtime, stats realize.BuildStats) *datastore.Run {
	return &datastore.Run{
		ID:       stats.RunID,
		Seed:     rt.Settings.Realize.Seed,
		Method:   rt.Settings.Realize.Method,
		Pairs:    stats.Pairs,
		Rows:     stats.Rows,
		Failures: stats.Failures,
	}
}

// persist stores the run and the given tables when the datastore is enabled.
// Nil tables are skipped.
func persist(ctx context.Context, rt *Runtime, run *datastore.Run, src *catalog.SourceTable, obj *catalog.ObjectTable) error {
	settings := &rt.Settings.Datastore
	if !settings.Enabled {
		return nil
	}

	store, err := openStore(rt)
	if err != nil {
		return err
	}
	defer closeStore(rt, store)

	if err := store.SaveRun(ctx, run); err != nil {
		return err
	}
	if src != nil {
		if err := store.SaveSourceTable(ctx, run.ID, src); err != nil {
			return err
		}
	}
	if obj != nil {
		if err := store.SaveObjectTable(ctx, run.ID, obj); err != nil {
			return err
		}
	}
	rt.log().Info("run stored", logger.String("run_id", run.ID), logger.String("db_type", settings.Type))
	return nil
}

// describeStats is the one-line summary printed after a build
func describeStats(stats realize.BuildStats) string {
	return fmt.Sprintf("run %s: %d pairs, %d rows, %d measurement failures in %s",
		stats.RunID, stats.Pairs, stats.Rows, stats.Failures, stats.Elapsed.Round(time.Millisecond))
}
