package realize

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
	"github.com/tphakala/slrealizer/internal/survey"
)

// BuildStats summarizes a source table build
type BuildStats struct {
	RunID          string
	Pairs          int
	Rows           int
	Failures       int
	FailureReasons map[string]int // measurement failures by component
	Elapsed        time.Duration
}

// batchRecorder is implemented by recorders that keep a last-batch summary
type batchRecorder interface {
	SetBatch(rows, failures int, finished time.Time)
}

// SourceTableBuilder realizes the lens x epoch cross product
type SourceTableBuilder struct {
	Generator        *RowGenerator
	Seed             uint64
	Workers          int // 0 uses runtime.NumCPU
	ProgressInterval int // log every N completed epochs, 0 disables
	Metrics          metrics.Recorder
	Logger           logger.Logger
}

// slot holds the outcome of one pair. Slots are written by exactly one
// worker and read only after all workers finish.
type slot struct {
	rec catalog.SourceRecord
	ok  bool
}

func (b *SourceTableBuilder) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

func (b *SourceTableBuilder) logger() logger.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return GetLogger()
}

// Build realizes every (epoch, lens) pair, epoch-major. Measurement failures
// are counted and skipped; any other error aborts the batch. The result does
// not depend on the number of workers.
func (b *SourceTableBuilder) Build(ctx context.Context, lenses []*lens.System, epochs []survey.Epoch) (*catalog.SourceTable, BuildStats, error) {
	start := time.Now()
	rec := metrics.OrNop(b.Metrics)
	log := b.logger()

	stats := BuildStats{
		RunID:          uuid.NewString(),
		Pairs:          len(lenses) * len(epochs),
		FailureReasons: make(map[string]int),
	}
	ctx = logger.WithTraceID(ctx, stats.RunID)
	log = log.WithContext(ctx)
	log.Info("building source table",
		logger.Int("lenses", len(lenses)),
		logger.Int("epochs", len(epochs)),
		logger.Int("workers", b.workers()))

	slots := make([]slot, stats.Pairs)
	var (
		mu        sync.Mutex
		completed atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())

	for ei := range epochs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reasons, err := b.realizeEpoch(gctx, lenses, epochs[ei], slots[ei*len(lenses):(ei+1)*len(lenses)], rec)
			if len(reasons) > 0 {
				mu.Lock()
				for k, v := range reasons {
					stats.FailureReasons[k] += v
				}
				mu.Unlock()
			}
			if err != nil {
				return err
			}
			if n := completed.Add(1); b.ProgressInterval > 0 && n%int64(b.ProgressInterval) == 0 {
				log.Info("progress",
					logger.Int64("epochs_done", n),
					logger.Int("epochs_total", len(epochs)),
					logger.Duration("elapsed", time.Since(start)))
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	stats.Elapsed = time.Since(start)
	if err != nil {
		rec.RecordOperation(metrics.OpSourceTable, metrics.StatusError)
		if ctx.Err() != nil {
			err = errors.New(fmt.Errorf("source table build cancelled: %w", err)).
				Category(errors.CategoryCancellation).
				Component("realize").
				Timing(metrics.OpSourceTable, stats.Elapsed).
				Build()
		}
		log.Error("source table build failed", logger.Error(err), logger.Duration("elapsed", stats.Elapsed))
		return nil, stats, err
	}

	table := &catalog.SourceTable{Records: make([]catalog.SourceRecord, 0, stats.Pairs)}
	for i := range slots {
		if slots[i].ok {
			table.Records = append(table.Records, slots[i].rec)
		}
	}
	stats.Rows = table.Len()
	for _, n := range stats.FailureReasons {
		stats.Failures += n
	}

	rec.RecordOperation(metrics.OpSourceTable, metrics.StatusSuccess)
	rec.RecordDuration(metrics.OpSourceTable, stats.Elapsed.Seconds())
	if br, ok := rec.(batchRecorder); ok {
		br.SetBatch(stats.Rows, stats.Failures, time.Now())
	}

	log.Info("source table built",
		logger.Int("rows", stats.Rows),
		logger.Int("failures", stats.Failures),
		logger.Duration("elapsed", stats.Elapsed))
	return table, stats, nil
}

// realizeEpoch fills out, one slot per lens, and returns failure counts by reason
func (b *SourceTableBuilder) realizeEpoch(ctx context.Context, lenses []*lens.System, ep survey.Epoch, out []slot, rec metrics.Recorder) (map[string]int, error) {
	var reasons map[string]int
	for li, sys := range lenses {
		if err := ctx.Err(); err != nil {
			return reasons, err
		}

		t0 := time.Now()
		r, err := b.Generator.Generate(sys, ep, NewPairRand(b.Seed, ep.Index, sys.LensID))
		rec.RecordDuration(metrics.OpRealizeRow, time.Since(t0).Seconds())

		switch {
		case err == nil:
			out[li] = slot{rec: r, ok: true}
			rec.RecordOperation(metrics.OpRealizeRow, metrics.StatusSuccess)
		case errors.IsMeasurementFailure(err):
			if reasons == nil {
				reasons = make(map[string]int)
			}
			reasons[failureReason(err)]++
			rec.RecordOperation(metrics.OpRealizeRow, metrics.StatusFailure)
			rec.RecordError(metrics.OpRealizeRow, string(errors.CategoryMeasurementFailure))
			b.logger().WithContext(ctx).Debug("skipping pair",
				logger.Int("lens_id", sys.LensID),
				logger.Int("epoch_index", ep.Index),
				logger.Error(err))
		default:
			rec.RecordOperation(metrics.OpRealizeRow, metrics.StatusError)
			rec.RecordError(metrics.OpRealizeRow, errorType(err))
			return reasons, pairError(err, sys.LensID, ep.Index)
		}
	}
	return reasons, nil
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
