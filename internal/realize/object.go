package realize

import (
	"math"
	"time"

	"github.com/tphakala/simd/f64"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
)

// ObjectStats summarizes an object table build
type ObjectStats struct {
	Lenses  int // distinct lenses in the source table
	Written int
	Dropped int // records with a non-finite field
}

// ObjectTableBuilder aggregates source records per lens and band
type ObjectTableBuilder struct {
	IncludeStd bool
	Metrics    metrics.Recorder
	Logger     logger.Logger
}

// Build groups rows by lens in first-appearance order, then by band, and
// averages every measured quantity. Bands without rows are NaN, and records
// with any non-finite written field are dropped.
func (b *ObjectTableBuilder) Build(rows *catalog.SourceTable) (*catalog.ObjectTable, ObjectStats) {
	start := time.Now()
	rec := metrics.OrNop(b.Metrics)
	log := b.Logger
	if log == nil {
		log = GetLogger()
	}

	ids := rows.LensIDs()
	byLens := make(map[int]*[5][]*catalog.SourceRecord, len(ids))
	for _, id := range ids {
		byLens[id] = new([5][]*catalog.SourceRecord)
	}
	for i := range rows.Records {
		r := &rows.Records[i]
		if bi := bandIndex(r.Filter); bi >= 0 {
			byLens[r.LensID][bi] = append(byLens[r.LensID][bi], r)
		}
	}

	stats := ObjectStats{Lenses: len(ids)}
	table := &catalog.ObjectTable{IncludeStd: b.IncludeStd}
	for _, id := range ids {
		obj := catalog.ObjectRecord{LensID: id}
		for bi, band := range byLens[id] {
			obj.Bands[bi] = aggregateBand(band)
		}

		if !obj.IsFinite(b.IncludeStd) {
			stats.Dropped++
			rec.RecordOperation(metrics.OpObjectRecord, metrics.StatusDropped)
			err := errors.NonFiniteAggregate("object record for lens %d has a non-finite field", id).
				Component("realize").
				Context("lens_id", id).
				Build()
			log.Debug("dropping object record", logger.Int("lens_id", id), logger.Error(err))
			continue
		}
		stats.Written++
		rec.RecordOperation(metrics.OpObjectRecord, metrics.StatusWritten)
		table.Records = append(table.Records, obj)
	}

	rec.RecordOperation(metrics.OpObjectTable, metrics.StatusSuccess)
	rec.RecordDuration(metrics.OpObjectTable, time.Since(start).Seconds())
	log.Info("object table built",
		logger.Int("lenses", stats.Lenses),
		logger.Int("written", stats.Written),
		logger.Int("dropped", stats.Dropped))
	return table, stats
}

func bandIndex(filter string) int {
	for i, b := range catalog.ObjectBands {
		if b == filter {
			return i
		}
	}
	return -1
}

// aggregateBand returns means and sample standard deviations of rows
func aggregateBand(rows []*catalog.SourceRecord) catalog.BandStats {
	if len(rows) == 0 {
		return catalog.MissingBand()
	}

	col := make([]float64, len(rows))
	column := func(get func(*catalog.SourceRecord) float64) []float64 {
		for i, r := range rows {
			col[i] = get(r)
		}
		return col
	}

	var s catalog.BandStats
	s.Flux, s.FluxStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.Flux }))
	s.X, s.XStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.X }))
	s.Y, s.YStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.Y }))
	s.Ixx, s.IxxStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.Ixx }))
	s.Ixy, s.IxyStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.Ixy }))
	s.Iyy, s.IyyStd = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.Iyy }))
	s.FluxErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.FluxErr }))
	s.XErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.XErr }))
	s.YErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.YErr }))
	s.IxxErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.IxxErr }))
	s.IxyErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.IxyErr }))
	s.IyyErr, _ = meanStd(column(func(r *catalog.SourceRecord) float64 { return r.IyyErr }))
	return s
}

// meanStd returns the mean and the sample standard deviation (n-1 in the
// denominator) of the non-NaN values of v. The deviation of a single value is
// NaN, and so are both results when every value is NaN.
func meanStd(v []float64) (mean, std float64) {
	v = dropNaN(v)
	if len(v) == 0 {
		return math.NaN(), math.NaN()
	}
	n := float64(len(v))
	mean = f64.Sum(v) / n
	if len(v) < 2 {
		return mean, math.NaN()
	}
	var ss float64
	for _, x := range v {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// dropNaN returns v without its NaN values. v is returned as is when it has none.
func dropNaN(v []float64) []float64 {
	for i, x := range v {
		if !math.IsNaN(x) {
			continue
		}
		kept := append(make([]float64, 0, len(v)-1), v[:i]...)
		for _, y := range v[i+1:] {
			if !math.IsNaN(y) {
				kept = append(kept, y)
			}
		}
		return kept
	}
	return v
}
