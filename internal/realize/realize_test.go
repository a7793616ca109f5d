package realize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/moments"
	"github.com/tphakala/slrealizer/internal/noise"
	"github.com/tphakala/slrealizer/internal/observability/metrics"
	"github.com/tphakala/slrealizer/internal/render"
	"github.com/tphakala/slrealizer/internal/survey"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quietLogger = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)

func testGenerator(method render.Method) *RowGenerator {
	return &RowGenerator{
		Method:     method,
		Grid:       moments.CenteredGrid(48, 48),
		PixelScale: conf.DefaultPixelScale,
		Noise: noise.Model{
			Flux:         noise.RelativeNoise{Std: 0.01},
			FirstMoment:  noise.RelativeNoise{Std: 0.01},
			SecondMoment: noise.RelativeNoise{Std: 0.05},
		},
		AstrometricStd: conf.DefaultAstrometricStd,
		FieldRadius:    conf.DefaultFieldRadius,
		Pointing:       Pointing{RA: conf.DefaultPointingRA, DEC: conf.DefaultPointingDEC},
	}
}

func testLenses(n int) []*lens.System {
	return lens.NewPainter(11, 0.3, 100).PaintN(n)
}

func testEpochs() []survey.Epoch {
	filters := []string{"u", "g", "r", "i", "z", "y", "r", "i"}
	epochs := make([]survey.Epoch, len(filters))
	for i, f := range filters {
		epochs[i] = survey.Epoch{
			Index:   i,
			MJD:     59580 + float64(i)*0.7,
			Filter:  f,
			PSFHWHM: 0.55 + 0.05*float64(i%3),
			SkyMag:  20.5 + 0.2*float64(i%4),
		}
	}
	return epochs
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	g := testGenerator(render.Analytic)
	sys := testLenses(1)[0]
	ep := testEpochs()[2]

	rec, err := g.Generate(sys, ep, NewPairRand(1, ep.Index, sys.LensID))
	require.NoError(t, err)

	assert.Equal(t, sys.LensID, rec.LensID)
	assert.Equal(t, ep.Index, rec.EpochIndex)
	assert.Equal(t, "r", rec.Filter)
	assert.Greater(t, rec.FluxErr, 0.0)
	assert.InDelta(t, noise.MagToFlux(ep.SkyMag)/noise.DetectionSignificance, rec.FluxErr, 1e-12)
	assert.Equal(t, rec.XErr, rec.YErr)
	assert.Zero(t, rec.IxxErr)
	assert.Zero(t, rec.IxyErr)
	assert.Zero(t, rec.IyyErr)
	assert.InDelta(t, conf.DefaultAstrometricStd, rec.RAErr, 0)
	assert.GreaterOrEqual(t, rec.RA, 0.0)
	assert.Less(t, rec.RA, 360.0)
	// dither plus a generous astrometric tail
	assert.InDelta(t, conf.DefaultPointingDEC, rec.DEC, conf.DefaultFieldRadius+3)

	truth, err := g.Measure(sys, ep)
	require.NoError(t, err)
	assert.InEpsilon(t, truth.Flux, rec.Flux, 0.1)
	assert.InEpsilon(t, truth.Ixx, rec.Ixx, 0.5)
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	g := testGenerator(render.Pixel)
	sys := testLenses(1)[0]
	ep := testEpochs()[3]

	a, err := g.Generate(sys, ep, NewPairRand(5, ep.Index, sys.LensID))
	require.NoError(t, err)
	b, err := g.Generate(sys, ep, NewPairRand(5, ep.Index, sys.LensID))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := g.Generate(sys, ep, NewPairRand(6, ep.Index, sys.LensID))
	require.NoError(t, err)
	assert.NotEqual(t, a.Flux, c.Flux)
}

func TestGenerate_UsesEpochPointing(t *testing.T) {
	t.Parallel()

	g := testGenerator(render.Analytic)
	g.FieldRadius = 0
	g.AstrometricStd = 0
	sys := testLenses(1)[0]
	ep := testEpochs()[1]
	ep.FieldRA, ep.FieldDEC, ep.HasPointing = 359.9999, 10, true

	rec, err := g.Generate(sys, ep, NewPairRand(1, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 10+rec.Y*g.PixelScale/3600, rec.DEC, 1e-12)
	want := wrapRA(359.9999 + rec.X*g.PixelScale/3600/math.Cos(10*math.Pi/180))
	assert.InDelta(t, want, rec.RA, 1e-9)
}

func TestGenerate_InvalidInput(t *testing.T) {
	t.Parallel()

	g := testGenerator(render.Analytic)
	sys := testLenses(1)[0]

	tests := []struct {
		name string
		ep   survey.Epoch
	}{
		{"nan sky", survey.Epoch{Filter: "r", PSFHWHM: 0.7, SkyMag: math.NaN()}},
		{"zero psf", survey.Epoch{Filter: "r", PSFHWHM: 0, SkyMag: 21}},
		{"unknown band", survey.Epoch{Filter: "H", PSFHWHM: 0.7, SkyMag: 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := g.Generate(sys, tt.ep, NewPairRand(1, 0, 0))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidParameter(err))
		})
	}
}

func TestWrapRA(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want float64 }{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{361.25, 1.25},
		{-0.5, 359.5},
		{-720.25, 359.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, wrapRA(tt.in), 1e-9, "wrapRA(%v)", tt.in)
	}
}

func TestNewPairRand_Independent(t *testing.T) {
	t.Parallel()

	a := NewPairRand(1, 2, 3).Uint64()
	assert.Equal(t, a, NewPairRand(1, 2, 3).Uint64())
	assert.NotEqual(t, a, NewPairRand(1, 3, 2).Uint64())
	assert.NotEqual(t, a, NewPairRand(2, 2, 3).Uint64())
}

func TestPairSeed_FullRangeIDs(t *testing.T) {
	t.Parallel()

	type words struct{ hi, lo uint64 }
	pairs := [][2]int{
		{0, -1}, {0, math.MaxUint32}, {0, 1 << 32}, {0, 0},
		{1, 0}, {-1, 0}, {math.MaxUint32, 0}, {1 << 32, 0},
		{1 << 32, 1}, {1, 1 << 32},
	}
	seen := make(map[words][2]int, len(pairs))
	for _, p := range pairs {
		hi, lo := pairSeed(42, p[0], p[1])
		w := words{hi, lo}
		prev, dup := seen[w]
		assert.False(t, dup, "epoch/lens %v shares seed words with %v", p, prev)
		seen[w] = p
	}
}

func TestNewRowGenerator(t *testing.T) {
	t.Parallel()

	s := &conf.Settings{}
	s.Realize.Method = "analytic"
	s.Realize.Grid = conf.GridSettings{Width: 32, Height: 16, PixelScale: 0.2}
	s.Noise.Flux = conf.RelativeNoise{Std: 0.02}
	s.Survey.Pointing = conf.Pointing{RA: 10, DEC: 20}

	g, err := NewRowGenerator(s)
	require.NoError(t, err)
	assert.Equal(t, 32, g.Grid.Width)
	assert.Equal(t, 16, g.Grid.Height)
	assert.InDelta(t, 0.02, g.Noise.Flux.Std, 0)
	assert.Equal(t, Pointing{RA: 10, DEC: 20}, g.Pointing)

	s.Realize.Method = "raytrace"
	_, err = NewRowGenerator(s)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func newBuilder(g *RowGenerator, workers int) *SourceTableBuilder {
	return &SourceTableBuilder{
		Generator: g,
		Seed:      42,
		Workers:   workers,
		Logger:    quietLogger,
	}
}

func TestSourceTableBuilder_WorkerIndependent(t *testing.T) {
	t.Parallel()

	g := testGenerator(render.Pixel)
	lenses := testLenses(5)
	epochs := testEpochs()

	var tables []*catalog.SourceTable
	for _, workers := range []int{1, 3, 8} {
		table, stats, err := newBuilder(g, workers).Build(context.Background(), lenses, epochs)
		require.NoError(t, err)
		assert.Equal(t, len(lenses)*len(epochs), stats.Pairs)
		assert.Equal(t, stats.Pairs, stats.Rows+stats.Failures)
		assert.NotEmpty(t, stats.RunID)
		tables = append(tables, table)
	}
	assert.Equal(t, tables[0], tables[1])
	assert.Equal(t, tables[0], tables[2])

	// epoch-major order
	first := tables[0].Records
	require.Len(t, first, len(lenses)*len(epochs))
	assert.Equal(t, lenses[0].LensID, first[0].LensID)
	assert.Equal(t, lenses[1].LensID, first[1].LensID)
	assert.Equal(t, 1, first[len(lenses)].EpochIndex)
	for i := range first {
		assert.Greater(t, first[i].FluxErr, 0.0)
	}
}

func TestSourceTableBuilder_CSVCatalog(t *testing.T) {
	t.Parallel()

	lenses := testLenses(4)
	var buf bytes.Buffer
	require.NoError(t, lens.WriteCSV(&buf, lenses))
	fromCSV, err := lens.ReadCSV(&buf)
	require.NoError(t, err)

	g := testGenerator(render.Analytic)
	want, _, err := newBuilder(g, 2).Build(context.Background(), lenses, testEpochs())
	require.NoError(t, err)
	got, stats, err := newBuilder(g, 2).Build(context.Background(), fromCSV, testEpochs())
	require.NoError(t, err)

	assert.NotZero(t, stats.Rows)
	assert.Equal(t, want.Len(), stats.Rows)
	assert.Equal(t, want, got)
}

func TestSourceTableBuilder_SkipsMeasurementFailures(t *testing.T) {
	t.Parallel()

	lenses := testLenses(4)
	flaky := lenses[1].LensID
	method := func(comps []moments.Moments, grid moments.Grid) (moments.Moments, error) {
		// fail every epoch of the second lens
		if isLens(comps, lenses[1]) {
			return moments.Moments{}, errors.MeasurementFailure("flat image").Component("moments").Build()
		}
		return render.Analytic(comps, grid)
	}

	reg := prometheus.NewRegistry()
	rm, err := metrics.NewRealizeMetrics(reg)
	require.NoError(t, err)

	b := newBuilder(testGenerator(method), 2)
	b.Metrics = rm
	table, stats, err := b.Build(context.Background(), lenses, testEpochs())
	require.NoError(t, err)

	nEpochs := len(testEpochs())
	assert.Equal(t, nEpochs, stats.Failures)
	assert.Equal(t, map[string]int{"moments": nEpochs}, stats.FailureReasons)
	assert.Equal(t, 3*nEpochs, table.Len())
	for _, r := range table.Records {
		assert.NotEqual(t, flaky, r.LensID)
	}

	expected := fmt.Sprintf(`
# HELP slrealizer_last_batch_failures Measurement failures skipped by the last source table build
# TYPE slrealizer_last_batch_failures gauge
slrealizer_last_batch_failures %d
`, nEpochs)
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "slrealizer_last_batch_failures"))
}

// isLens matches components against the first image of sys
func isLens(comps []moments.Moments, sys *lens.System) bool {
	if len(comps) != 1+sys.NImg() {
		return false
	}
	scale := conf.DefaultPixelScale
	return math.Abs(comps[1].X-sys.Images[0].X/scale) < 1e-12 && math.Abs(comps[1].Y-sys.Images[0].Y/scale) < 1e-12
}

func TestSourceTableBuilder_AbortsOnInvalidParameter(t *testing.T) {
	t.Parallel()

	epochs := testEpochs()
	epochs[4].SkyMag = math.Inf(1)

	_, _, err := newBuilder(testGenerator(render.Analytic), 4).Build(context.Background(), testLenses(3), epochs)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidParameter(err))
	assert.Contains(t, err.Error(), "epoch 4")

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "realize", ee.GetComponent())
	assert.Equal(t, 4, ee.Context["epoch_index"])
	assert.Contains(t, []any{100, 101, 102}, ee.Context["lens_id"])
}

func TestSourceTableBuilder_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newBuilder(testGenerator(render.Analytic), 2).Build(ctx, testLenses(3), testEpochs())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.ErrorIs(t, err, context.Canceled)

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, metrics.OpSourceTable, ee.Context["operation"])
	assert.Contains(t, ee.Context, "duration_ms")
}

func TestSourceTableBuilder_LogsRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := newBuilder(testGenerator(render.Analytic), 2)
	b.Logger = logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil)

	_, stats, err := b.Build(context.Background(), testLenses(2), testEpochs())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "trace_id="+stats.RunID)
}

func TestSourceTableBuilder_Empty(t *testing.T) {
	t.Parallel()

	table, stats, err := newBuilder(testGenerator(render.Analytic), 0).Build(context.Background(), nil, testEpochs())
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Zero(t, stats.Pairs)
}

func sourceRow(lensID int, filter string, flux float64) catalog.SourceRecord {
	return catalog.SourceRecord{
		LensID: lensID, Filter: filter,
		Flux: flux, FluxErr: 1, X: flux / 10, XErr: 0.1, Y: -flux / 10, YErr: 0.1,
		Ixx: 4, Ixy: 0.5, Iyy: 3,
	}
}

func allBands(lensID int, fluxes ...float64) []catalog.SourceRecord {
	var rows []catalog.SourceRecord
	for _, b := range catalog.ObjectBands {
		for _, f := range fluxes {
			rows = append(rows, sourceRow(lensID, b, f))
		}
	}
	return rows
}

func TestObjectTableBuilder(t *testing.T) {
	t.Parallel()

	rows := append(allBands(9, 10, 20, 30), allBands(3, 5, 7)...)
	rows = append(rows, sourceRow(9, "y", 1000)) // y is not aggregated

	table, stats := (&ObjectTableBuilder{Logger: quietLogger}).Build(&catalog.SourceTable{Records: rows})
	assert.Equal(t, ObjectStats{Lenses: 2, Written: 2}, stats)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 9, table.Records[0].LensID, "first appearance order")
	assert.Equal(t, 3, table.Records[1].LensID)

	r, ok := table.Records[0].Band("r")
	require.True(t, ok)
	assert.InDelta(t, 20, r.Flux, 1e-12)
	assert.InDelta(t, 2, r.X, 1e-12)
	assert.InDelta(t, 1, r.FluxErr, 1e-12)
	assert.InDelta(t, 4, r.Ixx, 1e-12)
	assert.InDelta(t, 0.1, r.XErr, 1e-12)
}

func TestObjectTableBuilder_Std(t *testing.T) {
	t.Parallel()

	rows := append(allBands(1, 10, 20, 30), allBands(2, 5)...)
	reg := prometheus.NewRegistry()
	rm, err := metrics.NewRealizeMetrics(reg)
	require.NoError(t, err)

	b := &ObjectTableBuilder{IncludeStd: true, Metrics: rm, Logger: quietLogger}
	table, stats := b.Build(&catalog.SourceTable{Records: rows})

	// a single epoch has no sample deviation, so lens 2 is dropped
	assert.Equal(t, ObjectStats{Lenses: 2, Written: 1, Dropped: 1}, stats)
	require.Equal(t, 1, table.Len())
	assert.True(t, table.IncludeStd)
	g, _ := table.Records[0].Band("g")
	assert.InDelta(t, 10, g.FluxStd, 1e-12)
	assert.InDelta(t, 0, g.IxxStd, 1e-12)

	assert.Equal(t, 2, testutil.CollectAndCount(rm, "slrealizer_object_records_total"))
}

func TestObjectTableBuilder_MissingBand(t *testing.T) {
	t.Parallel()

	var rows []catalog.SourceRecord
	for _, b := range []string{"u", "g", "r", "i"} {
		rows = append(rows, sourceRow(4, b, 10))
	}
	rows = append(rows, allBands(5, 10)...)

	table, stats := (&ObjectTableBuilder{Logger: quietLogger}).Build(&catalog.SourceTable{Records: rows})
	assert.Equal(t, 1, stats.Dropped)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 5, table.Records[0].LensID)
	assert.LessOrEqual(t, table.Len(), stats.Lenses)
}

func TestObjectTableBuilder_NonFiniteSource(t *testing.T) {
	t.Parallel()

	rows := allBands(1, 10, 11)
	rows[3].Iyy = math.Inf(1)

	table, stats := (&ObjectTableBuilder{Logger: quietLogger}).Build(&catalog.SourceTable{Records: rows})
	assert.Zero(t, table.Len())
	assert.Equal(t, 1, stats.Dropped)
}

func TestMeanStd(t *testing.T) {
	t.Parallel()

	m, s := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, m, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7), s, 1e-12)

	m, s = meanStd([]float64{3})
	assert.InDelta(t, 3, m, 0)
	assert.True(t, math.IsNaN(s))

	v := []float64{math.NaN(), 2, math.NaN(), 4}
	m, s = meanStd(v)
	assert.InDelta(t, 3, m, 1e-12)
	assert.InDelta(t, math.Sqrt2, s, 1e-12)
	assert.True(t, math.IsNaN(v[0]), "input is not modified")

	m, s = meanStd([]float64{math.NaN(), math.NaN()})
	assert.True(t, math.IsNaN(m))
	assert.True(t, math.IsNaN(s))
}

func TestObjectTableBuilder_SkipsNaNMeasurements(t *testing.T) {
	t.Parallel()

	rows := allBands(1, 10, 12)
	rows[0].Flux = math.NaN() // first u row

	table, stats := (&ObjectTableBuilder{Logger: quietLogger}).Build(&catalog.SourceTable{Records: rows})
	assert.Equal(t, ObjectStats{Lenses: 1, Written: 1}, stats)
	require.Equal(t, 1, table.Len())

	u, _ := table.Records[0].Band("u")
	assert.InDelta(t, 12, u.Flux, 1e-12)
	assert.InDelta(t, 1.1, u.X, 1e-12, "other columns keep both rows")
	g, _ := table.Records[0].Band("g")
	assert.InDelta(t, 11, g.Flux, 1e-12)

	// a band whose only flux values are NaN stays non-finite
	rows = allBands(2, 10)
	rows[1].Flux = math.NaN()
	table, stats = (&ObjectTableBuilder{Logger: quietLogger}).Build(&catalog.SourceTable{Records: rows})
	assert.Zero(t, table.Len())
	assert.Equal(t, 1, stats.Dropped)
}

func TestEndToEnd_SourceThenObject(t *testing.T) {
	t.Parallel()

	lenses := testLenses(3)
	source, _, err := newBuilder(testGenerator(render.Analytic), 2).Build(context.Background(), lenses, testEpochs())
	require.NoError(t, err)

	objects, stats := (&ObjectTableBuilder{Logger: quietLogger}).Build(source)
	assert.Equal(t, len(lenses), stats.Lenses)
	assert.LessOrEqual(t, objects.Len(), len(source.LensIDs()))
	for i := range objects.Records {
		assert.True(t, objects.Records[i].IsFinite(false))
	}
}
