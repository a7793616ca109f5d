package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"text/tabwriter"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/moments"
	"github.com/tphakala/slrealizer/internal/realize"
	"github.com/tphakala/slrealizer/internal/survey"
)

// DrawResult holds the noiseless and emulated measurement of one lens at one epoch
type DrawResult struct {
	LensID   int
	Epoch    survey.Epoch
	True     moments.Moments
	Emulated catalog.SourceRecord
}

// Draw realizes one lens at the configured epoch, or at a seeded random epoch
// when none is set, and prints true against emulated moments.
func Draw(ctx context.Context, rt *Runtime) (*DrawResult, error) {
	s := rt.Settings

	lenses, err := LoadLenses(s)
	if err != nil {
		return nil, err
	}
	sys, err := lenses.Get(s.Input.LensID)
	if err != nil {
		return nil, err
	}
	epochs, err := LoadEpochs(s, rt.log())
	if err != nil {
		return nil, err
	}
	ep, err := pickEpoch(epochs, s.Input.Epoch, s.Realize.Seed, sys.LensID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen, err := realize.NewRowGenerator(s)
	if err != nil {
		return nil, err
	}
	truth, err := gen.Measure(sys, ep)
	if err != nil {
		return nil, err
	}
	rec, err := gen.Generate(sys, ep, realize.NewPairRand(s.Realize.Seed, ep.Index, sys.LensID))
	if err != nil {
		return nil, err
	}

	res := &DrawResult{LensID: sys.LensID, Epoch: ep, True: truth, Emulated: rec}
	rt.log().Debug("lens drawn",
		logger.Int("lens_id", sys.LensID),
		logger.Int("epoch", ep.Index),
		logger.String("filter", ep.Filter))
	if err := res.Print(rt.out()); err != nil {
		return nil, err
	}
	return res, nil
}

// pickEpoch returns the epoch with the given index, or a seeded random epoch
// when index is negative
func pickEpoch(epochs []survey.Epoch, index int, seed uint64, lensID int) (survey.Epoch, error) {
	if len(epochs) == 0 {
		return survey.Epoch{}, errors.Newf("observation history has no selected epochs").
			Category(errors.CategoryValidation).
			Component("pipeline").
			Build()
	}
	if index < 0 {
		rng := rand.New(rand.NewPCG(seed, uint64(lensID)))
		return epochs[rng.IntN(len(epochs))], nil
	}
	for _, ep := range epochs {
		if ep.Index == index {
			return ep, nil
		}
	}
	return survey.Epoch{}, errors.Newf("epoch %d not found among selected epochs", index).
		Category(errors.CategoryNotFound).
		Component("pipeline").
		Context("epoch", index).
		Build()
}

// Print writes the comparison as an aligned table
func (r *DrawResult) Print(w io.Writer) error {
	ep := r.Epoch
	if _, err := fmt.Fprintf(w, "lens %d, epoch %d: MJD %.5f, filter %s, PSF HWHM %.3f\", sky %.2f mag\n\n",
		r.LensID, ep.Index, ep.MJD, ep.Filter, ep.PSFHWHM, ep.SkyMag); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "quantity\ttrue\temulated\terror\t")
	rows := []struct {
		name             string
		truth, emu, uerr float64
	}{
		{"flux", r.True.Flux, r.Emulated.Flux, r.Emulated.FluxErr},
		{"x", r.True.X, r.Emulated.X, r.Emulated.XErr},
		{"y", r.True.Y, r.Emulated.Y, r.Emulated.YErr},
		{"Ixx", r.True.Ixx, r.Emulated.Ixx, r.Emulated.IxxErr},
		{"Ixy", r.True.Ixy, r.Emulated.Ixy, r.Emulated.IxyErr},
		{"Iyy", r.True.Iyy, r.Emulated.Iyy, r.Emulated.IyyErr},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.3g\t\n", row.name, row.truth, row.emu, row.uerr)
	}
	return tw.Flush()
}
