package pipeline

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/logger"
)

// Paint writes a synthetic lens catalog to path. The format follows the
// extension: .csv, .yaml or .yml.
func Paint(rt *Runtime, path string) ([]*lens.System, error) {
	p := rt.Settings.Paint

	var encode func(io.Writer, []*lens.System) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		encode = lens.WriteCSV
	case ".yaml", ".yml":
		encode = lens.WriteYAML
	default:
		return nil, errors.Newf("unsupported lens catalog format %q", filepath.Ext(path)).
			Category(errors.CategoryValidation).
			Component("pipeline").
			FileContext(path).
			Build()
	}

	systems := lens.NewPainter(p.Seed, p.QuadFraction, p.FirstID).PaintN(p.Count)
	if err := catalog.WriteFile(path, func(w io.Writer) error { return encode(w, systems) }); err != nil {
		return nil, err
	}
	rt.log().Info("lens catalog painted",
		logger.String("path", path),
		logger.Int("systems", len(systems)),
		logger.Uint64("seed", p.Seed))
	return systems, nil
}
