package pipeline

import (
	"fmt"

	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/hostinfo"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/logger"
	"github.com/tphakala/slrealizer/internal/survey"
)

// LoadLenses reads the lens catalog named by the input settings
func LoadLenses(settings *conf.Settings) (*lens.Catalog, error) {
	if settings.Input.Catalog == "" {
		return nil, missingInput("lens catalog", "--catalog")
	}
	return lens.LoadCatalog(settings.Input.Catalog)
}

// LoadEpochs reads and selects the observation history, then applies the
// night filter when it is enabled
func LoadEpochs(settings *conf.Settings, log logger.Logger) ([]survey.Epoch, error) {
	if settings.Input.Observations == "" {
		return nil, missingInput("observation history", "--observations")
	}

	sel := survey.Selection{
		MaxMJD:         settings.Survey.MaxMJD,
		ExcludeFilters: settings.Survey.ExcludeFilters,
	}
	epochs, err := survey.LoadObservations(settings.Input.Observations, sel)
	if err != nil {
		return nil, err
	}

	nf := settings.Survey.NightFilter
	if !nf.Enabled {
		return epochs, nil
	}
	night, err := survey.NewNightFilter(nf.Latitude, nf.Longitude).Filter(epochs)
	if err != nil {
		return nil, errors.New(fmt.Errorf("night filter: %w", err)).
			Category(errors.CategoryValidation).
			Component("pipeline").
			Build()
	}
	log.Info("night filter applied",
		logger.Int("epochs_in", len(epochs)),
		logger.Int("epochs_kept", len(night)))
	return night, nil
}

// Workers resolves the worker count. Zero picks the optimal count for the
// host CPU, capped so the per-worker render images fit in available memory.
func Workers(settings *conf.Settings, log logger.Logger) int {
	if settings.Realize.Workers > 0 {
		return settings.Realize.Workers
	}

	spec := hostinfo.GetCPUSpec()
	workers := spec.OptimalWorkers()

	grid := settings.Realize.Grid
	perWorker := hostinfo.GridBytes(grid.Width, grid.Height)
	fields := []logger.Field{
		logger.String("cpu", spec.BrandName),
		logger.Int("performance_cores", spec.PerformanceCores),
		logger.Bool("avx2", spec.AVX2),
	}
	if mem, err := hostinfo.GetMemoryInfo(); err == nil {
		workers = hostinfo.CapWorkers(workers, perWorker, mem.Available)
		fields = append(fields, logger.Uint64("memory_available", mem.Available))
	} else {
		log.Debug("memory statistics unavailable", logger.Error(err))
	}
	log.Debug("worker count selected", append(fields, logger.Int("workers", workers))...)
	return workers
}

func missingInput(what, flag string) error {
	return errors.Newf("%s path is required, set it with %s", what, flag).
		Category(errors.CategoryConfiguration).
		Component("pipeline").
		Build()
}
