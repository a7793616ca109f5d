// validate.go: settings validation
package conf

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// RenderMethods lists the accepted realize.method values
var RenderMethods = []string{"pixel", "analytic"}

const maxGridSize = 4096

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateRealizeSettings,
		validateNoiseSettings,
		validateSurveySettings,
		validateDatastoreSettings,
		validatePaintSettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry is enabled but no DSN is set")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateRealizeSettings(s *Settings) []string {
	var errs []string
	r := &s.Realize

	if r.Workers < 0 {
		errs = append(errs, "realize workers must be >= 0")
	}
	if !slices.Contains(RenderMethods, r.Method) {
		errs = append(errs, fmt.Sprintf("realize method %q must be one of %s", r.Method, strings.Join(RenderMethods, ", ")))
	}
	if r.Grid.Width <= 0 || r.Grid.Width > maxGridSize || r.Grid.Height <= 0 || r.Grid.Height > maxGridSize {
		errs = append(errs, fmt.Sprintf("realize grid must be between 1 and %d pixels per side", maxGridSize))
	}
	if !isPositiveFinite(r.Grid.PixelScale) {
		errs = append(errs, "realize pixel scale must be a positive number")
	}
	if r.ProgressInterval < 0 {
		errs = append(errs, "realize progress interval must be >= 0")
	}
	return errs
}

func validateNoiseSettings(s *Settings) []string {
	var errs []string
	n := &s.Noise

	for name, rn := range map[string]RelativeNoise{
		"flux":          n.Flux,
		"first moment":  n.FirstMoment,
		"second moment": n.SecondMoment,
	} {
		if !isFinite(rn.Mean) || !isFinite(rn.Std) || rn.Std < 0 {
			errs = append(errs, fmt.Sprintf("%s noise needs a finite mean and a non-negative std", name))
		}
	}
	if !isFinite(n.AstrometricStd) || n.AstrometricStd < 0 {
		errs = append(errs, "astrometric std must be >= 0")
	}
	if !isFinite(n.FieldRadius) || n.FieldRadius < 0 || n.FieldRadius >= 90 {
		errs = append(errs, "field radius must be between 0 and 90 degrees")
	}
	slices.Sort(errs)
	return errs
}

func validateSurveySettings(s *Settings) []string {
	var errs []string
	sv := &s.Survey

	if !isPositiveFinite(sv.MaxMJD) {
		errs = append(errs, "survey max MJD must be a positive number")
	}
	if sv.Pointing.RA < 0 || sv.Pointing.RA >= 360 {
		errs = append(errs, "survey pointing RA must be in [0, 360)")
	}
	if sv.Pointing.DEC <= -90 || sv.Pointing.DEC >= 90 {
		errs = append(errs, "survey pointing DEC must be in (-90, 90)")
	}
	if sv.NightFilter.Enabled {
		if sv.NightFilter.Latitude < -90 || sv.NightFilter.Latitude > 90 {
			errs = append(errs, "night filter latitude must be between -90 and 90")
		}
		if sv.NightFilter.Longitude < -180 || sv.NightFilter.Longitude > 180 {
			errs = append(errs, "night filter longitude must be between -180 and 180")
		}
	}
	return errs
}

func validateDatastoreSettings(s *Settings) []string {
	d := &s.Datastore
	if !d.Enabled {
		return nil
	}

	var errs []string
	switch d.Type {
	case "sqlite":
		if d.SQLite.Path == "" {
			errs = append(errs, "sqlite path is required when the sqlite datastore is enabled")
		}
	case "mysql":
		if d.MySQL.Host == "" || d.MySQL.Database == "" {
			errs = append(errs, "mysql host and database are required when the mysql datastore is enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("datastore type %q must be sqlite or mysql", d.Type))
	}
	if d.BatchSize <= 0 {
		errs = append(errs, "datastore batch size must be > 0")
	}
	return errs
}

func validatePaintSettings(s *Settings) []string {
	var errs []string
	if s.Paint.Count < 0 {
		errs = append(errs, "paint count must be >= 0")
	}
	if s.Paint.QuadFraction < 0 || s.Paint.QuadFraction > 1 {
		errs = append(errs, "paint quad fraction must be between 0 and 1")
	}
	return errs
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func isPositiveFinite(v float64) bool {
	return isFinite(v) && v > 0
}
