package survey

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/slrealizer/internal/errors"
)

// Selection decides which rows of an observation history become epochs
type Selection struct {
	MaxMJD         float64  // rows at or after MaxMJD are skipped, 0 disables
	ExcludeFilters []string // bands to skip
}

// Accept reports whether an epoch passes the selection
func (s Selection) Accept(e Epoch) bool {
	if s.MaxMJD > 0 && e.MJD >= s.MaxMJD {
		return false
	}
	return !slices.Contains(s.ExcludeFilters, e.Filter)
}

// pointingColumn locates an optional pointing column and the factor that
// converts its values to degrees
type pointingColumn struct {
	index int
	scale float64
}

const degreesPerRadian = 180 / math.Pi

// Header names recognized for the optional pointing columns. OpSim histories
// store fieldRA and fieldDec in radians; ra and dec are read as degrees.
var (
	raColumns  = map[string]float64{"fieldra": degreesPerRadian, "ra": 1}
	decColumns = map[string]float64{"fielddec": degreesPerRadian, "dec": 1}
)

// LoadObservations reads and selects epochs from an observation CSV file
func LoadObservations(path string, sel Selection) ([]Epoch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("open observation history: %w", err), path)
	}
	defer func() { _ = f.Close() }()

	return ReadObservations(f, sel)
}

// ReadObservations reads epochs from CSV. The first four fields of every row
// are MJD, filter, PSF half width and sky magnitude. A header row is
// optional; when present, the field centre is picked up by name from
// fieldRA/fieldDec in radians or ra/dec in degrees. Epoch pointings are
// always degrees.
func ReadObservations(r io.Reader, sel Selection) ([]Epoch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	raCol, decCol := pointingColumn{index: -1}, pointingColumn{index: -1}
	var epochs []Epoch
	index := 0

	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("read observation history line %d: %w", line, err)).
				Category(errors.CategoryFileParsing).
				Component("survey").
				Build()
		}

		if line == 1 && isHeader(record) {
			raCol, decCol = findColumn(record, raColumns), findColumn(record, decColumns)
			continue
		}

		ep, err := parseEpoch(record, index, raCol, decCol)
		if err != nil {
			return nil, err
		}
		index++

		if sel.Accept(ep) {
			epochs = append(epochs, ep)
		}
	}
	return epochs, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	return err != nil
}

func findColumn(header []string, names map[string]float64) pointingColumn {
	for i, h := range header {
		if scale, ok := names[strings.ToLower(strings.TrimSpace(h))]; ok {
			return pointingColumn{index: i, scale: scale}
		}
	}
	return pointingColumn{index: -1}
}

func (c pointingColumn) value(record []string) (float64, bool) {
	if c.index < 0 || c.index >= len(record) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[c.index]), 64)
	if err != nil {
		return 0, false
	}
	return v * c.scale, true
}

func parseEpoch(record []string, index int, raCol, decCol pointingColumn) (Epoch, error) {
	invalid := func(format string, args ...any) error {
		return errors.InvalidParameter("observation %d: "+format, append([]any{index}, args...)...).
			Component("survey").
			Context("epoch_index", index).
			Build()
	}

	if len(record) < 4 {
		return Epoch{}, invalid("expected at least 4 fields, got %d", len(record))
	}

	var nums [3]float64
	for i, col := range [...]int{0, 2, 3} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return Epoch{}, invalid("field %d %q is not a number", col+1, record[col])
		}
		nums[i] = v
	}

	ep := Epoch{
		Index:   index,
		MJD:     nums[0],
		Filter:  strings.TrimSpace(record[1]),
		PSFHWHM: nums[1],
		SkyMag:  nums[2],
	}
	if ep.Filter == "" {
		return Epoch{}, invalid("filter is empty")
	}

	ra, okRA := raCol.value(record)
	dec, okDec := decCol.value(record)
	if okRA && okDec {
		ep.FieldRA, ep.FieldDEC, ep.HasPointing = ra, dec, true
	}
	return ep, nil
}

// WriteObservations writes epochs in the layout ReadObservations accepts
func WriteObservations(w io.Writer, epochs []Epoch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"expMJD", "filter", "psf_hwhm", "sky", "ra", "dec"}); err != nil {
		return err
	}
	for _, ep := range epochs {
		row := []string{
			strconv.FormatFloat(ep.MJD, 'g', -1, 64),
			ep.Filter,
			strconv.FormatFloat(ep.PSFHWHM, 'g', -1, 64),
			strconv.FormatFloat(ep.SkyMag, 'g', -1, 64),
			"", "",
		}
		if ep.HasPointing {
			row[4] = strconv.FormatFloat(ep.FieldRA, 'g', -1, 64)
			row[5] = strconv.FormatFloat(ep.FieldDEC, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
