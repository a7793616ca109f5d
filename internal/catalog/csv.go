package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tphakala/slrealizer/internal/errors"
)

// SourceColumns is the fixed source table column order
var SourceColumns = []string{
	"lensid", "MJD", "filter",
	"RA", "RA_err", "DEC", "DEC_err",
	"x", "x_com_err", "y", "y_com_err",
	"flux", "flux_err",
	"qxx", "qxx_err", "qxy", "qxy_err", "qyy", "qyy_err",
	"psf_hwhm", "sky",
}

var (
	objectStats = []string{
		"flux", "x", "y", "qxx", "qxy", "qyy",
		"flux_err", "x_com_err", "y_com_err", "qxx_err", "qxy_err", "qyy_err",
	}
	objectStdStats = []string{"flux_std", "x_std", "y_std", "qxx_std", "qxy_std", "qyy_std"}
)

// ObjectColumns returns lensid followed by <band>_<stat> for every object band
func ObjectColumns(includeStd bool) []string {
	stats := objectStats
	if includeStd {
		stats = append(append([]string{}, objectStats...), objectStdStats...)
	}
	cols := make([]string, 0, 1+len(ObjectBands)*len(stats))
	cols = append(cols, "lensid")
	for _, b := range ObjectBands {
		for _, s := range stats {
			cols = append(cols, b+"_"+s)
		}
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (r *SourceRecord) fields() []string {
	vals := [...]float64{
		r.RA, r.RAErr, r.DEC, r.DECErr,
		r.X, r.XErr, r.Y, r.YErr,
		r.Flux, r.FluxErr,
		r.Ixx, r.IxxErr, r.Ixy, r.IxyErr, r.Iyy, r.IyyErr,
		r.PSFHWHM, r.Sky,
	}
	out := make([]string, 0, len(SourceColumns))
	out = append(out, strconv.Itoa(r.LensID), formatFloat(r.MJD), r.Filter)
	for _, v := range vals {
		out = append(out, formatFloat(v))
	}
	return out
}

// WriteSourceCSV writes the source table with SourceColumns
func WriteSourceCSV(w io.Writer, t *SourceTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SourceColumns); err != nil {
		return err
	}
	for i := range t.Records {
		if err := cw.Write(t.Records[i].fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSourceCSV reads a source table. Columns are matched by name, so extra
// columns and other orders are accepted. EpochIndex is set to the row number.
func ReadSourceCSV(r io.Reader) (*SourceTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.New(fmt.Errorf("read source table header: %w", err)).
			Category(errors.CategoryFileParsing).
			Component("catalog").
			Build()
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	pos := make([]int, len(SourceColumns))
	for i, col := range SourceColumns {
		p, ok := idx[col]
		if !ok {
			return nil, errors.InvalidParameter("source table is missing column %s", col).
				Component("catalog").
				Build()
		}
		pos[i] = p
	}

	t := &SourceTable{}
	for row := 0; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("read source table row %d: %w", row+1, err)).
				Category(errors.CategoryFileParsing).
				Component("catalog").
				Build()
		}
		rec, err := parseSource(record, pos, row)
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func parseSource(record []string, pos []int, row int) (SourceRecord, error) {
	get := func(i int) string { return strings.TrimSpace(record[pos[i]]) }

	lensID, err := strconv.Atoi(get(0))
	if err != nil {
		return SourceRecord{}, errors.InvalidParameter("source row %d: lensid %q is not an integer", row+1, get(0)).
			Component("catalog").
			Build()
	}

	nums := make([]float64, len(SourceColumns))
	for i := range SourceColumns {
		if i == 0 || i == 2 {
			continue
		}
		v, err := strconv.ParseFloat(get(i), 64)
		if err != nil {
			return SourceRecord{}, errors.InvalidParameter("source row %d: %s %q is not a number", row+1, SourceColumns[i], get(i)).
				Component("catalog").
				Build()
		}
		nums[i] = v
	}

	return SourceRecord{
		LensID: lensID, EpochIndex: row, MJD: nums[1], Filter: get(2),
		RA: nums[3], RAErr: nums[4], DEC: nums[5], DECErr: nums[6],
		X: nums[7], XErr: nums[8], Y: nums[9], YErr: nums[10],
		Flux: nums[11], FluxErr: nums[12],
		Ixx: nums[13], IxxErr: nums[14], Ixy: nums[15], IxyErr: nums[16], Iyy: nums[17], IyyErr: nums[18],
		PSFHWHM: nums[19], Sky: nums[20],
	}, nil
}

// WriteObjectCSV writes the object table with ObjectColumns
func WriteObjectCSV(w io.Writer, t *ObjectTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ObjectColumns(t.IncludeStd)); err != nil {
		return err
	}
	for i := range t.Records {
		rec := &t.Records[i]
		row := []string{strconv.Itoa(rec.LensID)}
		for b := range rec.Bands {
			for _, v := range rec.Bands[b].Values(t.IncludeStd) {
				row = append(row, formatFloat(v))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSourceFile reads a source table CSV file
func ReadSourceFile(path string) (*SourceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("open source table: %w", err), path)
	}
	defer func() { _ = f.Close() }()
	return ReadSourceCSV(f)
}

// WriteFile creates path and writes through fn, removing the file on failure
func WriteFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(fmt.Errorf("create output directory: %w", err), path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileError(fmt.Errorf("create %s: %w", path, err), path)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return errors.FileError(fmt.Errorf("write %s: %w", path, err), path)
	}
	if err := f.Close(); err != nil {
		return errors.FileError(fmt.Errorf("close %s: %w", path, err), path)
	}
	return nil
}
