package lens

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tphakala/slrealizer/internal/errors"
)

// CSVHeader returns the catalog column order used by WriteCSV
func CSVHeader() []string {
	header := []string{"LENSID", "RA", "DEC", "ZLENS", "ZSRC", "SIGMA", "ELLIP", "PHIE"}
	for _, b := range Bands {
		header = append(header, magColumn(b, "LENS"), magColumn(b, "SRC"))
	}
	header = append(header, "NIMG")
	for _, prefix := range []string{"XIMG", "YIMG", "MAG"} {
		for i := 1; i <= MaxImages; i++ {
			header = append(header, prefix+strconv.Itoa(i))
		}
	}
	return header
}

// magColumn names the magnitude column of band for the lens or source
// component. Header names are matched case-insensitively on read.
func magColumn(band, component string) string {
	return "MAG_" + strings.ToUpper(band) + "_" + component
}

// ReadCSVFile reads a lens catalog CSV file
func ReadCSVFile(path string) ([]*System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("open lens catalog: %w", err), path)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}

// ReadCSV reads systems from a headed CSV stream. Columns are matched by
// header name; band magnitude columns are optional and an empty cell means
// the band is absent.
func ReadCSV(r io.Reader) ([]*System, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.New(fmt.Errorf("read lens catalog header: %w", err)).
			Category(errors.CategoryFileParsing).
			Component("lens").
			Build()
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"LENSID", "SIGMA", "ELLIP", "PHIE", "NIMG"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.InvalidParameter("lens catalog is missing column %s", required).
				Component("lens").
				Build()
		}
	}

	var systems []*System
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("read lens catalog line %d: %w", line, err)).
				Category(errors.CategoryFileParsing).
				Component("lens").
				Build()
		}
		sys, err := parseRow(cols, record)
		if err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}
	return systems, nil
}

type rowParser struct {
	cols   map[string]int
	record []string
	lensID string
	err    error
}

// cell returns the trimmed value of column name, or "" when absent
func (p *rowParser) cell(name string) string {
	i, ok := p.cols[name]
	if !ok || i >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[i])
}

func (p *rowParser) required(name string) float64 {
	v := p.cell(name)
	if v == "" {
		p.fail(name, "is empty")
		return 0
	}
	return p.parse(name, v)
}

func (p *rowParser) optional(name string) (float64, bool) {
	v := p.cell(name)
	if v == "" {
		return 0, false
	}
	return p.parse(name, v), true
}

func (p *rowParser) parse(name, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(name, fmt.Sprintf("value %q is not a number", v))
	}
	return f
}

func (p *rowParser) fail(name, reason string) {
	if p.err == nil {
		p.err = errors.InvalidParameter("lens %s: column %s %s", p.lensID, name, reason).
			Component("lens").
			Context("column", name).
			Build()
	}
}

func parseRow(cols map[string]int, record []string) (*System, error) {
	p := &rowParser{cols: cols, record: record}
	p.lensID = p.cell("LENSID")

	id, err := strconv.Atoi(p.lensID)
	if err != nil {
		return nil, errors.InvalidParameter("lens catalog LENSID %q is not an integer", p.lensID).
			Component("lens").
			Build()
	}

	sys := &System{
		LensID:      id,
		GalaxySigma: p.required("SIGMA"),
		GalaxyEllip: p.required("ELLIP"),
		GalaxyPhi:   p.required("PHIE"),
		LensMag:     make(map[string]float64),
		SrcMag:      make(map[string]float64),
	}
	sys.RA, _ = p.optional("RA")
	sys.DEC, _ = p.optional("DEC")
	sys.ZLens, _ = p.optional("ZLENS")
	sys.ZSrc, _ = p.optional("ZSRC")

	for _, b := range Bands {
		if v, ok := p.optional(magColumn(b, "LENS")); ok {
			sys.LensMag[b] = v
		}
		if v, ok := p.optional(magColumn(b, "SRC")); ok {
			sys.SrcMag[b] = v
		}
	}

	nimg := int(p.required("NIMG"))
	if p.err == nil && (nimg < 1 || nimg > MaxImages) {
		p.fail("NIMG", fmt.Sprintf("value %d outside 1..%d", nimg, MaxImages))
	}
	if p.err != nil {
		return nil, p.err
	}

	sys.Images = make([]Image, nimg)
	for i := range nimg {
		n := strconv.Itoa(i + 1)
		sys.Images[i] = Image{
			X:   p.required("XIMG" + n),
			Y:   p.required("YIMG" + n),
			Mag: p.required("MAG" + n),
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return sys, nil
}

// WriteCSV writes systems with the CSVHeader column order
func WriteCSV(w io.Writer, systems []*System) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader()); err != nil {
		return err
	}

	for _, sys := range systems {
		row := []string{
			strconv.Itoa(sys.LensID),
			formatFloat(sys.RA), formatFloat(sys.DEC),
			formatFloat(sys.ZLens), formatFloat(sys.ZSrc),
			formatFloat(sys.GalaxySigma), formatFloat(sys.GalaxyEllip), formatFloat(sys.GalaxyPhi),
		}
		for _, b := range Bands {
			row = append(row, optionalFloat(sys.LensMag, b), optionalFloat(sys.SrcMag, b))
		}
		row = append(row, strconv.Itoa(sys.NImg()))
		for field := range 3 {
			for i := range MaxImages {
				if i >= sys.NImg() {
					row = append(row, "")
					continue
				}
				img := sys.Images[i]
				row = append(row, formatFloat([...]float64{img.X, img.Y, img.Mag}[field]))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func optionalFloat(m map[string]float64, band string) string {
	if v, ok := m[band]; ok {
		return formatFloat(v)
	}
	return ""
}
