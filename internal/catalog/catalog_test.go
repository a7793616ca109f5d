package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slerrors "github.com/tphakala/slrealizer/internal/errors"
)

func sampleRecord(lensID, epoch int, filter string) SourceRecord {
	f := float64(epoch)
	return SourceRecord{
		LensID: lensID, EpochIndex: epoch, MJD: 59580 + f/3, Filter: filter,
		RA: 53.1 + f, RAErr: 1.0 / 3, DEC: -27.2, DECErr: 1.0 / 3,
		X: 0.12, XErr: 0.01, Y: -0.3, YErr: 0.01,
		Flux: 123.456, FluxErr: 0.2,
		Ixx: 8.1, Ixy: 0.7, Iyy: 6.5,
		PSFHWHM: 0.71, Sky: 21.3,
	}
}

func TestSourceColumns(t *testing.T) {
	t.Parallel()

	assert.Len(t, SourceColumns, 21)
	assert.Equal(t, "lensid", SourceColumns[0])
	r := sampleRecord(1, 0, "r")
	assert.Len(t, r.fields(), len(SourceColumns))
}

func TestObjectColumns(t *testing.T) {
	t.Parallel()

	cols := ObjectColumns(false)
	assert.Len(t, cols, 1+5*12)
	assert.Equal(t, []string{"lensid", "u_flux", "u_x", "u_y", "u_qxx"}, cols[:5])
	assert.Equal(t, "z_qyy_err", cols[len(cols)-1])

	withStd := ObjectColumns(true)
	assert.Len(t, withStd, 1+5*18)
	assert.Equal(t, "u_flux_std", withStd[13])
	assert.Len(t, ObjectColumns(false), 61, "std columns must not leak into the base list")
}

func TestSourceCSV_RoundTrip(t *testing.T) {
	t.Parallel()

	table := &SourceTable{Records: []SourceRecord{
		sampleRecord(7, 0, "r"),
		sampleRecord(9, 1, "g"),
		sampleRecord(7, 2, "u"),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSourceCSV(&buf, table))

	header, err := csv.NewReader(bytes.NewReader(buf.Bytes())).Read()
	require.NoError(t, err)
	assert.Equal(t, SourceColumns, header)

	got, err := ReadSourceCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.Equal(t, []int{7, 9}, got.LensIDs())
}

func TestReadSourceCSV_ReorderedColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSourceCSV(&buf, &SourceTable{Records: []SourceRecord{sampleRecord(3, 0, "i")}}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	for i := range rows {
		rows[i][0], rows[i][20] = rows[i][20], rows[i][0]
		rows[i] = append(rows[i], "extra")
	}
	var shuffled bytes.Buffer
	require.NoError(t, csv.NewWriter(&shuffled).WriteAll(rows))

	got, err := ReadSourceCSV(&shuffled)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 3, got.Records[0].LensID)
	assert.InDelta(t, 21.3, got.Records[0].Sky, 1e-12)
}

func TestReadSourceCSV_Errors(t *testing.T) {
	t.Parallel()

	header := strings.Join(SourceColumns, ",")
	r := sampleRecord(1, 0, "r")
	good := strings.Join(r.fields(), ",")

	tests := []struct {
		name string
		in   string
	}{
		{"missing column", "lensid,MJD\n1,2\n"},
		{"bad id", header + "\n" + strings.Replace(good, "1", "one", 1) + "\n"},
		{"bad number", header + "\n" + strings.Replace(good, "123.456", "many", 1) + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadSourceCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, slerrors.IsInvalidParameter(err))
		})
	}
}

func TestWriteObjectCSV(t *testing.T) {
	t.Parallel()

	rec := ObjectRecord{LensID: 42}
	for i := range rec.Bands {
		rec.Bands[i] = BandStats{Flux: float64(i + 1), FluxStd: 0.5}
	}
	table := &ObjectTable{Records: []ObjectRecord{rec}, IncludeStd: true}

	var buf bytes.Buffer
	require.NoError(t, WriteObjectCSV(&buf, table))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ObjectColumns(true), rows[0])
	assert.Equal(t, "42", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "0.5", rows[1][13])
	assert.Equal(t, "5", rows[1][1+4*18])
}

func TestObjectRecord_Finite(t *testing.T) {
	t.Parallel()

	rec := ObjectRecord{LensID: 1}
	assert.True(t, rec.IsFinite(true))

	rec.Bands[2] = MissingBand()
	assert.False(t, rec.IsFinite(false))

	rec = ObjectRecord{LensID: 1}
	rec.Bands[0].XStd = math.NaN()
	assert.True(t, rec.IsFinite(false), "std fields are ignored when not written")
	assert.False(t, rec.IsFinite(true))

	b, ok := rec.Band("r")
	assert.True(t, ok)
	assert.Zero(t, b.Flux)
	_, ok = rec.Band("y")
	assert.False(t, ok)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out", "table.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "ok\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))

	failing := filepath.Join(dir, "failing.csv")
	err = WriteFile(failing, func(io.Writer) error { return errors.New("disk full") })
	require.Error(t, err)
	assert.NoFileExists(t, failing)

	_, err = ReadSourceFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, slerrors.IsCategory(err, slerrors.CategoryFileIO))
}
