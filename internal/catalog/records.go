// Package catalog defines the source and object table records and their
// CSV layout.
package catalog

import "math"

// ObjectBands are the bands aggregated into object records, in column order
var ObjectBands = []string{"u", "g", "r", "i", "z"}

// SourceRecord is one realized (lens, epoch) measurement. Positions are
// pixels relative to the lens galaxy, second moments are pixels squared and
// RA/DEC are degrees.
type SourceRecord struct {
	LensID     int
	EpochIndex int // not part of the CSV layout
	MJD        float64
	Filter     string
	RA         float64
	RAErr      float64
	DEC        float64
	DECErr     float64
	X          float64
	XErr       float64
	Y          float64
	YErr       float64
	Flux       float64
	FluxErr    float64
	Ixx        float64
	IxxErr     float64
	Ixy        float64
	IxyErr     float64
	Iyy        float64
	IyyErr     float64
	PSFHWHM    float64
	Sky        float64
}

// BandStats aggregates the source records of one lens in one band
type BandStats struct {
	Flux    float64
	X       float64
	Y       float64
	Ixx     float64
	Ixy     float64
	Iyy     float64
	FluxErr float64
	XErr    float64
	YErr    float64
	IxxErr  float64
	IxyErr  float64
	IyyErr  float64

	// Sample standard deviations, only written when requested
	FluxStd float64
	XStd    float64
	YStd    float64
	IxxStd  float64
	IxyStd  float64
	IyyStd  float64
}

// MissingBand returns stats for a band without measurements: every field is NaN
func MissingBand() BandStats {
	nan := math.NaN()
	return BandStats{
		Flux: nan, X: nan, Y: nan, Ixx: nan, Ixy: nan, Iyy: nan,
		FluxErr: nan, XErr: nan, YErr: nan, IxxErr: nan, IxyErr: nan, IyyErr: nan,
		FluxStd: nan, XStd: nan, YStd: nan, IxxStd: nan, IxyStd: nan, IyyStd: nan,
	}
}

// Values returns the statistics in column order
func (b *BandStats) Values(includeStd bool) []float64 {
	vals := []float64{
		b.Flux, b.X, b.Y, b.Ixx, b.Ixy, b.Iyy,
		b.FluxErr, b.XErr, b.YErr, b.IxxErr, b.IxyErr, b.IyyErr,
	}
	if includeStd {
		vals = append(vals, b.FluxStd, b.XStd, b.YStd, b.IxxStd, b.IxyStd, b.IyyStd)
	}
	return vals
}

// ObjectRecord is one lens aggregated over epochs, with one entry per ObjectBands band
type ObjectRecord struct {
	LensID int
	Bands  [5]BandStats
}

// Band returns the stats of the named band
func (o *ObjectRecord) Band(band string) (BandStats, bool) {
	for i, b := range ObjectBands {
		if b == band {
			return o.Bands[i], true
		}
	}
	return BandStats{}, false
}

// IsFinite reports whether every written field is finite
func (o *ObjectRecord) IsFinite(includeStd bool) bool {
	for i := range o.Bands {
		for _, v := range o.Bands[i].Values(includeStd) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// SourceTable is an ordered set of source records
type SourceTable struct {
	Records []SourceRecord
}

// Len returns the number of rows
func (t *SourceTable) Len() int {
	return len(t.Records)
}

// LensIDs returns the distinct lens ids in first-appearance order
func (t *SourceTable) LensIDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	for i := range t.Records {
		id := t.Records[i].LensID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// ObjectTable is an ordered set of object records
type ObjectTable struct {
	Records    []ObjectRecord
	IncludeStd bool
}

// Len returns the number of rows
func (t *ObjectTable) Len() int {
	return len(t.Records)
}
