// model.go defines the database model for realized tables
package datastore

import (
	"math"
	"time"

	"github.com/tphakala/slrealizer/internal/catalog"
)

// Run records one realization batch. Every stored row references its run.
type Run struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `gorm:"index"`
	Seed      uint64
	Method    string `gorm:"type:varchar(16)"`
	Pairs     int
	Rows      int
	Failures  int
}

// SourceRow is one source table record
type SourceRow struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"type:varchar(36);index:idx_source_rows_run_lens"`
	LensID     int    `gorm:"index:idx_source_rows_run_lens"`
	EpochIndex int
	MJD        float64
	Filter     string `gorm:"type:varchar(4)"`
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

// ObjectRow is one band of an object record. Standard deviations are NULL
// when they were not requested.
type ObjectRow struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   string `gorm:"type:varchar(36);uniqueIndex:idx_object_rows_run_lens_band"`
	LensID  int    `gorm:"uniqueIndex:idx_object_rows_run_lens_band"`
	Band    string `gorm:"type:varchar(4);uniqueIndex:idx_object_rows_run_lens_band"`
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
	FluxStd *float64
	XStd    *float64
	YStd    *float64
	IxxStd  *float64
	IxyStd  *float64
	IyyStd  *float64
}

func newSourceRow(runID string, r *catalog.SourceRecord) SourceRow {
	return SourceRow{
		RunID: runID, LensID: r.LensID, EpochIndex: r.EpochIndex, MJD: r.MJD, Filter: r.Filter,
		RA: r.RA, RAErr: r.RAErr, DEC: r.DEC, DECErr: r.DECErr,
		X: r.X, XErr: r.XErr, Y: r.Y, YErr: r.YErr,
		Flux: r.Flux, FluxErr: r.FluxErr,
		Ixx: r.Ixx, IxxErr: r.IxxErr, Ixy: r.Ixy, IxyErr: r.IxyErr, Iyy: r.Iyy, IyyErr: r.IyyErr,
		PSFHWHM: r.PSFHWHM, Sky: r.Sky,
	}
}

func (s *SourceRow) record() catalog.SourceRecord {
	return catalog.SourceRecord{
		LensID: s.LensID, EpochIndex: s.EpochIndex, MJD: s.MJD, Filter: s.Filter,
		RA: s.RA, RAErr: s.RAErr, DEC: s.DEC, DECErr: s.DECErr,
		X: s.X, XErr: s.XErr, Y: s.Y, YErr: s.YErr,
		Flux: s.Flux, FluxErr: s.FluxErr,
		Ixx: s.Ixx, IxxErr: s.IxxErr, Ixy: s.Ixy, IxyErr: s.IxyErr, Iyy: s.Iyy, IyyErr: s.IyyErr,
		PSFHWHM: s.PSFHWHM, Sky: s.Sky,
	}
}

// optional keeps finite values only; SQL has no NaN
func optional(v float64, keep bool) *float64 {
	if !keep || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newObjectRows(runID string, o *catalog.ObjectRecord, includeStd bool) []ObjectRow {
	rows := make([]ObjectRow, 0, len(o.Bands))
	for i, band := range catalog.ObjectBands {
		b := &o.Bands[i]
		rows = append(rows, ObjectRow{
			RunID: runID, LensID: o.LensID, Band: band,
			Flux: b.Flux, X: b.X, Y: b.Y, Ixx: b.Ixx, Ixy: b.Ixy, Iyy: b.Iyy,
			FluxErr: b.FluxErr, XErr: b.XErr, YErr: b.YErr, IxxErr: b.IxxErr, IxyErr: b.IxyErr, IyyErr: b.IyyErr,
			FluxStd: optional(b.FluxStd, includeStd),
			XStd:    optional(b.XStd, includeStd),
			YStd:    optional(b.YStd, includeStd),
			IxxStd:  optional(b.IxxStd, includeStd),
			IxyStd:  optional(b.IxyStd, includeStd),
			IyyStd:  optional(b.IyyStd, includeStd),
		})
	}
	return rows
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func (r *ObjectRow) bandStats() catalog.BandStats {
	return catalog.BandStats{
		Flux: r.Flux, X: r.X, Y: r.Y, Ixx: r.Ixx, Ixy: r.Ixy, Iyy: r.Iyy,
		FluxErr: r.FluxErr, XErr: r.XErr, YErr: r.YErr, IxxErr: r.IxxErr, IxyErr: r.IxyErr, IyyErr: r.IyyErr,
		FluxStd: deref(r.FluxStd), XStd: deref(r.XStd), YStd: deref(r.YStd),
		IxxStd: deref(r.IxxStd), IxyStd: deref(r.IxyStd), IyyStd: deref(r.IyyStd),
	}
}
