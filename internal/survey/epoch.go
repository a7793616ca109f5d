// Package survey reads observation histories and selects the epochs a
// catalog is realized at.
package survey

import (
	"math"
	"time"
)

// mjdUnixEpoch is the MJD of 1970-01-01T00:00:00Z
const mjdUnixEpoch = 40587.0

const secondsPerDay = 86400.0

// Epoch is one survey visit. Epochs are immutable.
type Epoch struct {
	Index   int     // row index in the observation history
	MJD     float64 // modified Julian date
	Filter  string  // band
	PSFHWHM float64 // PSF half width at half maximum, arcsec
	SkyMag  float64 // sky brightness, mag/arcsec^2

	// Field centre in degrees, valid when HasPointing is set
	FieldRA     float64
	FieldDEC    float64
	HasPointing bool
}

// Time returns the epoch as a UTC time
func (e Epoch) Time() time.Time {
	return MJDToTime(e.MJD)
}

// MJDToTime converts a modified Julian date to UTC
func MJDToTime(mjd float64) time.Time {
	secs := (mjd - mjdUnixEpoch) * secondsPerDay
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

// TimeToMJD converts a time to a modified Julian date
func TimeToMJD(t time.Time) float64 {
	return mjdUnixEpoch + float64(t.UnixNano())/1e9/secondsPerDay
}
