package survey

import (
	"fmt"
	"sync"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// astronomicalDepression is the solar depression, in degrees, at which
// astronomical twilight begins and ends
const astronomicalDepression = 18.0

// daylight is the interval, in MJD, between astronomical dawn and dusk on
// one UTC date
type daylight struct {
	dawn float64
	dusk float64
}

// NightFilter keeps epochs observed during astronomical night at a site.
// Twilight windows are cached per UTC date. Safe for concurrent use.
type NightFilter struct {
	observer astral.Observer
	cache    map[string]daylight
	lock     sync.RWMutex
}

// NewNightFilter creates a filter for the site at latitude, longitude in degrees
func NewNightFilter(latitude, longitude float64) *NightFilter {
	return &NightFilter{
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		cache:    make(map[string]daylight),
	}
}

// IsNight reports whether t falls outside every astronomical daylight
// interval of its UTC date and the dates either side.
func (nf *NightFilter) IsNight(t time.Time) (bool, error) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	mjd := TimeToMJD(t)

	for _, offset := range [...]int{-1, 0, 1} {
		dl, err := nf.daylight(day.AddDate(0, 0, offset))
		if err != nil {
			return false, err
		}
		if mjd >= dl.dawn && mjd <= dl.dusk {
			return false, nil
		}
	}
	return true, nil
}

// Filter returns the epochs observed at night, preserving order
func (nf *NightFilter) Filter(epochs []Epoch) ([]Epoch, error) {
	kept := make([]Epoch, 0, len(epochs))
	for _, ep := range epochs {
		night, err := nf.IsNight(ep.Time())
		if err != nil {
			return nil, fmt.Errorf("night filter for epoch %d: %w", ep.Index, err)
		}
		if night {
			kept = append(kept, ep)
		}
	}
	return kept, nil
}

func (nf *NightFilter) daylight(date time.Time) (daylight, error) {
	key := date.Format(time.DateOnly)

	nf.lock.RLock()
	dl, ok := nf.cache[key]
	nf.lock.RUnlock()
	if ok {
		return dl, nil
	}

	dawn, err := astral.Dawn(nf.observer, date, astronomicalDepression)
	if err != nil {
		return daylight{}, fmt.Errorf("failed to calculate astronomical dawn: %w", err)
	}
	dusk, err := astral.Dusk(nf.observer, date, astronomicalDepression)
	if err != nil {
		return daylight{}, fmt.Errorf("failed to calculate astronomical dusk: %w", err)
	}
	if dusk.Before(dawn) {
		dusk = dusk.AddDate(0, 0, 1)
	}
	dl = daylight{dawn: TimeToMJD(dawn), dusk: TimeToMJD(dusk)}

	nf.lock.Lock()
	nf.cache[key] = dl
	nf.lock.Unlock()
	return dl, nil
}
