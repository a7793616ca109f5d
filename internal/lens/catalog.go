package lens

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/slrealizer/internal/errors"
)

// Catalog is an ordered, immutable set of systems with lookup by LENSID.
// It is safe for concurrent use.
type Catalog struct {
	systems []*System
	index   *cache.Cache
}

// NewCatalog validates systems and indexes them by id. Duplicate ids are rejected.
func NewCatalog(systems []*System) (*Catalog, error) {
	index := cache.New(cache.NoExpiration, 0)
	for _, sys := range systems {
		if err := sys.Validate(); err != nil {
			return nil, err
		}
		if err := index.Add(cacheKey(sys.LensID), sys, cache.NoExpiration); err != nil {
			return nil, errors.InvalidParameter("duplicate LENSID %d in catalog", sys.LensID).
				Component("lens").
				Context("lens_id", sys.LensID).
				Build()
		}
	}
	return &Catalog{systems: systems, index: index}, nil
}

// LoadCatalog reads a catalog from a .csv, .yaml or .yml file
func LoadCatalog(path string) (*Catalog, error) {
	var (
		systems []*System
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		systems, err = ReadCSVFile(path)
	case ".yaml", ".yml":
		systems, err = ReadYAMLFile(path)
	default:
		return nil, errors.Newf("unsupported lens catalog format %q", filepath.Ext(path)).
			Category(errors.CategoryValidation).
			Component("lens").
			FileContext(path).
			Build()
	}
	if err != nil {
		return nil, err
	}
	return NewCatalog(systems)
}

// Get returns the system with the given LENSID
func (c *Catalog) Get(id int) (*System, error) {
	v, ok := c.index.Get(cacheKey(id))
	if !ok {
		return nil, errors.Newf("lens %d not found in catalog", id).
			Category(errors.CategoryNotFound).
			Component("lens").
			Build()
	}
	return v.(*System), nil
}

// Systems returns the systems in catalog order
func (c *Catalog) Systems() []*System {
	return c.systems
}

// Len returns the number of systems
func (c *Catalog) Len() int {
	return len(c.systems)
}

func cacheKey(id int) string {
	return strconv.Itoa(id)
}
