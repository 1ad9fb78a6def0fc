package species

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
)

// Catalog is an immutable table of profiles keyed by functional group.
// Methods that change the table return a new Catalog.
type Catalog struct {
	profiles map[common.GroupKey]Profile
}

// DefaultCatalog returns the five Lake Kinneret functional groups
func DefaultCatalog() *Catalog {
	return &Catalog{profiles: map[common.GroupKey]Profile{
		common.GroupDiatoms: {
			Name:              "Diatoms",
			OptimalTemp:       18,
			TempRange:         [2]float64{5, 25},
			KsPhosphorus:      0.1,
			KsNitrogen:        0.2,
			KsSilicon:         0.3,
			Q10:               2.0,
			MixingSensitivity: 0.5,
			LightSensitivity:  0.6,
			SeasonalPattern:   [12]float64{1.2, 1.3, 1.2, 1.0, 0.7, 0.5, 0.4, 0.4, 0.5, 0.7, 0.9, 1.1},
		},
		common.GroupDinoflagellates: {
			Name:              "Dinoflagellates",
			OptimalTemp:       20,
			TempRange:         [2]float64{10, 28},
			KsPhosphorus:      0.05,
			KsNitrogen:        0.3,
			Q10:               1.8,
			MixingSensitivity: -0.6,
			LightSensitivity:  0.7,
			SeasonalPattern:   [12]float64{0.6, 0.9, 1.3, 1.5, 1.2, 0.6, 0.3, 0.2, 0.2, 0.3, 0.4, 0.5},
		},
		common.GroupSmallPhyto: {
			Name:              "Small phytoplankton",
			OptimalTemp:       24,
			TempRange:         [2]float64{10, 32},
			KsPhosphorus:      0.03,
			KsNitrogen:        0.2,
			Q10:               2.0,
			MixingSensitivity: 0.1,
			LightSensitivity:  0.5,
			SeasonalPattern:   [12]float64{0.7, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.2, 1.1, 1.0, 0.9, 0.8},
		},
		common.GroupNFixers: {
			Name:              "Nitrogen fixers",
			OptimalTemp:       28,
			TempRange:         [2]float64{18, 35},
			KsPhosphorus:      0.08,
			Q10:               2.2,
			MixingSensitivity: -0.4,
			LightSensitivity:  0.8,
			SeasonalPattern:   [12]float64{0.2, 0.2, 0.3, 0.4, 0.7, 1.1, 1.4, 1.5, 1.3, 0.9, 0.5, 0.3},
			FixesNitrogen:     true,
		},
		common.GroupMicrocystis: {
			Name:              "Microcystis",
			OptimalTemp:       26,
			TempRange:         [2]float64{15, 35},
			KsPhosphorus:      0.06,
			KsNitrogen:        0.4,
			Q10:               2.5,
			MixingSensitivity: -0.8,
			LightSensitivity:  0.6,
			SeasonalPattern:   [12]float64{0.5, 0.4, 0.4, 0.5, 0.7, 0.9, 1.1, 1.2, 1.3, 1.2, 0.9, 0.7},
		},
	}}
}

// Lookup returns the profile for a group key
func (c *Catalog) Lookup(key common.GroupKey) (Profile, error) {
	p, ok := c.profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownGroup, key)
	}
	return p, nil
}

// Has reports whether the catalog holds a profile for key
func (c *Catalog) Has(key common.GroupKey) bool {
	_, ok := c.profiles[key]
	return ok
}

// Keys returns the catalog's group keys in sorted order
func (c *Catalog) Keys() []common.GroupKey {
	keys := sets.New[common.GroupKey]()
	for k := range c.profiles {
		keys.Insert(k)
	}
	return sets.List(keys)
}

// With returns a copy of the catalog where key maps to p.
// The profile is validated first; the receiver is never modified.
func (c *Catalog) With(key common.GroupKey, p Profile) (*Catalog, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile for %s: %w", key, err)
	}

	next := make(map[common.GroupKey]Profile, len(c.profiles)+1)
	for k, v := range c.profiles {
		next[k] = v
	}
	if _, exists := next[key]; exists {
		klog.V(2).InfoS("Overriding species profile", "group", key)
	}
	next[key] = p

	return &Catalog{profiles: next}, nil
}

// Validate checks every profile in the catalog
func (c *Catalog) Validate() error {
	for _, key := range c.Keys() {
		if err := c.profiles[key].Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", key, err)
		}
	}
	return nil
}
