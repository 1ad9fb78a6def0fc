package species

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
)

// ErrUnknownGroup is returned when a group key has no profile in the catalog
var ErrUnknownGroup = errors.New("unknown species group")

// Profile holds the growth parameters of one functional group
type Profile struct {
	Name              string      `yaml:"name" json:"name"`
	OptimalTemp       float64     `yaml:"optimalTemp" json:"optimalTemp"`             // °C
	TempRange         [2]float64  `yaml:"tempRange" json:"tempRange"`                 // [min, max] °C
	KsPhosphorus      float64     `yaml:"ksPhosphorus" json:"ksPhosphorus"`           // 0 disables P limitation
	KsNitrogen        float64     `yaml:"ksNitrogen" json:"ksNitrogen"`               // 0 disables N limitation
	KsSilicon         float64     `yaml:"ksSilicon" json:"ksSilicon"`                 // 0 disables Si limitation
	Q10               float64     `yaml:"q10" json:"q10"`                             // rate factor per 10 °C
	MixingSensitivity float64     `yaml:"mixingSensitivity" json:"mixingSensitivity"` // [-1, 1], negative = mixing harms
	LightSensitivity  float64     `yaml:"lightSensitivity" json:"lightSensitivity"`   // [0, 1]
	SeasonalPattern   [12]float64 `yaml:"seasonalPattern" json:"seasonalPattern"`     // multiplicative factor per month
	FixesNitrogen     bool        `yaml:"fixesNitrogen" json:"fixesNitrogen"`
}

// Validate checks the profile invariants and reports every violation found
func (p Profile) Validate() error {
	var errs []error

	if p.TempRange[0] > p.TempRange[1] {
		errs = append(errs, fmt.Errorf("temperature range min %.2f exceeds max %.2f", p.TempRange[0], p.TempRange[1]))
	}
	if p.OptimalTemp < p.TempRange[0] || p.OptimalTemp > p.TempRange[1] {
		errs = append(errs, fmt.Errorf("optimal temperature %.2f outside range [%.2f, %.2f]",
			p.OptimalTemp, p.TempRange[0], p.TempRange[1]))
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"ksPhosphorus", p.KsPhosphorus},
		{"ksNitrogen", p.KsNitrogen},
		{"ksSilicon", p.KsSilicon},
		{"q10", p.Q10},
		{"lightSensitivity", p.LightSensitivity},
	} {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %.4f", f.name, f.value))
		}
	}
	if p.LightSensitivity > 1 {
		errs = append(errs, fmt.Errorf("lightSensitivity must be at most 1, got %.4f", p.LightSensitivity))
	}
	if p.MixingSensitivity < -1 || p.MixingSensitivity > 1 {
		errs = append(errs, fmt.Errorf("mixingSensitivity must be in [-1, 1], got %.4f", p.MixingSensitivity))
	}
	for i, f := range p.SeasonalPattern {
		if f < 0 {
			errs = append(errs, fmt.Errorf("seasonal factor for month %d must be non-negative, got %.4f", i+1, f))
		}
	}

	return utilerrors.NewAggregate(errs)
}

// SeasonalFactor returns the multiplicative factor for a 1-based month,
// or 1.0 when the month is out of range.
func (p Profile) SeasonalFactor(month int) float64 {
	if month < 1 || month > common.MonthsPerYear {
		return 1.0
	}
	return p.SeasonalPattern[month-1]
}
