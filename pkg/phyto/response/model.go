// Package response evaluates the multi-factor phytoplankton growth response
// for a functional group under given environmental conditions.
package response

import (
	"fmt"
	"math"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/numeric"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/species"
)

// Conditions describes the environment at one point in the lake
type Conditions struct {
	Temperature   float64 `json:"temperature" yaml:"temperature"`     // °C
	WindSpeed     float64 `json:"windSpeed" yaml:"windSpeed"`         // m/s
	WindDirection float64 `json:"windDirection" yaml:"windDirection"` // degrees, not used by the model
	Light         float64 `json:"light" yaml:"light"`                 // fraction 0-1
	Phosphorus    float64 `json:"phosphorus" yaml:"phosphorus"`
	Nitrogen      float64 `json:"nitrogen" yaml:"nitrogen"`
	Silicon       float64 `json:"silicon" yaml:"silicon"`
	Depth         float64 `json:"depth" yaml:"depth"` // m
	Month         int     `json:"month" yaml:"month"` // 1-12
}

// Terms holds every limitation factor of a single evaluation
type Terms struct {
	Temperature float64 `json:"temperature"`
	Phosphorus  float64 `json:"phosphorus"`
	Nitrogen    float64 `json:"nitrogen"`
	Silicon     float64 `json:"silicon"`
	Light       float64 `json:"light"`
	Mixing      float64 `json:"mixing"`
	Seasonal    float64 `json:"seasonal"`
	Value       float64 `json:"value"`
}

// Nutrient returns the combined nutrient limitation
func (t Terms) Nutrient() float64 {
	return t.Phosphorus * t.Nitrogen * t.Silicon
}

// Compute returns the non-negative growth response of a group
func Compute(p species.Profile, env Conditions) float64 {
	return Breakdown(p, env).Value
}

// ComputeForGroup looks up the group in the catalog and evaluates it
func ComputeForGroup(catalog *species.Catalog, key common.GroupKey, env Conditions) (float64, error) {
	p, err := catalog.Lookup(key)
	if err != nil {
		return 0, fmt.Errorf("failed to compute response: %w", err)
	}
	return Compute(p, env), nil
}

// Breakdown evaluates every term and their product.
// Individual terms are not clamped; only the product is bounded at zero.
func Breakdown(p species.Profile, env Conditions) Terms {
	t := Terms{
		Temperature: TemperatureTerm(p, env.Temperature),
		Phosphorus:  numeric.Saturating(env.Phosphorus, p.KsPhosphorus),
		Nitrogen:    1,
		Silicon:     1,
		Light:       env.Light*p.LightSensitivity + (1 - p.LightSensitivity),
		Mixing:      1 + p.MixingSensitivity*MixingIndex(env.WindSpeed, env.Depth),
		Seasonal:    p.SeasonalFactor(env.Month),
	}
	if !p.FixesNitrogen {
		t.Nitrogen = numeric.Saturating(env.Nitrogen, p.KsNitrogen)
	}
	if p.KsSilicon != 0 {
		t.Silicon = numeric.Saturating(env.Silicon, p.KsSilicon)
	}

	t.Value = numeric.NonNegative(t.Temperature * t.Nutrient() * t.Light * t.Mixing * t.Seasonal)
	return t
}

// TemperatureTerm combines Q10 kinetics with a triangular tolerance window.
// Temperatures outside the profile's range give 0.
func TemperatureTerm(p species.Profile, temp float64) float64 {
	tMin, tMax := p.TempRange[0], p.TempRange[1]
	if temp < tMin || temp > tMax {
		return 0
	}

	span := math.Max(p.OptimalTemp-tMin, tMax-p.OptimalTemp)
	rangeFactor := 1.0
	if span > 0 {
		rangeFactor = numeric.NonNegative(1 - math.Abs(temp-p.OptimalTemp)/span)
	}

	return numeric.Q10(p.Q10, temp, p.OptimalTemp) * rangeFactor
}

// MixingIndex is a 0-1 measure of wind-driven mixing of the water column.
// A non-positive depth counts as fully mixed whenever there is wind.
func MixingIndex(windSpeed, depth float64) float64 {
	if depth <= 0 {
		if windSpeed != 0 {
			return 1
		}
		return 0
	}
	return math.Min(1, windSpeed*windSpeed/depth/10)
}
