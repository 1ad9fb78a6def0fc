// Package spatial builds biomass heatmaps by evaluating the response model
// over a grid of independently jittered environmental conditions.
package spatial

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/response"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/species"
)

// ErrInvalidDimensions is returned for non-positive grid sizes
var ErrInvalidDimensions = errors.New("grid dimensions must be positive")

// Jitter half-widths applied to each cell's copy of the base conditions
const (
	TemperatureJitter = 1.0
	PhosphorusJitter  = 0.05
	NitrogenJitter    = 0.1
	SiliconJitter     = 0.25
	LightJitter       = 0.1
)

// Options configures a Synthesizer
type Options struct {
	// Seed makes the output reproducible. Jitter is derived from the seed
	// and the cell index, so results do not depend on evaluation order.
	Seed *int64
	// Workers bounds the number of rows evaluated concurrently.
	// Zero means GOMAXPROCS.
	Workers int
}

// Synthesizer builds heatmaps for the groups of a catalog
type Synthesizer struct {
	catalog *species.Catalog
	seed    *int64
	workers int
}

// NewSynthesizer creates a synthesizer backed by catalog
func NewSynthesizer(catalog *species.Catalog, opts Options) *Synthesizer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Synthesizer{
		catalog: catalog,
		seed:    opts.Seed,
		workers: workers,
	}
}

// BuildHeatmapForGroup looks up the group's profile and builds its heatmap
func (s *Synthesizer) BuildHeatmapForGroup(ctx context.Context, key common.GroupKey, base response.Conditions, width, height int) (Grid, error) {
	p, err := s.catalog.Lookup(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build heatmap: %w", err)
	}
	return s.BuildHeatmap(ctx, p, base, width, height)
}

// BuildHeatmap returns a height×width grid of response values, one
// independent evaluation per cell.
func (s *Synthesizer) BuildHeatmap(ctx context.Context, p species.Profile, base response.Conditions, width, height int) (Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}

	start := time.Now()
	grid := NewGrid(width, height)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for y := 0; y < height; y++ {
		row := y
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rowRand *rand.Rand
			if s.seed == nil {
				rowRand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			}
			for x := 0; x < width; x++ {
				r := rowRand
				if r == nil {
					r = s.cellRand(row*width + x)
				}
				grid[row][x] = response.Compute(p, Perturb(base, r))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("heatmap synthesis interrupted: %w", err)
	}

	klog.V(3).InfoS("Built heatmap",
		"group", p.Name,
		"width", width,
		"height", height,
		"seeded", s.seed != nil,
		"duration", time.Since(start))

	return grid, nil
}

// cellRand returns the deterministic jitter stream of one cell
func (s *Synthesizer) cellRand(cell int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(*s.seed), uint64(cell)))
}

// Perturb returns a copy of base with uniform noise added to temperature,
// nutrients and light. Draw order is fixed so a seeded source is reproducible.
func Perturb(base response.Conditions, r *rand.Rand) response.Conditions {
	env := base
	env.Temperature += uniform(r, TemperatureJitter)
	env.Phosphorus += uniform(r, PhosphorusJitter)
	env.Nitrogen += uniform(r, NitrogenJitter)
	env.Silicon += uniform(r, SiliconJitter)
	env.Light += uniform(r, LightJitter)
	return env
}

func uniform(r *rand.Rand, halfWidth float64) float64 {
	return (r.Float64()*2 - 1) * halfWidth
}
