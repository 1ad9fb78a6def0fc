// Package store persists the caller-owned observation samples the forecast
// and PCA engines read.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

// Supported drivers
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// SampleStore persists dated group observations. Storing a sample for a date
// that already exists replaces the stored values for the groups it carries.
type SampleStore interface {
	Store(sample series.Sample) error
	// Range returns samples dated within [start, end] in date order
	Range(start, end time.Time) ([]series.Sample, error)
	// All returns every stored sample in date order
	All() ([]series.Sample, error)
	// Cleanup removes samples dated more than retentionDays before now
	Cleanup(retentionDays int) error
	Close() error
}

// Open creates the store for driver rooted at path
func Open(driver, path string, clk clock.Clock) (SampleStore, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(path, clk)
	case DriverFile:
		return NewFileStore(path, clk)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// ReadSamplesFile decodes a JSON array of samples and sorts it by date
func ReadSamplesFile(path string) ([]series.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples file: %w", err)
	}
	var samples []series.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse samples file %s: %w", path, err)
	}
	for i := range samples {
		samples[i].Date = samples[i].Date.UTC()
	}
	series.SortByDate(samples)
	return samples, nil
}

// StoreAll stores every sample, stopping at the first failure
func StoreAll(s SampleStore, samples []series.Sample) error {
	for i, sample := range samples {
		if err := s.Store(sample); err != nil {
			return fmt.Errorf("sample %d (%s): %w", i, sample.Date.Format(time.DateOnly), err)
		}
	}
	return nil
}

func cutoff(clk clock.Clock, retentionDays int) time.Time {
	return clk.Now().UTC().AddDate(0, 0, -retentionDays)
}
