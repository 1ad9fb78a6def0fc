package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

const (
	filePrefix      = "samples_"
	fileMonthLayout = "2006-01"
)

// FileStore keeps one JSON file of samples per calendar month
type FileStore struct {
	dataDir string
	clock   clock.Clock
	mutex   sync.RWMutex
}

// NewFileStore creates dataDir if needed
func NewFileStore(dataDir string, clk clock.Clock) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dataDir: dataDir, clock: clk}, nil
}

func (s *FileStore) monthFile(t time.Time) string {
	return filepath.Join(s.dataDir, filePrefix+t.UTC().Format(fileMonthLayout)+".json")
}

func readMonth(path string) ([]series.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var samples []series.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return samples, nil
}

// Store merges the sample into its month file
func (s *FileStore) Store(sample series.Sample) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	date := sample.Date.UTC()
	path := s.monthFile(date)

	samples, err := readMonth(path)
	if err != nil && !os.IsNotExist(err) {
		klog.V(2).InfoS("Failed to read existing samples, rewriting file", "file", path, "err", err)
		samples = nil
	}

	merged := false
	for i := range samples {
		if samples[i].Date.Equal(date) {
			if samples[i].Values == nil {
				samples[i].Values = make(map[common.GroupKey]float64, len(sample.Values))
			}
			for g, v := range sample.Values {
				samples[i].Values[g] = v
			}
			merged = true
			break
		}
	}
	if !merged {
		values := make(map[common.GroupKey]float64, len(sample.Values))
		for g, v := range sample.Values {
			values[g] = v
		}
		samples = append(samples, series.Sample{Date: date, Values: values})
		series.SortByDate(samples)
	}

	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write samples file: %w", err)
	}

	klog.V(3).InfoS("Stored sample to file",
		"file", path,
		"date", date,
		"groups", len(sample.Values))
	return nil
}

// Range reads the month files overlapping [start, end]
func (s *FileStore) Range(start, end time.Time) ([]series.Sample, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	start, end = start.UTC(), end.UTC()
	var result []series.Sample
	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !current.After(end) {
		samples, err := readMonth(s.monthFile(current))
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			for _, sample := range samples {
				if !sample.Date.Before(start) && !sample.Date.After(end) {
					result = append(result, sample)
				}
			}
		}
		current = current.AddDate(0, 1, 0)
	}
	return result, nil
}

// All reads every month file in date order
func (s *FileStore) All() ([]series.Sample, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months, err := s.months()
	if err != nil {
		return nil, err
	}

	var result []series.Sample
	for _, m := range months {
		samples, err := readMonth(s.monthFile(m))
		if err != nil {
			return nil, err
		}
		result = append(result, samples...)
	}
	return result, nil
}

// months lists the months that have a file, oldest first
func (s *FileStore) months() ([]time.Time, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var months []time.Time
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != ".json" {
			continue
		}
		m, err := time.Parse(fileMonthLayout, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json"))
		if err != nil {
			continue
		}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months, nil
}

// Cleanup drops samples dated before the retention window, removing month
// files that end up empty. A non-positive retention keeps everything.
func (s *FileStore) Cleanup(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoffTime := cutoff(s.clock, retentionDays)
	months, err := s.months()
	if err != nil {
		return err
	}

	removedFiles, removedSamples := 0, 0
	for _, m := range months {
		if !m.Before(cutoffTime) {
			break
		}
		path := s.monthFile(m)
		samples, err := readMonth(path)
		if err != nil {
			klog.V(2).InfoS("Skipping unreadable samples file", "file", path, "err", err)
			continue
		}

		kept := samples[:0]
		for _, sample := range samples {
			if sample.Date.Before(cutoffTime) {
				removedSamples++
				continue
			}
			kept = append(kept, sample)
		}

		if len(kept) == 0 {
			if err := os.Remove(path); err != nil {
				klog.V(2).InfoS("Failed to remove old file", "file", path, "err", err)
				continue
			}
			removedFiles++
			continue
		}
		data, err := json.MarshalIndent(kept, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal samples: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write samples file: %w", err)
		}
	}

	klog.V(2).InfoS("Cleaned up old sample files",
		"cutoff", cutoffTime,
		"samplesDeleted", removedSamples,
		"filesDeleted", removedFiles)
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}
