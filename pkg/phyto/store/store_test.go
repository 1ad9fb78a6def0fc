package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/common"
	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/series"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func sample(date time.Time, diatoms, microcystis float64) series.Sample {
	return series.Sample{
		Date: date,
		Values: map[common.GroupKey]float64{
			common.GroupDiatoms:     diatoms,
			common.GroupMicrocystis: microcystis,
		},
	}
}

func openStores(t *testing.T, clk clock.Clock) map[string]SampleStore {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := Open(DriverSQLite, filepath.Join(dir, "db", "samples.db"), clk)
	require.NoError(t, err)
	fileStore, err := Open(DriverFile, filepath.Join(dir, "files"), clk)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, sqliteStore.Close())
		assert.NoError(t, fileStore.Close())
	})
	return map[string]SampleStore{
		DriverSQLite: sqliteStore,
		DriverFile:   fileStore,
	}
}

func TestStoreAndRange(t *testing.T) {
	clk := clock.NewMockClock(month(2024, time.January))

	for name, s := range openStores(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, StoreAll(s, []series.Sample{
				sample(month(2021, time.March), 3, 0.3),
				sample(month(2021, time.January), 1, 0.1),
				sample(month(2021, time.February), 2, 0.2),
			}))

			all, err := s.All()
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.True(t, series.IsSorted(all))
			assert.True(t, all[0].Date.Equal(month(2021, time.January)))
			assert.Equal(t, 0.1, all[0].Values[common.GroupMicrocystis])

			ranged, err := s.Range(month(2021, time.February), month(2021, time.March))
			require.NoError(t, err)
			require.Len(t, ranged, 2)
			assert.Equal(t, 2.0, ranged[0].Values[common.GroupDiatoms])
			assert.Equal(t, 3.0, ranged[1].Values[common.GroupDiatoms])
		})
	}
}

func TestStoreReplacesValues(t *testing.T) {
	clk := clock.NewMockClock(month(2024, time.January))

	for name, s := range openStores(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Store(sample(month(2022, time.June), 1, 0.5)))
			require.NoError(t, s.Store(series.Sample{
				Date:   month(2022, time.June),
				Values: map[common.GroupKey]float64{common.GroupDiatoms: 4},
			}))

			all, err := s.All()
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, 4.0, all[0].Values[common.GroupDiatoms])
			assert.Equal(t, 0.5, all[0].Values[common.GroupMicrocystis])
		})
	}
}

func TestCleanup(t *testing.T) {
	clk := clock.NewMockClock(month(2024, time.January))

	for name, s := range openStores(t, clk) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, StoreAll(s, []series.Sample{
				sample(month(2022, time.December), 1, 0.1),
				sample(month(2023, time.November), 2, 0.2),
				sample(month(2023, time.December), 3, 0.3),
			}))

			require.NoError(t, s.Cleanup(0))
			all, err := s.All()
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, s.Cleanup(90))
			all, err = s.All()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.True(t, all[0].Date.Equal(month(2023, time.November)))
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("postgres", t.TempDir(), clock.RealClock{})
	assert.Error(t, err)
}

func TestReadSamplesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.json")
	data, err := json.Marshal([]series.Sample{
		sample(month(2020, time.May), 2, 0.2),
		sample(month(2020, time.April), 1, 0.1),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	samples, err := ReadSamplesFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, time.April, samples[0].Date.Month())

	_, err = ReadSamplesFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
