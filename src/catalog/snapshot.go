package catalog

import (
	"sort"
	"time"

	"github.com/username/pricefolio/src/models"
	"github.com/username/pricefolio/src/pricing"
)

type seriesKey struct {
	manufacturer string
	series       string
}

// SeriesData is everything loaded for one manufacturer series: the record
// index the engine queries, the catalog metadata the matcher consults, and
// the warnings its tables produced while decoding.
type SeriesData struct {
	Meta     *models.SeriesMeta
	Index    *pricing.RecordIndex
	Articles map[string]models.Article
	Warnings []models.DataWarning
}

// Snapshot is an immutable view of every successfully loaded catalog. There
// is no shared mutable state during querying, so snapshots may be read
// concurrently without locking; reloading produces a fresh snapshot.
type Snapshot struct {
	series   map[seriesKey]*SeriesData
	warnings []models.DataWarning
	loadedAt time.Time
}

// Series returns the data loaded for one manufacturer series.
func (s *Snapshot) Series(manufacturer, series string) (*SeriesData, bool) {
	d, ok := s.series[seriesKey{manufacturer: manufacturer, series: series}]
	return d, ok
}

// SeriesNames lists the loaded manufacturer/series pairs in stable order.
func (s *Snapshot) SeriesNames() [][2]string {
	names := make([][2]string, 0, len(s.series))
	for k := range s.series {
		names = append(names, [2]string{k.manufacturer, k.series})
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i][0] != names[j][0] {
			return names[i][0] < names[j][0]
		}
		return names[i][1] < names[j][1]
	})
	return names
}

// Warnings returns the load-level warnings (manufacturer failures, budget
// overruns) accumulated while the snapshot was built.
func (s *Snapshot) Warnings() []models.DataWarning { return s.warnings }

// LoadedAt is the time the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// SeriesCount is the number of loaded series.
func (s *Snapshot) SeriesCount() int { return len(s.series) }
