package weather

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/yegors/wxbridge/internal/geo"
)

// Registry is an immutable, in-memory set of known stations. Once built,
// reads never take a lock: the map is never mutated after NewRegistry
// returns.
type Registry struct {
	byICAO map[string]Station
}

// NewRegistry builds a Registry from a slice of stations, keyed by ICAO.
func NewRegistry(stations []Station) *Registry {
	byICAO := make(map[string]Station, len(stations))
	for _, s := range stations {
		byICAO[s.ICAO] = s
	}
	return &Registry{byICAO: byICAO}
}

// Lookup returns a station by ICAO.
func (r *Registry) Lookup(icao string) (Station, bool) {
	s, ok := r.byICAO[icao]
	return s, ok
}

// Len returns the number of registered stations.
func (r *Registry) Len() int {
	return len(r.byICAO)
}

type stationDistance struct {
	station Station
	distNM  float64
}

// SelectorConfig controls SelectNearest's behavior.
type SelectorConfig struct {
	RadiusNM         float64
	MaxStations      int
	FallbackToGlobal bool
}

// SelectNearest returns up to cfg.MaxStations stations within cfg.RadiusNM
// of (lat, lon), nearest first, ties broken by ICAO. If none qualify and
// cfg.FallbackToGlobal is set, it returns a single synthetic GLOBAL-scope
// entry instead.
func (r *Registry) SelectNearest(lat, lon float64, cfg SelectorConfig) []Station {
	candidates := make([]stationDistance, 0, len(r.byICAO))
	for _, s := range r.byICAO {
		d := geo.HaversineNM(lat, lon, s.Lat, s.Lon)
		if d <= cfg.RadiusNM {
			candidates = append(candidates, stationDistance{station: s, distNM: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distNM != candidates[j].distNM {
			return candidates[i].distNM < candidates[j].distNM
		}
		return candidates[i].station.ICAO < candidates[j].station.ICAO
	})

	if len(candidates) == 0 {
		if cfg.FallbackToGlobal {
			return []Station{{ICAO: GlobalScope, Lat: lat, Lon: lon}}
		}
		return nil
	}

	max := cfg.MaxStations
	if max <= 0 || max > len(candidates) {
		max = len(candidates)
	}

	out := make([]Station, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, candidates[i].station)
	}
	return out
}

// LoadStationsFromCSV reads a station database in the ourairports.com
// "airports.csv" shape (ident, ..., latitude_deg, longitude_deg,
// elevation_ft, ...), generalized from the teacher's single-airport
// lookup to ingest every row into the registry.
func LoadStationsFromCSV(path string) ([]Station, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading station CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading station CSV rows: %w", err)
	}

	stations := make([]Station, 0, len(records))
	for _, record := range records {
		if len(record) < 6 {
			continue
		}

		icao := strings.ToUpper(strings.TrimSpace(record[1]))
		if !reICAO.MatchString(icao) {
			continue
		}

		lat, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			continue
		}

		s := Station{ICAO: icao, Lat: lat, Lon: lon}
		if len(record) > 6 && record[6] != "" {
			if elev, err := strconv.ParseFloat(record[6], 64); err == nil {
				s.ElevFt = Known(int(elev))
			}
		}
		stations = append(stations, s)
	}

	return stations, nil
}
