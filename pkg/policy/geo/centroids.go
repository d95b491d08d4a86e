// Package geo provides the county-centroid table and great-circle distance
// queries used by geospatial field-resolution fallback.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// earthRadiusKM is the mean Earth radius used by the Haversine formula.
const earthRadiusKM = 6371.0

// Centroid is one county's representative point.
type Centroid struct {
	County    string  `json:"county"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Table is an immutable county-centroid lookup. Names are indexed both with
// and without a trailing " county" so either form resolves.
type Table struct {
	byName map[string]Centroid
}

// LoadTable reads a centroid table from a JSON file of
// [{county, latitude, longitude}] entries.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read centroid table: %w", err)
	}

	var centroids []Centroid
	if err := json.Unmarshal(data, &centroids); err != nil {
		return nil, fmt.Errorf("failed to parse centroid table: %w", err)
	}

	return NewTable(centroids), nil
}

// NewTable builds a table from centroid entries.
func NewTable(centroids []Centroid) *Table {
	t := &Table{byName: make(map[string]Centroid, len(centroids)*2)}
	for _, c := range centroids {
		base := normalizeCounty(c.County)
		t.byName[base] = c
		t.byName[base+" county"] = c
	}
	return t
}

// Lookup returns the centroid for a county name in either indexed form.
func (t *Table) Lookup(county string) (Centroid, bool) {
	c, ok := t.byName[normalizeCounty(county)]
	return c, ok
}

// Distance returns the great-circle distance in kilometers between two
// counties' centroids. The second return is false if either county is
// missing from the table.
func (t *Table) Distance(a, b string) (float64, bool) {
	ca, ok := t.Lookup(a)
	if !ok {
		return 0, false
	}
	cb, ok := t.Lookup(b)
	if !ok {
		return 0, false
	}
	return Haversine(ca.Latitude, ca.Longitude, cb.Latitude, cb.Longitude), true
}

// Neighbor is a candidate county ranked by distance from an origin county.
type Neighbor struct {
	County     string
	DistanceKM float64
}

// Nearest ranks candidate counties by distance from the origin county,
// nearest first. Candidates missing from the table are skipped; the origin
// itself is excluded.
func (t *Table) Nearest(origin string, candidates []string) []Neighbor {
	from, ok := t.Lookup(origin)
	if !ok {
		return nil
	}

	o := normalizeCounty(origin)
	var out []Neighbor
	for _, cand := range candidates {
		if normalizeCounty(cand) == o {
			continue
		}
		c, ok := t.Lookup(cand)
		if !ok {
			continue
		}
		out = append(out, Neighbor{
			County:     cand,
			DistanceKM: Haversine(from.Latitude, from.Longitude, c.Latitude, c.Longitude),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKM != out[j].DistanceKM {
			return out[i].DistanceKM < out[j].DistanceKM
		}
		return out[i].County < out[j].County
	})
	return out
}

// Haversine computes the great-circle distance in kilometers between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

func normalizeCounty(county string) string {
	c := strings.ToLower(strings.TrimSpace(county))
	return strings.TrimSuffix(c, " county")
}
