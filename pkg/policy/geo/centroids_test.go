package geo

import (
	"math"
	"testing"
)

func testTable() *Table {
	return NewTable([]Centroid{
		{County: "Midland", Latitude: 31.87, Longitude: -102.03},
		{County: "Glasscock", Latitude: 31.87, Longitude: -101.55},
		{County: "Ector", Latitude: 31.87, Longitude: -102.54},
		{County: "Upton", Latitude: 31.37, Longitude: -102.04},
	})
}

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
		tolerance              float64
	}{
		{"same point", 31.87, -102.03, 31.87, -102.03, 0, 0.001},
		{"midland to glasscock", 31.87, -102.03, 31.87, -101.55, 45.3, 1.0},
		{"austin to houston", 30.27, -97.74, 29.76, -95.37, 235, 5.0},
		{"one degree of latitude", 30, -100, 31, -100, 111.2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("Haversine = %v km, want %v ± %v", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	table := testTable()

	if _, ok := table.Lookup("midland"); !ok {
		t.Error("expected lowercase lookup to succeed")
	}
	if _, ok := table.Lookup("Midland County"); !ok {
		t.Error("expected county-suffixed lookup to succeed")
	}
	if _, ok := table.Lookup("Loving"); ok {
		t.Error("unexpected hit for missing county")
	}
}

func TestDistance(t *testing.T) {
	table := testTable()

	d, ok := table.Distance("Midland", "Ector County")
	if !ok {
		t.Fatal("expected both counties to resolve")
	}
	if d < 40 || d > 55 {
		t.Errorf("distance = %v km, want roughly 48", d)
	}

	if _, ok := table.Distance("Midland", "Loving"); ok {
		t.Error("expected missing county to fail")
	}
}

func TestNearest(t *testing.T) {
	table := testTable()

	neighbors := table.Nearest("Midland", []string{"Ector", "Glasscock", "Upton", "Midland", "Loving"})

	if len(neighbors) != 3 {
		t.Fatalf("got %d neighbors, want 3 (origin and unknown excluded)", len(neighbors))
	}
	if neighbors[0].County != "Glasscock" {
		t.Errorf("nearest = %s, want Glasscock", neighbors[0].County)
	}
	for i := 1; i < len(neighbors); i++ {
		if neighbors[i].DistanceKM < neighbors[i-1].DistanceKM {
			t.Error("neighbors not sorted by distance")
		}
	}
}
