package mapaggr

import (
	"fmt"
	"math"
	"testing"

	"roadeye/models"
)

var cityViewport = &models.Viewport{
	LatMin: 18.9, LonMin: 72.7,
	LatMax: 19.3, LonMax: 73.1,
}

func TestCellBaseLevel(t *testing.T) {
	testCases := []struct {
		name string
		vp   *models.Viewport
	}{
		{
			name: "city viewport",
			vp:   cityViewport,
		},
		{
			name: "street viewport",
			vp:   &models.Viewport{LatMin: 19.07, LonMin: 72.87, LatMax: 19.08, LonMax: 72.88},
		},
		{
			name: "continent viewport",
			vp:   &models.Viewport{LatMin: 0, LonMin: 60, LatMax: 40, LonMax: 100},
		},
	}

	levels := map[string]int{}
	for _, tc := range testCases {
		lv := CellBaseLevel(tc.vp)
		if lv < minLevel || lv > maxLevel {
			t.Errorf("%s: level %d out of [%d, %d]", tc.name, lv, minLevel, maxLevel)
		}
		levels[tc.name] = lv
	}

	// Zooming in never coarsens the grid
	if levels["street viewport"] < levels["city viewport"] {
		t.Errorf("street level %d finer than city level %d expected", levels["street viewport"], levels["city viewport"])
	}
	if levels["city viewport"] < levels["continent viewport"] {
		t.Errorf("city level %d finer than continent level %d expected", levels["city viewport"], levels["continent viewport"])
	}
}

func TestAggregatorPassThrough(t *testing.T) {
	agg := NewAggregator(cityViewport)

	points := []models.MapPoint{
		{ReportID: "r1", Latitude: 19.07, Longitude: 72.87, Severity: models.SeverityHigh},
		{ReportID: "r2", Latitude: 19.20, Longitude: 73.00, Severity: models.SeverityLow},
	}
	for _, p := range points {
		agg.AddPoint(p)
	}

	out := agg.ToArray()
	if len(out) != 2 {
		t.Fatalf("expected 2 pass-through markers, got %d", len(out))
	}
	for _, p := range out {
		if p.ReportID == "" {
			t.Errorf("expected individual markers to keep their report id")
		}
		if p.Count != 0 {
			t.Errorf("expected no cluster count on individual markers, got %d", p.Count)
		}
	}
}

func TestAggregatorClustersDenseCell(t *testing.T) {
	agg := NewAggregator(cityViewport)

	// Same coordinates land in the same cell at any level
	n := minToCluster + 5
	for i := 0; i < n; i++ {
		agg.AddPoint(models.MapPoint{
			ReportID:  fmt.Sprintf("r%d", i),
			Latitude:  19.076,
			Longitude: 72.8777,
		})
	}

	out := agg.ToArray()
	if len(out) != 1 {
		t.Fatalf("expected a single clustered pin, got %d markers", len(out))
	}

	pin := out[0]
	if pin.Count != int64(n) {
		t.Errorf("expected cluster count %d, got %d", n, pin.Count)
	}
	if pin.ReportID != "" {
		t.Errorf("expected clustered pin to carry no report id, got %q", pin.ReportID)
	}
	if math.Abs(pin.Latitude-19.076) > 1e-9 || math.Abs(pin.Longitude-72.8777) > 1e-9 {
		t.Errorf("expected centroid at the shared coordinates, got (%f, %f)", pin.Latitude, pin.Longitude)
	}
}

func TestAggregatorThresholdBoundary(t *testing.T) {
	agg := NewAggregator(cityViewport)

	for i := 0; i < minToCluster; i++ {
		agg.AddPoint(models.MapPoint{
			ReportID:  fmt.Sprintf("r%d", i),
			Latitude:  19.076,
			Longitude: 72.8777,
		})
	}

	out := agg.ToArray()
	if len(out) != minToCluster {
		t.Errorf("expected %d individual markers at the threshold, got %d", minToCluster, len(out))
	}
}
