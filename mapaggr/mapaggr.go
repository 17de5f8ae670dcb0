// Package mapaggr clusters live-map markers into S2 cells so dense areas
// render as counted pins instead of thousands of markers.
package mapaggr

import (
	"roadeye/models"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const (
	expectedCells = 16
	minLevel      = 2
	maxLevel      = 18
	minToCluster  = 10
)

// CellBaseLevel finds the S2 cell level at which the viewport is covered by
// roughly expectedCells cells
func CellBaseLevel(vp *models.Viewport) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{Lo: minLL.Lat.Radians(), Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{Lo: minLL.Lng.Radians(), Hi: maxLL.Lng.Radians()},
	}
	vpArea := rect.Area()

	centerLat := (vp.LatMin + vp.LatMax) / 2
	centerLng := (vp.LonMin + vp.LonMax) / 2
	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLng))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cell := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cell.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel
}

// Aggregator buckets map points into S2 cells at a fixed level
type Aggregator struct {
	level int
	cells map[s2.CellID][]models.MapPoint
}

// NewAggregator creates an aggregator sized for the given viewport
func NewAggregator(vp *models.Viewport) *Aggregator {
	return &Aggregator{
		level: CellBaseLevel(vp),
		cells: make(map[s2.CellID][]models.MapPoint),
	}
}

// AddPoint buckets one marker
func (a *Aggregator) AddPoint(p models.MapPoint) {
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Latitude, p.Longitude)).Parent(a.level)
	a.cells[cell] = append(a.cells[cell], p)
}

// ToArray returns the final marker set: sparse cells pass their points
// through unchanged, dense cells collapse into a single counted pin at the
// points' centroid.
func (a *Aggregator) ToArray() []models.MapPoint {
	result := make([]models.MapPoint, 0, len(a.cells))
	for _, points := range a.cells {
		if len(points) <= minToCluster {
			result = append(result, points...)
			continue
		}

		var latSum, lngSum float64
		for _, p := range points {
			latSum += p.Latitude
			lngSum += p.Longitude
		}
		n := float64(len(points))
		result = append(result, models.MapPoint{
			Latitude:  latSum / n,
			Longitude: lngSum / n,
			Count:     int64(len(points)),
		})
	}
	return result
}
