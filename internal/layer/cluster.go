package layer

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// clusterPoints buckets point features into a grid whose cell size equals the
// clustering radius. Cells holding more than one point collapse into a single
// cluster feature at the points' centroid; lone points and non-point
// geometries pass through untouched.
func clusterPoints(features []*geojson.Feature, radius float64) []*geojson.Feature {
	type bucket struct {
		points []*geojson.Feature
	}

	buckets := make(map[[2]int]*bucket)
	var passthrough []*geojson.Feature
	var cellOrder [][2]int

	for _, feat := range features {
		pt, ok := feat.Geometry.(orb.Point)
		if !ok {
			passthrough = append(passthrough, feat)
			continue
		}
		cell := [2]int{
			int(math.Floor(pt.Lon() / radius)),
			int(math.Floor(pt.Lat() / radius)),
		}
		b, exists := buckets[cell]
		if !exists {
			b = &bucket{}
			buckets[cell] = b
			cellOrder = append(cellOrder, cell)
		}
		b.points = append(b.points, feat)
	}

	// Deterministic output order: pass-through features first, then cells in
	// first-seen order.
	sort.SliceStable(cellOrder, func(i, j int) bool {
		if cellOrder[i][0] != cellOrder[j][0] {
			return cellOrder[i][0] < cellOrder[j][0]
		}
		return cellOrder[i][1] < cellOrder[j][1]
	})

	out := passthrough
	for _, cell := range cellOrder {
		b := buckets[cell]
		if len(b.points) == 1 {
			out = append(out, b.points[0])
			continue
		}
		out = append(out, clusterFeature(b.points))
	}
	return out
}

func clusterFeature(points []*geojson.Feature) *geojson.Feature {
	var lon, lat float64
	for _, feat := range points {
		pt := feat.Geometry.(orb.Point)
		lon += pt.Lon()
		lat += pt.Lat()
	}
	n := float64(len(points))

	feat := geojson.NewFeature(orb.Point{lon / n, lat / n})
	feat.Properties["cluster"] = true
	feat.Properties["point_count"] = len(points)
	return feat
}
