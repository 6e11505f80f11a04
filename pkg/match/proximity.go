package match

import (
	"math"

	"github.com/devicelab-dev/tapresolver/pkg/core"
)

// ProximityOrder ranks near-miss candidates: any interactive node beats any
// passive one, then the closest wins.
var ProximityOrder = []Comparator{
	ByInteractivity,
	ByDistance,
}

// Proximity returns the best entry within radius pixels of (x, y),
// measured to the nearest edge of the rect.
func Proximity(entries []Entry, x, y int, radius float64) *Candidate {
	var candidates []*Candidate
	for _, e := range entries {
		d := EdgeDistance(e.Rect, x, y)
		if d > radius {
			continue
		}
		candidates = append(candidates, &Candidate{
			Meta:     e.Meta,
			Area:     e.Rect.Area,
			Distance: d,
			Depth:    e.Depth,
		})
	}
	return Best(candidates, ProximityOrder)
}

// EdgeDistance is the Euclidean distance from the point to the rect;
// zero when the point is inside.
func EdgeDistance(b core.BoundsRect, x, y int) float64 {
	dx := max(b.X1-x, 0, x-b.X2)
	dy := max(b.Y1-y, 0, y-b.Y2)
	return math.Hypot(float64(dx), float64(dy))
}

