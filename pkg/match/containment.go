package match

// ContainmentOrder is the tie-break order for taps inside a rect.
var ContainmentOrder = []Comparator{
	ByVisibility,
	ByInteractivity,
	BySmallerArea,
	ByQuality,
	ByDepth,
}

// Containment returns the best entry whose rect, grown by tol pixels,
// contains (x, y). Every entry is considered, so a specific descendant can
// beat the ancestor that also contains the point.
func Containment(entries []Entry, x, y, tol int) *Candidate {
	var candidates []*Candidate
	for _, e := range entries {
		if !e.Rect.Contains(x, y, tol) {
			continue
		}
		candidates = append(candidates, &Candidate{
			Meta:  e.Meta,
			Area:  e.Rect.Area,
			Depth: e.Depth,
		})
	}
	return Best(candidates, ContainmentOrder)
}
