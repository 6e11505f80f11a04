// Package match selects the accessibility node a tap landed on.
//
// Matching is split in two steps: Flatten walks the tree once and produces
// spatial entries; Containment and Proximity then filter those entries and
// reduce them with an explicit comparator order.
package match

import (
	"github.com/devicelab-dev/tapresolver/pkg/core"
	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
)

// Entry is a node that carries metadata and a parseable rect.
type Entry struct {
	Meta  *hierarchy.Metadata
	Rect  core.BoundsRect
	Depth int
}

// Candidate is an entry that passed a spatial test for one tap.
// Area is set by Containment, Distance by Proximity.
type Candidate struct {
	Meta     *hierarchy.Metadata
	Area     int
	Distance float64
	Depth    int
}

// Flatten walks the tree depth-first (pre-order) and returns every node
// with metadata and valid bounds. The root is depth 0.
func Flatten(root *hierarchy.Node) []Entry {
	var entries []Entry
	var walk func(n *hierarchy.Node, depth int)
	walk = func(n *hierarchy.Node, depth int) {
		if n == nil {
			return
		}
		if meta := hierarchy.Extract(n); meta != nil {
			if rect, ok := core.ParseBounds(meta.Bounds); ok {
				entries = append(entries, Entry{Meta: meta, Rect: rect, Depth: depth})
			}
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return entries
}

// Comparator returns >0 when a ranks above b, <0 when below, 0 when it
// cannot tell them apart.
type Comparator func(a, b *Candidate) int

// Best reduces candidates with comparators applied lexicographically.
// Full ties keep the earlier candidate.
func Best(candidates []*Candidate, order []Comparator) *Candidate {
	var best *Candidate
	for _, c := range candidates {
		if best == nil || compare(c, best, order) > 0 {
			best = c
		}
	}
	return best
}

func compare(a, b *Candidate, order []Comparator) int {
	for _, cmp := range order {
		if r := cmp(a, b); r != 0 {
			return r
		}
	}
	return 0
}

func boolRank(a, b bool) int {
	switch {
	case a && !b:
		return 1
	case !a && b:
		return -1
	default:
		return 0
	}
}

// ByVisibility prefers nodes flagged visible-to-user.
func ByVisibility(a, b *Candidate) int {
	return boolRank(a.Meta.IsVisible(), b.Meta.IsVisible())
}

// ByInteractivity prefers clickable, focusable or editable nodes.
func ByInteractivity(a, b *Candidate) int {
	return boolRank(a.Meta.IsInteractive(), b.Meta.IsInteractive())
}

// BySmallerArea prefers the most specific (innermost) rect.
func BySmallerArea(a, b *Candidate) int {
	return b.Area - a.Area
}

// ByQuality prefers nodes that are easier to identify.
func ByQuality(a, b *Candidate) int {
	return a.Meta.QualityScore() - b.Meta.QualityScore()
}

// ByDepth prefers deeper nodes.
func ByDepth(a, b *Candidate) int {
	return a.Depth - b.Depth
}

// ByDistance prefers the candidate closer to the tap.
func ByDistance(a, b *Candidate) int {
	switch {
	case a.Distance < b.Distance:
		return 1
	case a.Distance > b.Distance:
		return -1
	default:
		return 0
	}
}
