package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var boundsPattern = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// BoundsRect is an Android bounds rectangle in device pixels.
// Area is never negative, so inverted rectangles rank as the most specific.
type BoundsRect struct {
	X1, Y1, X2, Y2 int
	Area           int
}

// ParseBounds parses an Android bounds string "[x1,y1][x2,y2]".
// Any other shape reports false; the node is then left out of spatial matching.
func ParseBounds(s string) (BoundsRect, bool) {
	m := boundsPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(m) != 5 {
		return BoundsRect{}, false
	}

	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return BoundsRect{}, false
		}
		v[i] = n
	}
	return NewBoundsRect(v[0], v[1], v[2], v[3]), true
}

// NewBoundsRect builds a rect from corner coordinates and derives its area.
func NewBoundsRect(x1, y1, x2, y2 int) BoundsRect {
	area := (x2 - x1) * (y2 - y1)
	if area < 0 {
		area = 0
	}
	return BoundsRect{X1: x1, Y1: y1, X2: x2, Y2: y2, Area: area}
}

// Contains checks if the point lies inside the rect grown by tol on every side.
// Edges are inclusive.
func (b BoundsRect) Contains(x, y, tol int) bool {
	return x >= b.X1-tol && x <= b.X2+tol && y >= b.Y1-tol && y <= b.Y2+tol
}

// Center returns the center point of the rect
func (b BoundsRect) Center() (int, int) {
	return b.X1 + (b.X2-b.X1)/2, b.Y1 + (b.Y2-b.Y1)/2
}

// String formats the rect back into Android bounds notation.
func (b BoundsRect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.X1, b.Y1, b.X2, b.Y2)
}
