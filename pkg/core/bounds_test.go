package core

import (
	"fmt"
	"testing"
)

func TestParseBounds_Valid(t *testing.T) {
	b, ok := ParseBounds("[0,0][100,50]")
	if !ok {
		t.Fatal("expected bounds to parse")
	}
	if b.X1 != 0 || b.Y1 != 0 || b.X2 != 100 || b.Y2 != 50 {
		t.Errorf("unexpected coordinates: %+v", b)
	}
	if b.Area != 5000 {
		t.Errorf("expected area 5000, got %d", b.Area)
	}
}

func TestParseBounds_AreaMatchesCorners(t *testing.T) {
	cases := [][4]int{
		{0, 0, 1080, 2400},
		{10, 20, 30, 40},
		{540, 100, 540, 300},
		{100, 100, 50, 200},
		{300, 300, 200, 200},
	}
	for _, c := range cases {
		s := fmt.Sprintf("[%d,%d][%d,%d]", c[0], c[1], c[2], c[3])
		b, ok := ParseBounds(s)
		if !ok {
			t.Fatalf("%s: expected to parse", s)
		}
		want := (c[2] - c[0]) * (c[3] - c[1])
		if want < 0 {
			want = 0
		}
		if b.X1 != c[0] || b.Y1 != c[1] || b.X2 != c[2] || b.Y2 != c[3] {
			t.Errorf("%s: coordinates %+v", s, b)
		}
		if b.Area != want {
			t.Errorf("%s: area = %d, want %d", s, b.Area, want)
		}
	}
}

func TestParseBounds_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"[0,0]",
		"[0,0][100]",
		"0,0,100,50",
		"[a,b][c,d]",
		"[0,0][100,50][1,1]",
		"[0.5,0][100,50]",
		"bounds",
		"x[0,0][100,50]",
	}
	for _, in := range inputs {
		if _, ok := ParseBounds(in); ok {
			t.Errorf("ParseBounds(%q) should fail", in)
		}
	}
}

func TestParseBounds_TrimsWhitespace(t *testing.T) {
	if _, ok := ParseBounds("  [1,2][3,4]\n"); !ok {
		t.Error("expected surrounding whitespace to be ignored")
	}
}

func TestBoundsRect_Contains(t *testing.T) {
	b := NewBoundsRect(100, 100, 200, 200)

	tests := []struct {
		x, y, tol int
		want      bool
	}{
		{150, 150, 0, true},
		{100, 100, 0, true},
		{200, 200, 0, true},
		{99, 150, 0, false},
		{201, 150, 0, false},
		{92, 150, 8, true},
		{91, 150, 8, false},
		{150, 208, 8, true},
		{150, 209, 8, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.x, tt.y, tt.tol); got != tt.want {
			t.Errorf("Contains(%d,%d,%d) = %v, want %v", tt.x, tt.y, tt.tol, got, tt.want)
		}
	}
}

func TestBoundsRect_CenterAndString(t *testing.T) {
	b := NewBoundsRect(0, 0, 100, 50)
	x, y := b.Center()
	if x != 50 || y != 25 {
		t.Errorf("Center() = (%d,%d), want (50,25)", x, y)
	}
	if got := b.String(); got != "[0,0][100,50]" {
		t.Errorf("String() = %q", got)
	}
}
