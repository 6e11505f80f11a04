package match

import (
	"testing"

	"github.com/devicelab-dev/tapresolver/pkg/core"
	"github.com/devicelab-dev/tapresolver/pkg/hierarchy"
)

func entry(meta hierarchy.Metadata, bounds string, depth int) Entry {
	rect, ok := core.ParseBounds(bounds)
	if !ok {
		panic("bad bounds in test: " + bounds)
	}
	m := meta
	m.Bounds = bounds
	return Entry{Meta: &m, Rect: rect, Depth: depth}
}

// winnerBothOrders runs Containment with entries in both orders and
// checks that the same node wins.
func winnerBothOrders(t *testing.T, a, b Entry, x, y, tol int) *Candidate {
	t.Helper()
	first := Containment([]Entry{a, b}, x, y, tol)
	second := Containment([]Entry{b, a}, x, y, tol)
	if first == nil || second == nil {
		t.Fatal("expected a match")
	}
	if first.Meta != second.Meta {
		t.Fatalf("winner depends on traversal order: %+v vs %+v", first.Meta, second.Meta)
	}
	return first
}

func TestFlatten_SkipsNodesWithoutDataOrBounds(t *testing.T) {
	root := &hierarchy.Node{
		Tag:   "hierarchy",
		Attrs: map[string]string{"rotation": "0"},
		Children: []*hierarchy.Node{
			{Tag: "node", Children: []*hierarchy.Node{
				{Tag: "node", Attrs: map[string]string{"class": "A", "bounds": "[0,0][10,10]"}},
				{Tag: "node", Attrs: map[string]string{"class": "B", "bounds": "garbage"}},
			}},
			{Tag: "node", Attrs: map[string]string{"class": "C", "bounds": "[5,5][6,6]"}},
		},
	}
	entries := Flatten(root)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Meta.Class != "A" || entries[0].Depth != 2 {
		t.Errorf("unexpected first entry: %+v depth=%d", entries[0].Meta, entries[0].Depth)
	}
	if entries[1].Meta.Class != "C" || entries[1].Depth != 1 {
		t.Errorf("unexpected second entry: %+v depth=%d", entries[1].Meta, entries[1].Depth)
	}
}

func TestContainment_SimpleHit(t *testing.T) {
	e := entry(hierarchy.Metadata{Class: "android.widget.Button"}, "[0,0][100,50]", 1)
	c := Containment([]Entry{e}, 50, 25, 0)
	if c == nil {
		t.Fatal("expected a match")
	}
	if c.Meta.Class != "android.widget.Button" || c.Area != 5000 {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

func TestContainment_Tolerance(t *testing.T) {
	e := entry(hierarchy.Metadata{Class: "X"}, "[100,100][200,200]", 1)

	if Containment([]Entry{e}, 92, 150, 8) == nil {
		t.Error("point within tolerance should match")
	}
	if Containment([]Entry{e}, 91, 150, 8) != nil {
		t.Error("point beyond tolerance should not match")
	}
	if Containment([]Entry{e}, 150, 208, 8) == nil {
		t.Error("point within tolerance below should match")
	}
	if Containment(nil, 0, 0, 8) != nil {
		t.Error("no entries should give no match")
	}
}

func TestContainment_VisibilityOutranksArea(t *testing.T) {
	a := entry(hierarchy.Metadata{Class: "A", VisibleToUser: "true", Clickable: "true"}, "[0,0][25,20]", 1)
	b := entry(hierarchy.Metadata{Class: "B", VisibleToUser: "false"}, "[0,0][50,40]", 2)
	if a.Rect.Area != 500 || b.Rect.Area != 2000 {
		t.Fatalf("fixture areas wrong: %d %d", a.Rect.Area, b.Rect.Area)
	}

	c := winnerBothOrders(t, a, b, 10, 10, 0)
	if c.Meta.Class != "A" {
		t.Errorf("expected A, got %s", c.Meta.Class)
	}
}

func TestContainment_VisibilityBeatsEverything(t *testing.T) {
	visible := entry(hierarchy.Metadata{Class: "V", VisibleToUser: "true"}, "[0,0][100,100]", 0)
	hidden := entry(hierarchy.Metadata{Class: "H", Clickable: "true", ResourceID: "id/h"}, "[0,0][10,10]", 5)

	c := winnerBothOrders(t, visible, hidden, 5, 5, 0)
	if c.Meta.Class != "V" {
		t.Errorf("expected visible node, got %s", c.Meta.Class)
	}
}

func TestContainment_InteractivityOutranksArea(t *testing.T) {
	clickable := entry(hierarchy.Metadata{Class: "C", VisibleToUser: "true", Focusable: "true"}, "[0,0][100,100]", 1)
	passive := entry(hierarchy.Metadata{Class: "P", VisibleToUser: "true", ResourceID: "id/p"}, "[0,0][10,10]", 3)

	c := winnerBothOrders(t, clickable, passive, 5, 5, 0)
	if c.Meta.Class != "C" {
		t.Errorf("expected interactive node, got %s", c.Meta.Class)
	}
}

func TestContainment_AreaOutranksQuality(t *testing.T) {
	small := entry(hierarchy.Metadata{Class: "S", VisibleToUser: "true", Clickable: "true"}, "[0,0][10,10]", 1)
	big := entry(hierarchy.Metadata{Class: "B", VisibleToUser: "true", Clickable: "true", ResourceID: "id/b", ContentDesc: "d"}, "[0,0][20,20]", 4)

	c := winnerBothOrders(t, small, big, 5, 5, 0)
	if c.Meta.Class != "S" {
		t.Errorf("expected smaller node, got %s", c.Meta.Class)
	}
}

func TestContainment_QualityOutranksDepth(t *testing.T) {
	withID := entry(hierarchy.Metadata{Class: "I", ResourceID: "id/i"}, "[0,0][10,10]", 1)
	withText := entry(hierarchy.Metadata{Class: "T", Text: "hello"}, "[0,0][10,10]", 9)

	c := winnerBothOrders(t, withID, withText, 5, 5, 0)
	if c.Meta.Class != "I" {
		t.Errorf("expected resource-id node, got %s", c.Meta.Class)
	}
}

func TestContainment_DepthIsFinalTieBreak(t *testing.T) {
	shallow := entry(hierarchy.Metadata{Class: "S", Text: "x"}, "[0,0][10,10]", 1)
	deep := entry(hierarchy.Metadata{Class: "D", Text: "y"}, "[0,0][10,10]", 2)

	c := winnerBothOrders(t, shallow, deep, 5, 5, 0)
	if c.Meta.Class != "D" {
		t.Errorf("expected deeper node, got %s", c.Meta.Class)
	}
}

func TestContainment_DescendantBeatsAncestor(t *testing.T) {
	root, err := hierarchy.Parse(`<hierarchy rotation="0">
  <node class="android.widget.FrameLayout" bounds="[0,0][1080,2400]" visible-to-user="true">
    <node class="android.widget.LinearLayout" bounds="[0,100][1080,600]" clickable="true" visible-to-user="true">
      <node class="android.widget.ImageView" bounds="[10,110][110,210]" visible-to-user="true"/>
      <node class="android.widget.Button" resource-id="com.app:id/ok" bounds="[200,110][400,210]" clickable="true" visible-to-user="true"/>
    </node>
  </node>
</hierarchy>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	c := Containment(Flatten(root), 300, 150, 8)
	if c == nil || c.Meta.ResourceID != "com.app:id/ok" {
		t.Fatalf("expected the button, got %+v", c)
	}

	// The image is not interactive, so its clickable parent wins
	c = Containment(Flatten(root), 50, 150, 8)
	if c == nil || c.Meta.Class != "android.widget.LinearLayout" {
		t.Fatalf("expected the clickable container, got %+v", c)
	}
}

func TestProximity_InteractiveBeatsCloser(t *testing.T) {
	// Tap at (0,0). Interactive node 20px away, passive node 15px away.
	interactive := entry(hierarchy.Metadata{Class: "I", Clickable: "true"}, "[20,0][60,40]", 1)
	passive := entry(hierarchy.Metadata{Class: "P"}, "[0,15][40,60]", 1)

	for _, order := range [][]Entry{{interactive, passive}, {passive, interactive}} {
		c := Proximity(order, 0, 0, 28)
		if c == nil {
			t.Fatal("expected a match")
		}
		if c.Meta.Class != "I" {
			t.Errorf("expected interactive node, got %s", c.Meta.Class)
		}
		if c.Distance != 20 {
			t.Errorf("expected distance 20, got %v", c.Distance)
		}
	}
}

func TestProximity_ClosestAmongEqualInteractivity(t *testing.T) {
	near := entry(hierarchy.Metadata{Class: "N"}, "[10,0][20,10]", 1)
	far := entry(hierarchy.Metadata{Class: "F"}, "[0,25][10,35]", 1)

	c := Proximity([]Entry{far, near}, 0, 0, 28)
	if c == nil || c.Meta.Class != "N" {
		t.Fatalf("expected nearest node, got %+v", c)
	}
}

func TestProximity_RadiusExcludes(t *testing.T) {
	e := entry(hierarchy.Metadata{Class: "X", Clickable: "true"}, "[100,100][200,200]", 1)

	if Proximity([]Entry{e}, 100, 70, 28) != nil {
		t.Error("node 30px away should be outside radius 28")
	}
	if Proximity([]Entry{e}, 100, 72, 28) == nil {
		t.Error("node 28px away should be inside radius 28")
	}
}

func TestEdgeDistance(t *testing.T) {
	b := core.NewBoundsRect(10, 10, 20, 20)
	tests := []struct {
		x, y int
		want float64
	}{
		{15, 15, 0},
		{10, 10, 0},
		{5, 15, 5},
		{25, 15, 5},
		{15, 0, 10},
		{23, 24, 5},
	}
	for _, tt := range tests {
		if got := EdgeDistance(b, tt.x, tt.y); got != tt.want {
			t.Errorf("EdgeDistance(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestBest_Empty(t *testing.T) {
	if Best(nil, ContainmentOrder) != nil {
		t.Error("expected nil for no candidates")
	}
}
