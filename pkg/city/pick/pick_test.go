package pick

import (
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/metrics"
)

func building(id string, x, z, size, height float64) layout.Building {
	return layout.Building{
		Record:     metrics.Record{ID: id, Name: id, TotalLines: 100},
		Position:   layout.Position{X: x, Z: z},
		Dimensions: layout.Dimensions{Width: size, Depth: size, Height: height},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestIntersect(t *testing.T) {
	box := Box{Min: Vec3{-1, 0, -1}, Max: Vec3{1, 2, 1}}

	tests := []struct {
		name  string
		ray   Ray
		want  float64
		wantK bool
	}{
		{"straight down", TopDown(0, 0), 1e4 - 2, true},
		{"miss beside", TopDown(5, 0), 0, false},
		{"along x", Ray{Vec3{-10, 1, 0}, Vec3{X: 1}}, 9, true},
		{"behind origin", Ray{Vec3{10, 1, 0}, Vec3{X: 1}}, 0, false},
		{"from inside", Ray{Vec3{0, 1, 0}, Vec3{X: 1}}, 1, true},
		{"parallel outside slab", Ray{Vec3{-10, 5, 0}, Vec3{X: 1}}, 0, false},
		{"edge graze", Ray{Vec3{-10, 2, 0}, Vec3{X: 1}}, 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intersect(tt.ray, box)
			if ok != tt.wantK {
				t.Fatalf("hit = %v, want %v", ok, tt.wantK)
			}
			if ok && !approx(got, tt.want) {
				t.Errorf("t = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearest(t *testing.T) {
	// Two buildings in line along x; a ray from -x hits "near" first.
	near := building("near", -5, 0, 2, 4)
	far := building("far", 5, 0, 2, 4)
	snap := NewSnapshot(layout.Result{Buildings: []layout.Building{far, near}})

	b, dist, ok := snap.Nearest(Ray{Vec3{-20, 1, 0}, Vec3{X: 1}})
	if !ok || b.ID() != "near" {
		t.Fatalf("Nearest = %q, %v; want near", b.ID(), ok)
	}
	if !approx(dist, 14) {
		t.Errorf("distance = %v, want 14", dist)
	}

	if _, ok := Nearest(TopDown(0, 0), []layout.Building{near, far}); ok {
		t.Error("ray between buildings should miss")
	}
	if b, ok := Nearest(TopDown(5, 0), []layout.Building{near, far}); !ok || b.ID() != "far" {
		t.Errorf("top-down hit = %q, %v", b.ID(), ok)
	}
}

func TestSnapshotLookup(t *testing.T) {
	snap := NewSnapshot(layout.Result{Buildings: []layout.Building{building("a", 0, 0, 2, 2)}})
	if snap.Len() != 1 {
		t.Errorf("Len = %d", snap.Len())
	}
	if _, ok := snap.Building("a"); !ok {
		t.Error("Building(a) missing")
	}
	if _, ok := snap.Building("b"); ok {
		t.Error("Building(b) should not exist")
	}
	m := snap.Buildings()
	delete(m, "a")
	if _, ok := snap.Building("a"); !ok {
		t.Error("Buildings() must return a copy")
	}
}

func TestMachineSingleClearEvent(t *testing.T) {
	a := building("a", 0, 0, 2, 2)
	snap := NewSnapshot(layout.Result{Buildings: []layout.Building{a}})
	var m Machine

	var hovers []*HoverEvent
	move := func(x float64) {
		if tr := m.Move(snap, TopDown(x, 0), x, 0); tr.Hover != nil {
			hovers = append(hovers, tr.Hover)
		}
	}

	move(0)   // enter a
	move(0.5) // still on a
	move(10)  // leave
	move(11)  // empty
	move(12)  // empty

	if len(hovers) != 2 {
		t.Fatalf("got %d hover events, want 2", len(hovers))
	}
	if hovers[0].Record == nil || hovers[0].Record.ID != "a" {
		t.Errorf("first event = %+v, want a", hovers[0])
	}
	if hovers[1].Record != nil {
		t.Errorf("second event should clear, got %+v", hovers[1].Record)
	}
	if hovers[1].X != 10 {
		t.Errorf("clear event X = %v, want 10", hovers[1].X)
	}
	if m.State().Kind != Idle {
		t.Errorf("state = %v, want idle", m.State().Kind)
	}
}

func TestMachineNoEventWhileIdle(t *testing.T) {
	var m Machine
	snap := NewSnapshot(layout.Result{})
	for i := 0; i < 3; i++ {
		if tr := m.Move(snap, TopDown(0, 0), 0, 0); tr.Hover != nil || tr.Changed() {
			t.Fatalf("move %d on empty scene produced %+v", i, tr)
		}
	}
}

func TestMachineClick(t *testing.T) {
	a := building("a", 0, 0, 2, 2)
	b := building("b", 10, 0, 2, 2)
	snap := NewSnapshot(layout.Result{Buildings: []layout.Building{a, b}})
	var m Machine

	if tr := m.Click(snap); tr.Select != nil {
		t.Error("click while idle should not select")
	}

	m.Move(snap, TopDown(0, 0), 0, 0)
	tr := m.Click(snap)
	if tr.Select == nil || tr.Select.Record.ID != "a" {
		t.Fatalf("click select = %+v", tr.Select)
	}
	if got := m.State(); got != (State{Kind: Selected, Target: "a"}) {
		t.Errorf("state = %+v", got)
	}
	if tr := m.Click(snap); tr.Select == nil {
		t.Error("each click on a building should select once")
	}

	// Hover moves on after selecting; no select event is implied.
	tr = m.Move(snap, TopDown(10, 0), 10, 0)
	if tr.Select != nil || tr.Hover == nil || tr.Hover.Record.ID != "b" {
		t.Errorf("move after select = %+v", tr)
	}
	if m.State().Kind != Hovering {
		t.Errorf("state = %v, want hovering", m.State().Kind)
	}
}

func TestMachineReset(t *testing.T) {
	a := building("a", 0, 0, 2, 2)
	snap := NewSnapshot(layout.Result{Buildings: []layout.Building{a}})
	var m Machine
	m.Move(snap, TopDown(0, 0), 0, 0)

	tr := m.Reset()
	if tr.Hover != nil || tr.Select != nil {
		t.Error("reset must not emit events")
	}
	if tr.From.Target != "a" || m.State() != (State{}) {
		t.Errorf("reset transition = %+v", tr)
	}

	// After a reset the same building is a fresh hover.
	if tr := m.Move(snap, TopDown(0, 0), 0, 0); tr.Hover == nil {
		t.Error("expected hover after reset")
	}
}

func TestClickStaleTarget(t *testing.T) {
	a := building("a", 0, 0, 2, 2)
	var m Machine
	m.Move(NewSnapshot(layout.Result{Buildings: []layout.Building{a}}), TopDown(0, 0), 0, 0)
	if tr := m.Click(NewSnapshot(layout.Result{})); tr.Select != nil {
		t.Error("target missing from snapshot must not select")
	}
}

func TestDiffVisuals(t *testing.T) {
	idle := State{}
	hoverA := State{Kind: Hovering, Target: "a"}
	selA := State{Kind: Selected, Target: "a"}
	hoverB := State{Kind: Hovering, Target: "b"}

	tests := []struct {
		name       string
		prev, next State
		highlight  string
		want       []Visual
	}{
		{"no change", hoverA, hoverA, "", nil},
		{"select keeps emphasis", hoverA, selA, "", nil},
		{"enter", idle, hoverA, "", []Visual{{"a", Hovered}}},
		{"leave", hoverA, idle, "", []Visual{{"a", Plain}}},
		{"switch", hoverA, hoverB, "", []Visual{{"a", Plain}, {"b", Hovered}}},
		{"leave highlighted", hoverA, idle, "a", []Visual{{"a", Highlighted}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiffVisuals(tt.prev, tt.next, tt.highlight); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DiffVisuals = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffHighlight(t *testing.T) {
	if got := DiffHighlight("a", "a"); got != nil {
		t.Errorf("same id: %v", got)
	}
	want := []Visual{{"a", Plain}, {"b", Highlighted}}
	if got := DiffHighlight("a", "b"); !reflect.DeepEqual(got, want) {
		t.Errorf("DiffHighlight = %v, want %v", got, want)
	}
	if Highlighted.Emissive() != "#333366" || Hovered.Emissive() != "#222244" {
		t.Error("unexpected emissive colors")
	}
}

func TestPlaceTooltip(t *testing.T) {
	viewport := Size{W: 800, H: 600}
	tip := Size{W: 200, H: 100}

	tests := []struct {
		name    string
		pointer Point
		want    Point
	}{
		{"fits", Point{100, 100}, Point{115, 115}},
		{"flip left", Point{700, 100}, Point{485, 115}},
		{"flip up", Point{100, 550}, Point{115, 435}},
		{"flip both", Point{700, 550}, Point{485, 435}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlaceTooltip(tt.pointer, tip, viewport); got != tt.want {
				t.Errorf("PlaceTooltip = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFit(t *testing.T) {
	if got := Fit(nil); got != DefaultCamera {
		t.Errorf("Fit(nil) = %+v", got)
	}

	// Footprints span x in [-6,6], z in [-1,1]; tallest is 4. Extent is 12.
	cam := Fit([]layout.Building{
		building("a", -5, 0, 2, 4),
		building("b", 5, 0, 2, 1),
	})
	wantTarget := Vec3{0, 2, 0}
	if cam.Target != wantTarget {
		t.Errorf("Target = %+v, want %+v", cam.Target, wantTarget)
	}
	wantPos := Vec3{24, 19.2, 24}
	if !approx(cam.Position.X, wantPos.X) || !approx(cam.Position.Y, wantPos.Y) || !approx(cam.Position.Z, wantPos.Z) {
		t.Errorf("Position = %+v, want %+v", cam.Position, wantPos)
	}
}

func TestCameraRay(t *testing.T) {
	cam := Fit([]layout.Building{building("a", 0, 0, 4, 4)})

	// The center pixel looks straight at the target and hits the building.
	r := cam.Ray(400, 300, 800, 600)
	want := cam.Target.Sub(cam.Position).Norm()
	if !approx(r.Dir.X, want.X) || !approx(r.Dir.Y, want.Y) || !approx(r.Dir.Z, want.Z) {
		t.Errorf("center ray = %+v, want %+v", r.Dir, want)
	}
	if _, ok := Nearest(r, []layout.Building{building("a", 0, 0, 4, 4)}); !ok {
		t.Error("center ray should hit the fitted building")
	}

	// A corner pixel deviates from the view axis.
	if c := cam.Ray(0, 0, 800, 600); approx(c.Dir.Dot(want), 1) {
		t.Error("corner ray should not match the center ray")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{Idle: "idle", Hovering: "hovering", Selected: "selected"} {
		if k.String() != want {
			t.Errorf("%d.String() = %q", k, k.String())
		}
	}
}
