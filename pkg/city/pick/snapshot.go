package pick

import "github.com/matzehuels/codecity/pkg/city/layout"

// Snapshot is an immutable view of one layout pass used for hit testing.
// A new snapshot is published after every recompute; existing snapshots are
// never modified, so readers need no locking.
type Snapshot struct {
	buildings []layout.Building
	boxes     []Box
	index     map[string]int
	camera    Camera
}

// NewSnapshot captures the buildings of res and fits a camera to them.
func NewSnapshot(res layout.Result) *Snapshot {
	s := &Snapshot{
		buildings: make([]layout.Building, len(res.Buildings)),
		boxes:     make([]Box, len(res.Buildings)),
		index:     make(map[string]int, len(res.Buildings)),
	}
	copy(s.buildings, res.Buildings)
	for i, b := range s.buildings {
		s.boxes[i] = BoxOf(b)
		s.index[b.ID()] = i
	}
	s.camera = Fit(s.buildings)
	return s
}

// Camera returns the fitted camera.
func (s *Snapshot) Camera() Camera { return s.camera }

// Len returns the number of buildings.
func (s *Snapshot) Len() int { return len(s.buildings) }

// Building looks up a building by record ID.
func (s *Snapshot) Building(id string) (layout.Building, bool) {
	i, ok := s.index[id]
	if !ok {
		return layout.Building{}, false
	}
	return s.buildings[i], true
}

// Buildings returns a copy of the buildings keyed by record ID.
func (s *Snapshot) Buildings() map[string]layout.Building {
	out := make(map[string]layout.Building, len(s.buildings))
	for id, i := range s.index {
		out[id] = s.buildings[i]
	}
	return out
}

// Nearest returns the building whose volume r hits first. Equal distances
// resolve to the building placed first.
func (s *Snapshot) Nearest(r Ray) (layout.Building, float64, bool) {
	best, bestT := -1, 0.0
	for i, box := range s.boxes {
		t, ok := Intersect(r, box)
		if !ok {
			continue
		}
		if best < 0 || t < bestT {
			best, bestT = i, t
		}
	}
	if best < 0 {
		return layout.Building{}, 0, false
	}
	return s.buildings[best], bestT, true
}

// Nearest hit-tests r against buildings without a snapshot.
func Nearest(r Ray, buildings []layout.Building) (layout.Building, bool) {
	b, _, ok := NewSnapshot(layout.Result{Buildings: buildings}).Nearest(r)
	return b, ok
}
