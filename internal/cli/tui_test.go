package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/pick"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/metrics"
)

func sampleRepos() []metrics.Repository {
	return []metrics.Repository{
		{
			ID: "r1", Name: "alpha", Path: "/src/alpha", TotalLines: 1200, AgeDays: 400,
			Languages: []metrics.Language{{Name: "Go", Lines: 1200, Percentage: 100}},
			Directories: []metrics.Directory{
				{Name: "cmd", Path: "cmd", Lines: 200, AgeDays: 30},
				{Name: "pkg", Path: "pkg", Lines: 1000, AgeDays: 400},
			},
		},
		{
			ID: "r2", Name: "beta", Path: "/src/beta", TotalLines: 50, AgeDays: 3,
			Languages: []metrics.Language{{Name: "Python", Lines: 50, Percentage: 100}},
		},
	}
}

func newTestModel(t *testing.T) (*viewModel, *view.Controller) {
	t.Helper()
	ctx := context.Background()
	scene := newTermScene()
	ctrl := view.NewController(scene)
	if out := ctrl.SetRepositories(ctx, sampleRepos()); out.Empty {
		t.Fatal("repository view is empty")
	}
	m := newViewModel(ctx, ctrl, scene)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m.View()
	return m, ctrl
}

// cellOf returns a cell of the last frame showing building id.
func cellOf(t *testing.T, s *termScene, id string) (int, int) {
	t.Helper()
	for r, row := range s.hits {
		for c, got := range row {
			if got == id {
				return c, r
			}
		}
	}
	t.Fatalf("building %q not drawn", id)
	return 0, 0
}

func mouse(col, row int, action tea.MouseAction) tea.MouseMsg {
	msg := tea.MouseMsg{X: col, Y: row + headerRows, Action: action}
	if action == tea.MouseActionPress {
		msg.Button = tea.MouseButtonLeft
	}
	return msg
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestSceneDrawsEveryBuilding(t *testing.T) {
	m, ctrl := newTestModel(t)
	for id := range ctrl.Buildings() {
		cellOf(t, m.scene, id)
	}
	if len(m.scene.hits) != 26 || len(m.scene.hits[0]) != 80 {
		t.Errorf("frame = %d×%d, want 80×26", len(m.scene.hits[0]), len(m.scene.hits))
	}
}

func TestSceneEmphasize(t *testing.T) {
	s := newTermScene()
	s.Emphasize([]pick.Visual{{ID: "a", Emphasis: pick.Hovered}, {ID: "b", Emphasis: pick.Highlighted}})
	s.Emphasize([]pick.Visual{{ID: "a", Emphasis: pick.Plain}})
	if _, ok := s.emphasis["a"]; ok {
		t.Error("plain emphasis should be dropped")
	}
	if s.emphasis["b"] != pick.Highlighted {
		t.Errorf("b = %v, want highlighted", s.emphasis["b"])
	}
	s.Clear()
	if len(s.emphasis) != 0 {
		t.Error("Clear kept emphasis")
	}
}

func TestProjectionCells(t *testing.T) {
	s := newTermScene()
	s.bounds = layout.Rect{MinX: 0, MaxX: 40, MinZ: 0, MaxZ: 20}
	p := s.project(40, 10)
	if p.unit != 1 {
		t.Fatalf("unit = %v, want 1", p.unit)
	}

	c0, r0, c1, r1 := p.cells(s.bounds)
	if c0 != 0 || r0 != 0 || c1 != 39 || r1 != 9 {
		t.Errorf("full cells = %d,%d..%d,%d", c0, r0, c1, r1)
	}

	// Smaller than a cell: the cell holding the center.
	c0, r0, c1, r1 = p.cells(layout.Rect{MinX: 10.1, MaxX: 10.3, MinZ: 4.1, MaxZ: 4.2})
	if c0 != 10 || c1 != 10 || r0 != 2 || r1 != 2 {
		t.Errorf("tiny cells = %d,%d..%d,%d", c0, r0, c1, r1)
	}

	if x, z := p.world(10, 2); x != 10.5 || z != 5 {
		t.Errorf("world(10,2) = %v,%v", x, z)
	}
}

func TestHoverShowsTooltip(t *testing.T) {
	m, ctrl := newTestModel(t)
	col, row := cellOf(t, m.scene, "r1")

	m.Update(mouse(col, row, tea.MouseActionMotion))
	if m.hover == nil || m.hover.ID != "r1" {
		t.Fatalf("hover = %+v, want r1", m.hover)
	}
	if st := ctrl.State(); st.Kind != pick.Hovering || st.Target != "r1" {
		t.Errorf("state = %+v", st)
	}
	if m.scene.emphasis["r1"] != pick.Hovered {
		t.Error("hovered building not emphasized")
	}
	if out := m.View(); !strings.Contains(out, "1,200 lines") {
		t.Error("tooltip missing from frame")
	}

	// Leaving the plan clears the hover once.
	m.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	if m.hover != nil {
		t.Errorf("hover = %+v after leaving", m.hover)
	}
	if ctrl.State().Kind != pick.Idle {
		t.Errorf("state = %+v, want idle", ctrl.State())
	}
}

func TestClickOpensDirectories(t *testing.T) {
	m, ctrl := newTestModel(t)
	col, row := cellOf(t, m.scene, "r1")

	m.Update(mouse(col, row, tea.MouseActionMotion))
	m.Update(mouse(col, row, tea.MouseActionPress))

	v, focus := ctrl.Current()
	if v != view.Directories || focus != "r1" {
		t.Fatalf("view = %s/%s, want dirs/r1", v, focus)
	}
	if m.hover != nil {
		t.Error("hover should reset after a view change")
	}
	if !strings.Contains(m.View(), "alpha") {
		t.Error("header should name the focused repository")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if v, _ := ctrl.Current(); v != view.Repositories {
		t.Errorf("after esc view = %s", v)
	}
}

func TestClickOnEmptyDirectoriesKeepsView(t *testing.T) {
	m, ctrl := newTestModel(t)
	col, row := cellOf(t, m.scene, "r2")

	m.Update(mouse(col, row, tea.MouseActionMotion))
	m.Update(mouse(col, row, tea.MouseActionPress))

	if v, _ := ctrl.Current(); v != view.Repositories {
		t.Errorf("view = %s, want repos", v)
	}
	if !m.statusErr || !strings.Contains(m.status, "nothing to show") {
		t.Errorf("status = %q", m.status)
	}
}

func TestKeys(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(runes("3"))
	if v, _ := ctrl.Current(); v != view.City {
		t.Fatalf("view = %s, want city", v)
	}
	if len(m.scene.blocks) == 0 {
		t.Error("city view drew no blocks")
	}

	m.Update(runes("1"))
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := ctrl.Highlighted(); got != "r1" {
		t.Errorf("first highlight = %q, want the largest building r1", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := ctrl.Highlighted(); got != "r2" {
		t.Errorf("second highlight = %q, want r2", got)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := ctrl.Highlighted(); got != "r1" {
		t.Errorf("previous highlight = %q, want r1", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if v, focus := ctrl.Current(); v != view.Directories || focus != "r1" {
		t.Errorf("enter opened %s/%s", v, focus)
	}

	m.Update(runes("1"))
	m.Update(runes("c"))
	if ctrl.Highlighted() != "" {
		t.Error("c should clear the highlight")
	}

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestReanalyzedUpdatesCity(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.busy = 1

	updated := sampleRepos()[1]
	updated.TotalLines = 5000
	m.Update(reanalyzedMsg{root: updated.Path, repo: updated})

	if m.busy != 0 {
		t.Errorf("busy = %d", m.busy)
	}
	b, ok := ctrl.Buildings()["r2"]
	if !ok || b.Record.TotalLines != 5000 {
		t.Errorf("r2 = %+v, want 5000 lines", b.Record)
	}
	if !strings.Contains(m.status, "5,000") {
		t.Errorf("status = %q", m.status)
	}
}

func TestTooltipFlipsAtEdges(t *testing.T) {
	r := sampleRepos()[0].Record()
	tip := tooltipFor(r, 2, 2, 80, 26)
	if tip.col <= 2 || tip.row < 2 {
		t.Errorf("tooltip at %d,%d should sit below right of the pointer", tip.col, tip.row)
	}
	tip = tooltipFor(r, 79, 25, 80, 26)
	if tip.col >= 79 || tip.row >= 25 {
		t.Errorf("tooltip at %d,%d should flip above left", tip.col, tip.row)
	}
	if !strings.Contains(tip.lines[0], "alpha") {
		t.Errorf("first line = %q", tip.lines[0])
	}
}
