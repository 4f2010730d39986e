package layout

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/matzehuels/codecity/pkg/metrics"
)

func group(id string, lines uint64, children ...uint64) Group {
	g := Group{Owner: metrics.Record{ID: id, Name: "repo " + id, TotalLines: lines}}
	for i, l := range children {
		g.Children = append(g.Children, metrics.Record{
			ID:         fmt.Sprintf("%s:dir%02d", id, i),
			Name:       fmt.Sprintf("dir%02d", i),
			OwnerID:    id,
			TotalLines: l,
			AgeDays:    uint64(i * 10),
		})
	}
	return g
}

func sampleGroups() []Group {
	return []Group{
		group("alpha", 5000, 1200, 800, 300, 20, 0),
		group("beta", 900, 400, 400),
		group("gamma", 12000, 9000, 1500, 900, 400, 300, 200, 100, 50, 10, 5),
		group("delta", 0),
		group("eps", 700, 700),
		group("zeta", 3000, 1000, 1000, 500, 500, 1),
	}
}

func TestPackEmpty(t *testing.T) {
	res := Pack(nil)
	if !res.Empty() {
		t.Errorf("Pack(nil) = %+v", res)
	}
}

func TestPackNoOverlap(t *testing.T) {
	res := Pack(sampleGroups())
	assertNoOverlap(t, res.Buildings)
	for i := range res.Blocks {
		for j := i + 1; j < len(res.Blocks); j++ {
			if res.Blocks[i].Bounds().Overlaps(res.Blocks[j].Bounds()) {
				t.Fatalf("block %s overlaps %s", res.Blocks[i].OwnerID, res.Blocks[j].OwnerID)
			}
		}
	}
}

func TestPackContainment(t *testing.T) {
	opts := DefaultPackOptions()
	res := Pack(sampleGroups())
	blocks := make(map[string]Block)
	for _, b := range res.Blocks {
		blocks[b.OwnerID] = b
	}
	for _, b := range res.Buildings {
		blk, ok := blocks[b.GroupKey]
		if !ok {
			t.Fatalf("building %s has unknown group %q", b.ID(), b.GroupKey)
		}
		inner := blk.Bounds().Inset(opts.Padding)
		if !inner.Contains(b.Footprint()) {
			t.Errorf("building %s %+v escapes block %s %+v", b.ID(), b.Footprint(), blk.OwnerID, inner)
		}
	}
}

func TestPackCapsChildren(t *testing.T) {
	var lines []uint64
	for i := 1; i <= 40; i++ {
		lines = append(lines, uint64(i*10))
	}
	res := Pack([]Group{group("big", 1, lines...)})

	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %d", len(res.Blocks))
	}
	blk := res.Blocks[0]
	pitch := CompactProfile.Pitch()
	wantSide := 4*pitch + 2*DefaultPadding
	if !approx(blk.Width, wantSide) || !approx(blk.Depth, wantSide) {
		t.Errorf("block = %v x %v, want %v square", blk.Width, blk.Depth, wantSide)
	}
	if blk.Shown != 16 || blk.Total != 40 {
		t.Errorf("shown/total = %d/%d", blk.Shown, blk.Total)
	}
	if len(res.Buildings) != 16 {
		t.Fatalf("buildings = %d, want 16", len(res.Buildings))
	}
	for _, b := range res.Buildings {
		if b.Record.TotalLines <= 240 {
			t.Errorf("building with %d lines is not among the 16 largest", b.Record.TotalLines)
		}
	}
}

func TestPackEmptyGroupReservesCell(t *testing.T) {
	res := Pack([]Group{group("empty", 10), group("zeros", 10, 0, 0)})
	if len(res.Blocks) != 2 {
		t.Fatalf("blocks = %d", len(res.Blocks))
	}
	want := CompactProfile.Pitch() + 2*DefaultPadding
	for _, b := range res.Blocks {
		if !approx(b.Width, want) || !approx(b.Depth, want) {
			t.Errorf("%s = %v x %v, want %v", b.OwnerID, b.Width, b.Depth, want)
		}
	}
	if len(res.Buildings) != 0 {
		t.Errorf("zero-line children were placed: %d", len(res.Buildings))
	}
}

func TestPackCentered(t *testing.T) {
	res := Pack(sampleGroups())

	rows := make(map[int][]Block)
	for _, b := range res.Blocks {
		rows[b.Row] = append(rows[b.Row], b)
	}
	for r, blocks := range rows {
		left, right := math.Inf(1), math.Inf(-1)
		for _, b := range blocks {
			left = math.Min(left, b.Bounds().MinX)
			right = math.Max(right, b.Bounds().MaxX)
		}
		if !approx(left, -right) {
			t.Errorf("row %d spans [%v, %v], not centered", r, left, right)
		}
	}

	var all Rect
	for i, b := range res.Blocks {
		if i == 0 {
			all = b.Bounds()
			continue
		}
		all = all.Union(b.Bounds())
	}
	// blocks are vertically centered within their row, so the outer rows
	// reach the canvas edge only through their deepest block
	if !approx(all.MinZ, -all.MaxZ) {
		t.Errorf("rows span z [%v, %v], not centered", all.MinZ, all.MaxZ)
	}
}

func TestPackRowAspect(t *testing.T) {
	var groups []Group
	for i := 0; i < 4; i++ {
		groups = append(groups, group(fmt.Sprintf("g%d", i), 100, 10))
	}

	countRows := func(res Result) int {
		rows := make(map[int]bool)
		for _, b := range res.Blocks {
			rows[b.Row] = true
		}
		return len(rows)
	}

	// ceil(sqrt(4*1.5)) = 3 blocks per row
	if got := countRows(Pack(groups)); got != 2 {
		t.Errorf("default aspect rows = %d, want 2", got)
	}
	// ceil(sqrt(4*4)) = 4 blocks per row
	if got := countRows(Pack(groups, WithRowAspect(4))); got != 1 {
		t.Errorf("wide aspect rows = %d, want 1", got)
	}
}

func TestPackGroupKeyStable(t *testing.T) {
	res := Pack(sampleGroups())
	for _, b := range res.Buildings {
		if b.GroupKey != b.Record.OwnerID {
			t.Errorf("building %s group key %q, owner %q", b.ID(), b.GroupKey, b.Record.OwnerID)
		}
	}
}

func TestPackNormalizesAcrossGroups(t *testing.T) {
	res := Pack([]Group{group("a", 10, 100), group("b", 10, 10000)})
	idx := res.Index()
	small := idx["a:dir00"]
	large := idx["b:dir00"]
	if !approx(large.Dimensions.Width, CompactProfile.Size.Max) {
		t.Errorf("largest child width = %v", large.Dimensions.Width)
	}
	if small.Dimensions.Width >= large.Dimensions.Width {
		t.Errorf("small child %v not smaller than large %v", small.Dimensions.Width, large.Dimensions.Width)
	}
}

func TestPackIdempotent(t *testing.T) {
	a := Pack(sampleGroups())
	b := Pack(sampleGroups())
	if !reflect.DeepEqual(a, b) {
		t.Error("two passes over the same input differ")
	}
}

func TestPackDoesNotMutateInput(t *testing.T) {
	groups := sampleGroups()
	before := fmt.Sprintf("%+v", groups)
	Pack(groups)
	if after := fmt.Sprintf("%+v", groups); before != after {
		t.Error("Pack reordered its input")
	}
}

func TestBlockLabel(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"short", "short"},
		{"exactly-twenty-chars", "exactly-twenty-chars"},
		{"a-very-long-repository-name", "a-very-long-repos..."},
	}
	for _, tt := range tests {
		if got := (Block{OwnerName: tt.name}).Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
