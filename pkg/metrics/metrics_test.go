package metrics

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFormatLines(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1240, "1.2K"},
		{999_999, "1000.0K"},
		{1_000_000, "1.0M"},
		{3_460_000, "3.5M"},
	}
	for _, tt := range tests {
		if got := FormatLines(tt.in); got != tt.want {
			t.Errorf("FormatLines(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLinesExact(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0"},
		{1_234_567, "1,234,567"},
		{math.MaxInt64, "9,223,372,036,854,775,807"},
		{math.MaxInt64 + 1, "9,223,372,036,854,775,808"},
		{math.MaxUint64, "18,446,744,073,709,551,615"},
	}
	for _, tt := range tests {
		if got := FormatLinesExact(tt.in); got != tt.want {
			t.Errorf("FormatLinesExact(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		days uint64
		want string
	}{
		{0, "0 days"},
		{1, "1 day"},
		{29, "29 days"},
		{30, "1 month"},
		{75, "2 months"},
		{365, "1 year"},
		{800, "2 years"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.days); got != tt.want {
			t.Errorf("FormatAge(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestLanguageColor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Go", "#00ADD8"},
		{"go", "#00ADD8"},
		{"C++", "#F34B7D"},
		{"Brainfuck", DefaultColor},
		{"", DefaultColor},
	}
	for _, tt := range tests {
		if got := LanguageColor(tt.name); got != tt.want {
			t.Errorf("LanguageColor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRecordColor(t *testing.T) {
	if got := (Record{}).Color(); got != DefaultColor {
		t.Errorf("empty record color = %q, want %q", got, DefaultColor)
	}
	r := Record{Languages: []Language{{Name: "Rust"}}}
	if got := r.Color(); got != "#DEA584" {
		t.Errorf("color from table = %q", got)
	}
	r.Languages[0].Color = "#123456"
	if got := r.Color(); got != "#123456" {
		t.Errorf("explicit color = %q", got)
	}
}

func TestBreakdown(t *testing.T) {
	got := Breakdown(map[string]uint64{"Go": 300, "Shell": 100, "Markdown": 100}, 500)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "Go" || got[0].Percentage != 60 {
		t.Errorf("first = %+v", got[0])
	}
	// equal line counts fall back to name order
	if got[1].Name != "Markdown" || got[2].Name != "Shell" {
		t.Errorf("tie order = %s, %s", got[1].Name, got[2].Name)
	}
	if Breakdown(map[string]uint64{"Go": 1}, 0) != nil {
		t.Error("zero total should yield nil")
	}
}

func TestDirectoryRecords(t *testing.T) {
	repo := Repository{
		ID:   "r1",
		Name: "city",
		Directories: []Directory{
			{Name: "(root)", Path: "", Lines: 10},
			{Name: "pkg", Path: "pkg", Lines: 90, AgeDays: 4},
		},
	}
	recs := repo.DirectoryRecords()
	if len(recs) != 2 {
		t.Fatalf("len = %d", len(recs))
	}
	if recs[1].ID != "r1:pkg" || recs[1].OwnerID != "r1" || recs[1].OwnerName != "city" {
		t.Errorf("record = %+v", recs[1])
	}
	if recs[1].TotalLines != 90 || recs[1].AgeDays != 4 {
		t.Errorf("metrics not carried: %+v", recs[1])
	}
}

func TestUpsert(t *testing.T) {
	repos := []Repository{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}
	out := Upsert(repos, Repository{ID: "a", Name: "uno"})
	if len(out) != 2 || out[0].Name != "uno" {
		t.Errorf("replace failed: %+v", out)
	}
	if repos[0].Name != "one" {
		t.Error("input slice was mutated")
	}
	out = Upsert(out, Repository{ID: "c"})
	if len(out) != 3 {
		t.Errorf("append failed: %d", len(out))
	}
}

func TestSortByLines(t *testing.T) {
	recs := []Record{
		{ID: "b", TotalLines: 10},
		{ID: "a", TotalLines: 10},
		{ID: "c", TotalLines: 50},
	}
	SortByLines(recs)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("order = %v, want %v", []string{recs[0].ID, recs[1].ID, recs[2].ID}, want)
		}
	}
}

func TestLegend(t *testing.T) {
	repos := []Repository{
		{Languages: []Language{{Name: "Go"}, {Name: "Shell"}}},
		{Languages: []Language{{Name: "Go"}, {Name: "C", Color: "#000000"}}},
	}
	got := Legend(repos)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Name != "C" || got[0].Color != "#000000" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Color != "#00ADD8" {
		t.Errorf("Go color = %q", got[1].Color)
	}
}

func TestRecordBSONFields(t *testing.T) {
	rec := Record{ID: "r1:cmd", Name: "cmd", OwnerID: "r1", TotalLines: 40, AgeDays: 7}
	raw, err := bson.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "name", "owner_id", "total_lines", "age_days"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("BSON document lacks %q: %v", key, doc)
		}
	}
	if _, ok := doc["totallines"]; ok {
		t.Error("TotalLines encoded under its default lowercased name")
	}

	var back Record
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.OwnerID != "r1" || back.TotalLines != 40 {
		t.Errorf("round trip = %+v", back)
	}
}
