package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFromBuild(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "9c1e0a7"},
			{Key: "vcs.time", Value: "2025-03-02T10:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := Info{Version: "dev", Commit: "none", Date: "unknown"}
	fillFromBuild(&info, bi)
	want := Info{Version: "v0.4.1", Commit: "9c1e0a7", Date: "2025-03-02T10:00:00Z", Modified: true}
	if info != want {
		t.Errorf("got %+v, want %+v", info, want)
	}

	// ldflags win over the toolchain stamp.
	stamped := Info{Version: "v1.0.0", Commit: "abc", Date: "today"}
	fillFromBuild(&stamped, bi)
	if stamped.Version != "v1.0.0" || stamped.Commit != "abc" || stamped.Date != "today" {
		t.Errorf("stamped fields overwritten: %+v", stamped)
	}
}

func TestDevelVersionIgnored(t *testing.T) {
	info := Info{Version: "dev"}
	fillFromBuild(&info, &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	if info.Version != "dev" {
		t.Errorf("Version = %q", info.Version)
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version: ") || !strings.Contains(tmpl, "commit: ") {
		t.Errorf("Template() = %q", tmpl)
	}
	if Get().Version == "" {
		t.Error("empty version")
	}
}
