package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

func TestRootCommand(t *testing.T) {
	root := testCLI(t).RootCommand()
	want := []string{"analyze", "scan", "layout", "render", "view", "serve", "repos", "cache", "config", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{pipeline.DefaultFormat}},
		{"svg", []string{"svg"}},
		{"SVG, png ,,json", []string{"svg", "png", "json"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRepoRef(t *testing.T) {
	owner, repo, err := parseRepoRef("charmbracelet/bubbletea.git")
	if err != nil || owner != "charmbracelet" || repo != "bubbletea" {
		t.Errorf("parseRepoRef = %q, %q, %v", owner, repo, err)
	}
	for _, bad := range []string{"bubbletea", "/x", "a/"} {
		if _, _, err := parseRepoRef(bad); !errors.Is(err, errors.ErrCodeInvalidRepoRef) {
			t.Errorf("parseRepoRef(%q) err = %v", bad, err)
		}
	}
}

func TestSourceFlagsOptions(t *testing.T) {
	tests := []struct {
		name    string
		flags   sourceFlags
		args    []string
		source  string
		set     bool
		wantErr bool
	}{
		{"none", sourceFlags{}, nil, "", false, false},
		{"path", sourceFlags{}, []string{"."}, pipeline.SourceLocal, true, false},
		{"github", sourceFlags{github: "a/b"}, nil, pipeline.SourceGitHub, true, false},
		{"scan", sourceFlags{scan: "/src"}, nil, pipeline.SourceScan, true, false},
		{"github and path", sourceFlags{github: "a/b"}, []string{"."}, "", false, true},
		{"bad ref", sourceFlags{github: "ab"}, nil, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts pipeline.Options
			set, err := tt.flags.options(&opts, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if set != tt.set || opts.Source() != tt.source {
				t.Errorf("set = %v, source = %q", set, opts.Source())
			}
		})
	}
}

func TestResolveRepo(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	repos := []metrics.Repository{
		{ID: "3f2a0c9e-1111", Name: "alpha", TotalLines: 10},
		{ID: "3f2b7d10-2222", Name: "beta", TotalLines: 20},
	}
	if err := store.PutAll(ctx, st, repos); err != nil {
		t.Fatal(err)
	}

	for ref, want := range map[string]string{
		"3f2a0c9e-1111": "alpha",
		"3f2b":          "beta",
		"alpha":         "alpha",
	} {
		r, err := resolveRepo(ctx, st, ref)
		if err != nil || r.Name != want {
			t.Errorf("resolveRepo(%q) = %q, %v", ref, r.Name, err)
		}
	}
	if _, err := resolveRepo(ctx, st, "3f2"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ambiguous prefix err = %v", err)
	}
	if _, err := resolveRepo(ctx, st, "gamma"); !errors.Is(err, errors.ErrCodeRepoNotFound) {
		t.Errorf("unknown ref err = %v", err)
	}
}

func TestLoadRepositoriesFromStore(t *testing.T) {
	c := testCLI(t)
	c.Config.Store.Backend = store.BackendMemory
	ctx := context.Background()
	st := store.NewMemory()

	_, _, err := c.loadRepositories(ctx, nil, st, &sourceFlags{}, nil)
	if !errors.Is(err, errors.ErrCodeNoData) {
		t.Fatalf("empty store err = %v", err)
	}

	if err := store.PutAll(ctx, st, sampleRepos()); err != nil {
		t.Fatal(err)
	}
	repos, _, err := c.loadRepositories(ctx, nil, st, &sourceFlags{}, nil)
	if err != nil || len(repos) != 2 {
		t.Errorf("loadRepositories = %d repos, %v", len(repos), err)
	}
}

func TestRepositoriesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "repos.json")
	if err := writeRepositoriesFile(sampleRepos(), path); err != nil {
		t.Fatal(err)
	}
	got, err := readRepositoriesFile(path)
	if err != nil || len(got) != 2 || got[0].Directories[1].Name != "pkg" {
		t.Errorf("readRepositoriesFile = %+v, %v", got, err)
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte("[]"), 0o644)
	if _, err := readRepositoriesFile(empty); !errors.Is(err, errors.ErrCodeNoData) {
		t.Errorf("empty file err = %v", err)
	}
	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte("{"), 0o644)
	if _, err := readRepositoriesFile(broken); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("broken file err = %v", err)
	}
}

func TestWriteArtifacts(t *testing.T) {
	base := filepath.Join(t.TempDir(), "docs", "city")
	paths, err := writeArtifacts(base, map[string][]byte{
		"svg":  []byte("<svg/>"),
		"tree": []byte("<svg/>"),
		"json": []byte("{}"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{base + ".json", base + ".svg", base + ".tree.svg"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written", p)
		}
	}
}

func TestErrorLineAndExitCode(t *testing.T) {
	err := errors.Wrap(errors.ErrCodeInvalidPath, os.ErrNotExist, "read repos.json")
	line := ErrorLine(err)
	for _, want := range []string{"read repos.json", "file does not exist", "INVALID_PATH"} {
		if !strings.Contains(line, want) {
			t.Errorf("ErrorLine = %q, missing %q", line, want)
		}
	}
	if ExitCode(err) != 2 {
		t.Errorf("ExitCode(invalid path) = %d, want 2", ExitCode(err))
	}
	if ExitCode(errors.New(errors.ErrCodeNetwork, "clone failed")) != 1 {
		t.Error("network errors should exit 1")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	c := testCLI(t)
	c.ConfigPath = filepath.Join(t.TempDir(), "codecity.toml")

	if err := execute(c.configInitCommand()); err != nil {
		t.Fatal(err)
	}
	if err := execute(c.configInitCommand()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("second init err = %v, want refusal without --force", err)
	}

	var out strings.Builder
	show := c.configShowCommand()
	show.SetOut(&out)
	if err := execute(show); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[layout.pack]") {
		t.Errorf("config show output:\n%s", out.String())
	}
}

func TestCompleteFormats(t *testing.T) {
	got, _ := completeFormats(nil, nil, "")
	if len(got) != len(sink.Formats) {
		t.Errorf("empty prefix = %v", got)
	}

	got, _ = completeFormats(nil, nil, "svg,pn")
	for _, s := range got {
		if !strings.HasPrefix(s, "svg,") || s == "svg,svg" {
			t.Errorf("completion %q after svg", s)
		}
	}
	if !slices.Contains(got, "svg,png") {
		t.Errorf("completions %v lack svg,png", got)
	}
}

func TestCompleteViews(t *testing.T) {
	got, _ := completeViews(nil, nil, "")
	if len(got) != 3 || !strings.HasPrefix(got[0], "repos\t") {
		t.Errorf("completeViews() = %v", got)
	}
}

func TestCompleteRepos(t *testing.T) {
	c := testCLI(t)
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	repo := metrics.Repository{ID: "3f2a0c9e-1111", Name: "alpha", TotalLines: 10}
	if err := st.Put(ctx, repo); err != nil {
		t.Fatal(err)
	}
	st.Close()

	show, _, err := c.RootCommand().Find([]string{"repos", "show"})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := show.ValidArgsFunction(show, nil, "")
	if len(got) != 1 || got[0] != "alpha\t3f2a0c9e" {
		t.Errorf("completions = %q", got)
	}
}

func TestCompletionScript(t *testing.T) {
	root := testCLI(t).RootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	if err := execute(root, "completion", "bash"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "codecity") {
		t.Error("bash script does not mention the command")
	}
}
