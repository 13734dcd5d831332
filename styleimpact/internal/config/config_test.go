package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/styleimpact/dbopen"
)

const sample = `
browser:
  stealth: headful
  viewport_width: 1440
  resource_blocking: [images, fonts]
sinks:
  - type: stdout
  - type: webhook
    url: http://localhost:9000/hook
jobs:
  - id: home
    url: https://example.com/
    sources: [https://example.com/theme.css]
    breakpoints: [375, 1280]
    counter_css: true
  - id: offline
    html: '<div class="box"></div>'
    stylesheets:
      main.css: '.box { width: 100px }'
    sources: [main.css]
    itemized: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styleimpact.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Browser.Stealth != "headful" || cfg.Browser.ViewportWidth != 1440 {
		t.Errorf("browser: got %+v", cfg.Browser)
	}
	if cfg.Browser.ViewportHeight != 800 {
		t.Errorf("viewport height default: got %d, want 800", cfg.Browser.ViewportHeight)
	}
	if cfg.Browser.NavigateTimeout != 30*time.Second {
		t.Errorf("navigate timeout: got %v", cfg.Browser.NavigateTimeout)
	}
	if cfg.HTTP.Addr != ":8090" {
		t.Errorf("http addr: got %q", cfg.HTTP.Addr)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].MaxRetries != 3 {
		t.Errorf("sinks: got %+v", cfg.Sinks)
	}
	if len(cfg.Jobs) != 2 {
		t.Fatalf("jobs: got %d, want 2", len(cfg.Jobs))
	}
	home := cfg.Jobs[0]
	if !slices.Equal(home.Breakpoints, []int{375, 1280}) || !home.CounterCSS || home.Scope != "*" {
		t.Errorf("home: got %+v", home)
	}
	off := cfg.Jobs[1]
	if off.Stylesheets["main.css"] != ".box { width: 100px }" || !off.Itemized {
		t.Errorf("offline: got %+v", off)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRejectsInvalidJob(t *testing.T) {
	tests := []string{
		"jobs:\n  - url: https://x/\n    sources: [a]\n",
		"jobs:\n  - id: a\n    sources: [a]\n",
		"jobs:\n  - id: a\n    url: https://x/\n    html: '<p>'\n    sources: [a]\n",
		"jobs:\n  - id: a\n    url: https://x/\n",
		"jobs:\n  - id: a\n    url: https://x/\n    sources: [a]\n    breakpoints: [0]\n",
	}
	for _, y := range tests {
		if _, err := Parse([]byte(y)); err == nil {
			t.Errorf("Parse(%q): expected error", y)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Browser.Stealth != "headless" || cfg.Browser.MemoryLimit != 1<<30 {
		t.Errorf("defaults: got %+v", cfg.Browser)
	}
}

func TestSaveLoadJobs(t *testing.T) {
	ctx := context.Background()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))

	jobs := []JobConfig{
		{ID: "b", URL: "https://example.com/", Sources: []string{"https://example.com/a.css"}, Breakpoints: []int{320, 1024}, Restore: true},
		{ID: "a", HTML: "<p></p>", Stylesheets: map[string]string{"p.css": "p{color:red}"}, Sources: []string{"p.css"}, RulePropertiesOnly: true, Itemized: true},
	}
	for _, j := range jobs {
		if err := SaveJob(ctx, db, j); err != nil {
			t.Fatalf("SaveJob(%s): %v", j.ID, err)
		}
	}

	got, err := LoadJobs(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("jobs: got %+v", got)
	}
	if !got[0].RulePropertiesOnly || !got[0].Itemized || got[0].Stylesheets["p.css"] != "p{color:red}" {
		t.Errorf("job a: got %+v", got[0])
	}
	if got[0].Scope != "*" {
		t.Errorf("job a scope: got %q, want *", got[0].Scope)
	}
	if !slices.Equal(got[1].Breakpoints, []int{320, 1024}) || !got[1].Restore {
		t.Errorf("job b: got %+v", got[1])
	}

	// Upsert replaces.
	jobs[1].Sources = []string{"p.css", "q.css"}
	if err := SaveJob(ctx, db, jobs[1]); err != nil {
		t.Fatal(err)
	}
	if err := DisableJob(ctx, db, "b"); err != nil {
		t.Fatal(err)
	}
	got, err = LoadJobs(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !slices.Equal(got[0].Sources, []string{"p.css", "q.css"}) {
		t.Errorf("after upsert/disable: got %+v", got)
	}
}

func TestSaveJobInvalid(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	if err := SaveJob(context.Background(), db, JobConfig{ID: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}
