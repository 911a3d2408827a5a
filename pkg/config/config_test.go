package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvColumns, "")
	t.Setenv(EnvGutter, "")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("cfg.Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Layout.ColumnCount != 2 || cfg.Layout.ItemKey != "id" {
		t.Fatalf("unexpected defaults %+v", cfg.Layout)
	}
}

func TestLoad_FromTOML(t *testing.T) {
	t.Setenv(EnvColumns, "")
	t.Setenv(EnvGutter, "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
log_level = "debug"

[layout]
column_count = 4
gutter_width = 12.5
height = 640
transition = true
item_key = "uid"

[viewport]
width = 1024
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l := cfg.Layout
	if l.ColumnCount != 4 || l.GutterWidth != 12.5 || l.Height != 640 || !l.Transition || l.ItemKey != "uid" {
		t.Fatalf("unexpected layout %+v", l)
	}
	if cfg.Viewport.Width != 1024 || cfg.Viewport.Height != 600 {
		t.Fatalf("unexpected viewport %+v", cfg.Viewport)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("cfg.LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvColumns, "5")
	t.Setenv(EnvGutter, "9")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.ColumnCount != 5 || cfg.Layout.GutterWidth != 9 {
		t.Fatalf("env not applied: %+v", cfg.Layout)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[layout\n"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyKVOverrides(t *testing.T) {
	cfg := ApplyKVOverrides(Default(), []string{
		"column_count=3",
		"layout.gutter_width=8",
		"interactive=true",
		"viewport.height=900",
		"load_distance=oops",
		"garbage",
	})
	if cfg.Layout.ColumnCount != 3 || cfg.Layout.GutterWidth != 8 || !cfg.Layout.Interactive {
		t.Fatalf("unexpected layout %+v", cfg.Layout)
	}
	if cfg.Viewport.Height != 900 {
		t.Fatalf("viewport height = %v", cfg.Viewport.Height)
	}
	if cfg.Layout.LoadDistance != 0 {
		t.Fatalf("bad value applied: %v", cfg.Layout.LoadDistance)
	}

	cfg = ApplyKVOverrides(cfg, []string{"column_count=0"})
	if cfg.Layout.ColumnCount != 2 {
		t.Fatalf("invalid count not normalized: %d", cfg.Layout.ColumnCount)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvColumns, "")
	t.Setenv(EnvGutter, "")

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Layout.ColumnCount = 6
	cfg.Layout.LazyDistance = 120
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Layout.ColumnCount != 6 || got.Layout.LazyDistance != 120 {
		t.Fatalf("round trip lost values: %+v", got.Layout)
	}
}
