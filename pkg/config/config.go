package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"waterfall/pkg/waterfall"
)

// Config is the persisted config file schema.
type Config struct {
	Layout   waterfall.Options `toml:"layout"`
	Viewport Viewport          `toml:"viewport"`
	LogLevel string            `toml:"log_level"`
	Source   string            `toml:"-"`
}

// Viewport sizes the headless page and the viewer window.
type Viewport struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

const (
	EnvColumns = "WATERFALL_COLUMNS"
	EnvGutter  = "WATERFALL_GUTTER"
)

func Default() Config {
	return Config{
		Layout:   waterfall.DefaultOptions(),
		Viewport: Viewport{Width: 800, Height: 600},
		LogLevel: "info",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".waterfall", "config.toml")
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides apply last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.Layout = cfg.Layout.WithDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv(EnvColumns)); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			cfg.Layout.ColumnCount = n
		}
	}
	if env := strings.TrimSpace(os.Getenv(EnvGutter)); env != "" {
		if f, err := strconv.ParseFloat(env, 64); err == nil {
			cfg.Layout.GutterWidth = f
		}
	}
}
