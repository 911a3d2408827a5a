package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form key=value overrides, keyed like the
// config file (layout keys may drop the "layout." prefix). Unknown keys
// and unparsable values are skipped.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimPrefix(strings.TrimSpace(parts[0]), "layout.")
		val := strings.TrimSpace(parts[1])
		l := &cfg.Layout
		switch key {
		case "column_count":
			setInt(&l.ColumnCount, val)
		case "column_width":
			setFloat(&l.ColumnWidth, val)
		case "height":
			setFloat(&l.Height, val)
		case "item_key":
			l.ItemKey = val
		case "gutter_width":
			setFloat(&l.GutterWidth, val)
		case "transition":
			setBool(&l.Transition, val)
		case "lazy_distance":
			setFloat(&l.LazyDistance, val)
		case "load_distance":
			setFloat(&l.LoadDistance, val)
		case "interactive":
			setBool(&l.Interactive, val)
		case "viewport.width":
			setFloat(&cfg.Viewport.Width, val)
		case "viewport.height":
			setFloat(&cfg.Viewport.Height, val)
		case "log_level":
			cfg.LogLevel = val
		}
	}
	cfg.Layout = cfg.Layout.WithDefaults()
	return cfg
}

func setInt(dst *int, s string) {
	if v, err := strconv.Atoi(s); err == nil {
		*dst = v
	}
}

func setFloat(dst *float64, s string) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*dst = v
	}
}

func setBool(dst *bool, s string) {
	if v, err := strconv.ParseBool(s); err == nil {
		*dst = v
	}
}
