package waterfall

import "time"

const (
	// ReflowDelay debounces column-count and data-length changes.
	ReflowDelay = 300 * time.Millisecond
	// LazyScanDelay coalesces scroll ticks into one lazy-load scan.
	LazyScanDelay = 14 * time.Millisecond

	DefaultColumnCount = 2
	DefaultItemKey     = "id"
)

// Options is the recognized component configuration. The toml tags are the
// keys of the config file (see pkg/config).
type Options struct {
	ColumnCount int `toml:"column_count"`
	// ColumnWidth fixes every column to an exact pixel width. Zero means
	// columns share the viewport by percentage.
	ColumnWidth float64 `toml:"column_width"`
	// Height bounds the scroll viewport to a fixed-height container. Zero
	// means the document viewport is used.
	Height       float64 `toml:"height"`
	ItemKey      string  `toml:"item_key"`
	GutterWidth  float64 `toml:"gutter_width"`
	Transition   bool    `toml:"transition"`
	LazyDistance float64 `toml:"lazy_distance"`
	LoadDistance float64 `toml:"load_distance"`
	// Interactive lays out the live cards instead of detached clones.
	Interactive bool `toml:"interactive"`
}

func DefaultOptions() Options {
	return Options{
		ColumnCount: DefaultColumnCount,
		ItemKey:     DefaultItemKey,
	}
}

// WithDefaults fills unset or invalid fields.
func (o Options) WithDefaults() Options {
	if o.ColumnCount < 1 {
		o.ColumnCount = DefaultColumnCount
	}
	if o.ItemKey == "" {
		o.ItemKey = DefaultItemKey
	}
	if o.GutterWidth < 0 {
		o.GutterWidth = 0
	}
	if o.ColumnWidth < 0 {
		o.ColumnWidth = 0
	}
	if o.Height < 0 {
		o.Height = 0
	}
	return o
}

// Bounded reports whether scrolling is measured against a fixed-height
// container rather than the document.
func (o Options) Bounded() bool {
	return o.Height > 0
}
