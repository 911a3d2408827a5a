package waterfall

import "waterfall/pkg/html"

const (
	// DeferredSourceAttr holds the real image source until promotion.
	DeferredSourceAttr = "lazy-src"
	// AnimatedClass marks an image whose source is active.
	AnimatedClass = "animation"
)

// LazyState is the lazy-load state of one image element.
type LazyState int

const (
	// Pending: no active source yet.
	Pending LazyState = iota
	// Promoted: active source set, animated marker missing.
	Promoted
	// Settled: active source and marker both present.
	Settled
)

func (s LazyState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Promoted:
		return "promoted"
	case Settled:
		return "settled"
	}
	return "unknown"
}

// ClassifyImage derives the lazy state of img from its attributes.
func ClassifyImage(img *html.Node) LazyState {
	if img.Attr("src") == "" {
		return Pending
	}
	if img.HasClass(AnimatedClass) {
		return Settled
	}
	return Promoted
}

// LazyLoader promotes deferred image sources once they come within
// Distance of the viewport bottom.
type LazyLoader struct {
	surface  Surface
	Distance float64
}

func NewLazyLoader(s Surface, distance float64) *LazyLoader {
	return &LazyLoader{surface: s, Distance: distance}
}

// Scan visits imgs, or every image under the root when imgs is nil, and
// returns the number of elements it changed. A second scan with no
// intervening layout or scroll change returns 0.
func (l *LazyLoader) Scan(imgs []*html.Node) int {
	if imgs == nil {
		root := l.surface.Root()
		if root == nil {
			return 0
		}
		imgs = root.ElementsByTagName("img")
	}

	limit := l.surface.Viewport().Height + l.Distance
	changed := 0
	for _, img := range imgs {
		switch ClassifyImage(img) {
		case Settled:
			continue
		case Promoted:
			img.AddClass(AnimatedClass)
			changed++
		case Pending:
			deferred, ok := img.GetAttribute(DeferredSourceAttr)
			if !ok || deferred == "" {
				continue
			}
			// An image that already carries the marker lost its source;
			// restore it without waiting for the viewport.
			if img.HasClass(AnimatedClass) || l.surface.Top(img) < limit {
				promote(img, deferred)
				changed++
			}
		}
	}
	return changed
}

func promote(img *html.Node, src string) {
	img.SetAttribute("src", src)
	img.AddClass(AnimatedClass)
	img.RemoveAttribute(DeferredSourceAttr)
}
