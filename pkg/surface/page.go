package surface

import (
	"math"

	"waterfall/pkg/html"
	"waterfall/pkg/images"
	"waterfall/pkg/waterfall"
)

const (
	// RootClass marks the container the columns are attached to.
	RootClass = "ui-waterfall"
	// SlotClass marks the hidden box holding the rendered source cards.
	SlotClass = "ui-waterfall-slot"
)

// Page is a waterfall.Surface over an element tree. Geometry comes from a
// fresh layout pass on every query. Page is not safe for concurrent use;
// hosts go through Engine.Do while an engine is attached.
type Page struct {
	doc       *html.Document
	root      *html.Node
	slot      *html.Node
	viewport  waterfall.Viewport
	height    float64
	scrollTop float64
	decoder   *images.Decoder
}

type Option func(*Page)

// WithDecoder sets the image decoder. Without one every decode fails.
func WithDecoder(d *images.Decoder) Option {
	return func(p *Page) { p.decoder = d }
}

// WithBoundedHeight makes the root a fixed-height scroll container.
func WithBoundedHeight(h float64) Option {
	return func(p *Page) { p.height = h }
}

// New wraps doc. The first elements carrying RootClass and SlotClass are
// used when present; missing ones are created under the document.
func New(doc *html.Document, viewport waterfall.Viewport, opts ...Option) *Page {
	if doc == nil {
		doc = html.NewDocument()
	}
	p := &Page{doc: doc, viewport: viewport}
	for _, o := range opts {
		o(p)
	}
	if p.decoder == nil {
		p.decoder = images.NewDecoder(nil, "")
	}

	body := doc.Root
	if b := doc.Root.FirstByTagName("body"); b != nil {
		body = b
	}
	p.root = first(doc.Root.ElementsByClassName(RootClass))
	if p.root == nil {
		p.root = html.NewElement("div")
		p.root.AddClass(RootClass)
		body.AddChild(p.root)
	}
	p.slot = first(doc.Root.ElementsByClassName(SlotClass))
	if p.slot == nil {
		p.slot = html.NewElement("div")
		p.slot.AddClass(SlotClass)
		body.AddChild(p.slot)
	}

	p.root.SetStyle("display", "flex")
	p.root.SetStyle("align-items", "flex-start")
	if p.height > 0 {
		p.root.SetStyle("height", html.FormatPx(p.height))
		p.root.SetStyle("overflow-y", "auto")
	}
	p.slot.SetStyle("display", "none")
	return p
}

func first(nodes []*html.Node) *html.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (p *Page) Document() *html.Document     { return p.doc }
func (p *Page) Root() *html.Node             { return p.root }
func (p *Page) Slot() *html.Node             { return p.slot }
func (p *Page) Viewport() waterfall.Viewport { return p.viewport }
func (p *Page) Decoder() *images.Decoder     { return p.decoder }

// SetViewport resizes the visible area, e.g. when the window changes.
func (p *Page) SetViewport(v waterfall.Viewport) {
	p.viewport = v
	p.ScrollTo(p.scrollTop)
}

// Bounded reports whether the root scrolls instead of the document.
func (p *Page) Bounded() bool {
	return p.height > 0
}

// Layout runs a layout pass over the whole document.
func (p *Page) Layout() *Tree {
	return Layout(p.doc.Root, p.viewport.Width, p.decoder)
}

func (p *Page) Height(n *html.Node) float64 {
	if b := p.Layout().Lookup(n); b != nil {
		return b.Height
	}
	return 0
}

func (p *Page) Width(n *html.Node) float64 {
	if b := p.Layout().Lookup(n); b != nil {
		return b.Width
	}
	return 0
}

// Top is the distance from the top of the viewport to n, following the
// scroll offset of whichever box scrolls.
func (p *Page) Top(n *html.Node) float64 {
	b := p.Layout().Lookup(n)
	if b == nil {
		return 0
	}
	if p.Bounded() && !p.root.Contains(n) {
		return b.Y
	}
	return b.Y - p.scrollTop
}

func (p *Page) Scroll(bounded bool) (top, height float64) {
	return p.scrollTop, p.scrollHeight(bounded)
}

func (p *Page) scrollHeight(bounded bool) float64 {
	t := p.Layout()
	if !bounded {
		if t.Root == nil {
			return 0
		}
		return t.Root.Height
	}
	b := t.Lookup(p.root)
	if b == nil {
		return 0
	}
	h := 0.0
	for _, c := range b.Children {
		h = math.Max(h, c.Y+c.Height-b.Y)
	}
	return h
}

func (p *Page) clientHeight() float64 {
	if p.Bounded() {
		return p.height
	}
	return p.viewport.Height
}

// ScrollTop is the current scroll offset.
func (p *Page) ScrollTop() float64 {
	return p.scrollTop
}

// ScrollTo moves the scroll offset, clamped to the scrollable range, and
// returns the new offset.
func (p *Page) ScrollTo(top float64) float64 {
	limit := math.Max(0, p.scrollHeight(p.Bounded())-p.clientHeight())
	p.scrollTop = math.Min(math.Max(0, top), limit)
	return p.scrollTop
}

func (p *Page) ScrollBy(delta float64) float64 {
	return p.ScrollTo(p.scrollTop + delta)
}

func (p *Page) Decode(src string) waterfall.Awaitable {
	return p.decoder.Decode(src)
}
