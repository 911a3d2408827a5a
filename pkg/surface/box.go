package surface

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"waterfall/pkg/html"
	"waterfall/pkg/images"
)

const (
	// CharWidth is the advance of one narrow cell of text.
	CharWidth = 8.0
	// LineHeight is the height of one line of text.
	LineHeight = 20.0
)

// Box is the measured geometry of one node in document coordinates.
type Box struct {
	Node     *html.Node
	X        float64
	Y        float64
	Width    float64 // Border-box width
	Height   float64 // Border-box height
	Padding  float64
	Lines    []string // Wrapped text for text nodes
	Image    string   // Active source for img elements
	Children []*Box
	Parent   *Box
}

// Tree is one layout pass over a document.
type Tree struct {
	Root  *Box
	index map[*html.Node]*Box
}

// Lookup returns the box of n, or nil when n is detached or hidden.
func (t *Tree) Lookup(n *html.Node) *Box {
	return t.index[n]
}

// Walk visits boxes in paint order.
func (t *Tree) Walk(fn func(*Box)) {
	var walk func(*Box)
	walk = func(b *Box) {
		fn(b)
		for _, c := range b.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
}

// measurer is a small subset of CSS box layout: block flow, flex rows and
// columns with gap, padding, explicit widths (px, %, calc) and heights,
// images sized by attribute or aspect ratio, and wrapped text.
type measurer struct {
	images *images.Decoder
	index  map[*html.Node]*Box
}

// Layout measures the tree under root laid out into the given width.
func Layout(root *html.Node, width float64, dec *images.Decoder) *Tree {
	m := &measurer{images: dec, index: make(map[*html.Node]*Box)}
	t := &Tree{index: m.index}
	if root != nil {
		t.Root = m.layout(root, nil, 0, 0, width, width)
	}
	return t
}

// layout places n at (x, y). contain is the containing block width; auto
// is the width n takes without an explicit width.
func (m *measurer) layout(n *html.Node, parent *Box, x, y, contain, auto float64) *Box {
	box := &Box{Node: n, X: x, Y: y, Parent: parent}
	if n.Type == html.TextNode {
		box.Width = contain
		box.Lines = wrapText(strings.TrimSpace(n.Text), contain)
		box.Height = float64(len(box.Lines)) * LineHeight
		return box
	}
	m.index[n] = box
	style := html.ParseInlineStyle(n.Attr("style"))

	box.Width = auto
	if w, ok := length(style["width"], contain); ok {
		box.Width = w
	} else if w, ok := length(n.Attr("width"), contain); ok && n.TagName == "img" {
		box.Width = w
	}
	box.Width = snap(box.Width)
	box.Padding, _ = length(style["padding"], contain)
	inner := math.Max(0, box.Width-2*box.Padding)
	cx, cy := x+box.Padding, y+box.Padding

	var content float64
	switch {
	case n.TagName == "img":
		box.Image = n.Attr("src")
		content = m.imageHeight(n, box.Image, inner)
	case style["display"] == "flex" && style["flex-direction"] != "column":
		content = m.flexRow(box, style, cx, cy, inner)
	default:
		content = m.flow(box, style, cx, cy, inner)
	}

	box.Height = snap(content + 2*box.Padding)
	if h, ok := length(style["height"], 0); ok && !strings.HasSuffix(style["height"], "%") {
		box.Height = h
	}
	return box
}

// flow stacks children vertically. Flex columns separate items by gap.
func (m *measurer) flow(box *Box, style map[string]string, x, y, inner float64) float64 {
	gap := 0.0
	if style["display"] == "flex" {
		gap, _ = length(style["gap"], inner)
	}
	cy := y
	first := true
	for _, c := range box.Node.Children {
		if !visible(c) {
			continue
		}
		if !first {
			cy += gap
		}
		first = false
		cs := html.ParseInlineStyle(c.Attr("style"))
		mt, _ := length(cs["margin-top"], inner)
		mb, _ := length(cs["margin-bottom"], inner)
		cy += mt
		child := m.layout(c, box, x, cy, inner, inner)
		box.Children = append(box.Children, child)
		cy += child.Height + mb
	}
	return cy - y
}

// flexRow places element children side by side. Items without a width
// share the row equally.
func (m *measurer) flexRow(box *Box, style map[string]string, x, y, inner float64) float64 {
	var items []*html.Node
	for _, c := range box.Node.ElementChildren() {
		if visible(c) {
			items = append(items, c)
		}
	}
	if len(items) == 0 {
		return 0
	}
	gap, _ := length(style["gap"], inner)
	share := (inner - gap*float64(len(items)-1)) / float64(len(items))
	cx := x
	height := 0.0
	for i, c := range items {
		if i > 0 {
			cx += gap
		}
		ml, _ := length(html.ParseInlineStyle(c.Attr("style"))["margin-left"], inner)
		cx += ml
		child := m.layout(c, box, cx, y, inner, share)
		box.Children = append(box.Children, child)
		cx += child.Width
		height = math.Max(height, child.Height)
	}
	return height
}

func (m *measurer) imageHeight(n *html.Node, src string, width float64) float64 {
	style := html.ParseInlineStyle(n.Attr("style"))
	if h, ok := length(style["height"], 0); ok {
		return h
	}
	if h, ok := length(n.Attr("height"), 0); ok {
		return h
	}
	if src == "" || m.images == nil || width <= 0 {
		return 0
	}
	img, ok := m.images.Image(src)
	if !ok {
		return 0
	}
	b := img.Bounds()
	if b.Dx() == 0 {
		return 0
	}
	return float64(b.Dy()) * width / float64(b.Dx())
}

// snap rounds to the 1/64px layout unit.
func snap(v float64) float64 {
	return math.Round(v*64) / 64
}

func visible(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return strings.TrimSpace(n.Text) != ""
	case html.ElementNode:
		return html.ParseInlineStyle(n.Attr("style"))["display"] != "none"
	}
	return false
}

func length(v string, base float64) (float64, bool) {
	if v == "" || v == "auto" {
		return 0, false
	}
	return html.ResolveLength(v, base)
}

// wrapText breaks s into lines of at most width pixels, measuring East
// Asian wide characters as two cells.
func wrapText(s string, width float64) []string {
	if s == "" {
		return nil
	}
	cells := int(width / CharWidth)
	if cells < 1 {
		cells = 1
	}
	var lines []string
	var line strings.Builder
	used := 0
	for _, word := range strings.Fields(s) {
		w := runewidth.StringWidth(word)
		if used > 0 && used+1+w > cells {
			lines = append(lines, line.String())
			line.Reset()
			used = 0
		}
		for w > cells {
			head := runewidth.Truncate(word, cells, "")
			if head == "" {
				break
			}
			if used > 0 {
				lines = append(lines, line.String())
				line.Reset()
				used = 0
			}
			lines = append(lines, head)
			word = strings.TrimPrefix(word, head)
			w = runewidth.StringWidth(word)
		}
		if used > 0 {
			line.WriteByte(' ')
			used++
		}
		line.WriteString(word)
		used += w
	}
	if used > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
