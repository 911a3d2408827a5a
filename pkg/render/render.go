package render

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"waterfall/pkg/html"
	"waterfall/pkg/images"
	"waterfall/pkg/surface"
)

const scrollbarWidth = 6.0

// Renderer paints the visible part of a surface page with gg.
type Renderer struct {
	context *gg.Context
	images  *images.Decoder
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{context: gg.NewContext(width, height)}
}

// Render paints the viewport of p. Callers hold the engine lock (see
// Engine.Do) so the tree does not change mid-paint.
func (r *Renderer) Render(p *surface.Page) {
	r.context.SetRGB(1, 1, 1)
	r.context.Clear()
	r.images = p.Decoder()

	tree := p.Layout()
	root := tree.Lookup(p.Root())
	docOffset, rootOffset := p.ScrollTop(), p.ScrollTop()
	if p.Bounded() {
		docOffset = 0
	}

	tree.Walk(func(b *surface.Box) {
		if root != nil && p.Bounded() && b != root && p.Root().Contains(b.Node) {
			r.context.Push()
			r.context.DrawRectangle(root.X, root.Y, root.Width, root.Height)
			r.context.Clip()
			r.drawBox(b, rootOffset)
			r.context.ResetClip()
			r.context.Pop()
			return
		}
		r.drawBox(b, docOffset)
	})

	top, height := p.Scroll(p.Bounded())
	area := image.Rect(0, 0, r.context.Width(), r.context.Height())
	client := float64(area.Dy())
	if p.Bounded() && root != nil {
		area = image.Rect(int(root.X), int(root.Y), int(root.X+root.Width), int(root.Y+root.Height))
		client = root.Height
	}
	r.drawScrollbar(area, top, height, client)
}

func (r *Renderer) drawBox(b *surface.Box, offset float64) {
	y := b.Y - offset
	if y > float64(r.context.Height()) || y+b.Height < 0 {
		return
	}
	if b.Node.Type == html.TextNode {
		r.drawText(b, y)
		return
	}
	style := html.ParseInlineStyle(b.Node.Attr("style"))
	if bg, ok := parseColor(style["background"]); ok && b.Width > 0 && b.Height > 0 {
		r.context.SetColor(bg)
		if radius, ok := html.ResolveLength(style["border-radius"], b.Width); ok && radius > 0 {
			r.context.DrawRoundedRectangle(b.X, y, b.Width, b.Height, radius)
		} else {
			r.context.DrawRectangle(b.X, y, b.Width, b.Height)
		}
		r.context.Fill()
	}
	if b.Node.TagName == "img" {
		r.drawImage(b, y)
	}
}

// drawImage paints a decoded image scaled to its box. Images that are not
// decoded yet (pending lazy sources, failed loads) get a gray placeholder.
func (r *Renderer) drawImage(b *surface.Box, y float64) {
	if b.Width <= 0 || b.Height <= 0 {
		return
	}
	img, ok := r.lookup(b)
	if !ok {
		r.context.SetRGB(0.9, 0.9, 0.9)
		r.context.DrawRectangle(b.X, y, b.Width, b.Height)
		r.context.Fill()
		return
	}

	r.context.Push()
	r.context.Translate(b.X, y)
	bounds := img.Bounds()
	r.context.Scale(b.Width/float64(bounds.Dx()), b.Height/float64(bounds.Dy()))
	r.context.DrawImage(img, 0, 0)
	r.context.Pop()
}

func (r *Renderer) lookup(b *surface.Box) (image.Image, bool) {
	if b.Image == "" || r.images == nil {
		return nil, false
	}
	img, ok := r.images.Image(b.Image)
	if !ok || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, false
	}
	return img, true
}

func (r *Renderer) drawText(b *surface.Box, y float64) {
	c := color.Color(color.Black)
	if b.Parent != nil {
		if v, ok := parseColor(html.ParseInlineStyle(b.Parent.Node.Attr("style"))["color"]); ok {
			c = v
		}
	}
	r.context.SetColor(c)
	_, ascent := r.context.MeasureString("M")
	for i, line := range b.Lines {
		baseline := y + float64(i)*surface.LineHeight + (surface.LineHeight+ascent)/2
		r.context.DrawString(line, b.X, baseline)
	}
}

func (r *Renderer) drawScrollbar(area image.Rectangle, top, height, client float64) {
	if height <= client || height <= 0 {
		return
	}
	track := float64(area.Dy())
	thumb := track * client / height
	pos := float64(area.Min.Y) + track*top/height
	r.context.SetRGBA(0, 0, 0, 0.3)
	r.context.DrawRoundedRectangle(float64(area.Max.X)-scrollbarWidth-2, pos, scrollbarWidth, thumb, scrollbarWidth/2)
	r.context.Fill()
}

// Image returns the rendered frame.
func (r *Renderer) Image() image.Image {
	return r.context.Image()
}

func (r *Renderer) SavePNG(filename string) error {
	return r.context.SavePNG(filename)
}

// parseColor understands #rgb and #rrggbb.
func parseColor(s string) (color.Color, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return nil, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
}
