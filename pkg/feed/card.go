package feed

import (
	"fmt"

	"waterfall/pkg/html"
	"waterfall/pkg/waterfall"
)

const (
	CardClass    = "waterfall-card"
	ContentClass = "waterfall-card-content"
)

// RenderCard is the demo waterfall.CardRenderer. Images are emitted with a
// deferred source so the lazy loader promotes them.
func RenderCard(it waterfall.Item) *html.Node {
	card := html.NewElement("div")
	card.AddClass(CardClass)
	card.SetStyle("display", "flex")
	card.SetStyle("flex-direction", "column")
	card.SetStyle("gap", "4px")
	card.SetStyle("padding", "8px")
	card.SetStyle("background", "#f4f4f5")
	card.SetStyle("border-radius", "6px")

	for _, src := range Images(it) {
		img := html.NewElement("img")
		img.SetAttribute(waterfall.DeferredSourceAttr, src)
		card.AddChild(img)
	}
	if text := fmt.Sprint(it[FieldContent]); it[FieldContent] != nil && text != "" {
		p := html.NewElement("p")
		p.AddClass(ContentClass)
		p.AppendText(text)
		card.AddChild(p)
	}
	return card
}

// Images returns the image sources of it. JSON-decoded items carry them
// as []any.
func Images(it waterfall.Item) []string {
	switch v := it[FieldImages].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
