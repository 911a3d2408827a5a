package feed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"
	"math/rand"
	"strings"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"waterfall/pkg/waterfall"
)

// Item fields written by the generator and read by the card renderer.
const (
	FieldID      = "id"
	FieldImages  = "imgs"
	FieldContent = "content"
)

var words = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam quis
nostrud exercitation ullamco laboris nisi aliquip ex ea commodo consequat`)

// Generator produces demo items: a uuid, up to MaxImages placeholder PNGs
// of random size and color, and a sentence of random length.
type Generator struct {
	rng       *rand.Rand
	MaxImages int
	MinWords  int
	MaxWords  int
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		MaxImages: 3,
		MinWords:  5,
		MaxWords:  40,
	}
}

func (g *Generator) Item() waterfall.Item {
	n := g.rng.Intn(g.MaxImages + 1)
	imgs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w := 60 + g.rng.Intn(140)
		h := 60 + g.rng.Intn(140)
		uri, err := Placeholder(w, h, g.color(), fmt.Sprintf("Image %d", 1+g.rng.Intn(100)))
		if err != nil {
			continue
		}
		imgs = append(imgs, uri)
	}
	return waterfall.Item{
		FieldID:      uuid.NewString(),
		FieldImages:  imgs,
		FieldContent: g.sentence(),
	}
}

// List returns count fresh items.
func (g *Generator) List(count int) []waterfall.Item {
	out := make([]waterfall.Item, count)
	for i := range out {
		out[i] = g.Item()
	}
	return out
}

func (g *Generator) color() color.Color {
	return color.RGBA{R: uint8(g.rng.Intn(200)), G: uint8(g.rng.Intn(200)), B: uint8(g.rng.Intn(200)), A: 255}
}

func (g *Generator) sentence() string {
	n := g.MinWords
	if g.MaxWords > g.MinWords {
		n += g.rng.Intn(g.MaxWords - g.MinWords + 1)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = words[g.rng.Intn(len(words))]
	}
	out[0] = strings.ToUpper(out[0][:1]) + out[0][1:]
	return strings.Join(out, " ") + "."
}

// Placeholder draws a w x h PNG filled with bg and a centered white label,
// returned as a data URI.
func Placeholder(w, h int, bg color.Color, label string) (string, error) {
	dc := gg.NewContext(w, h)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(label, float64(w)/2, float64(h)/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return "", fmt.Errorf("encoding placeholder: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
