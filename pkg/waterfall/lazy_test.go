package waterfall

import (
	"testing"

	"waterfall/pkg/html"
)

func lazyImage(src, deferred, top string, classes ...string) *html.Node {
	img := html.NewElement("img")
	if src != "" {
		img.SetAttribute("src", src)
	}
	if deferred != "" {
		img.SetAttribute(DeferredSourceAttr, deferred)
	}
	img.SetAttribute("data-top", top)
	for _, c := range classes {
		img.AddClass(c)
	}
	return img
}

func TestClassifyImage(t *testing.T) {
	tests := []struct {
		img  *html.Node
		want LazyState
	}{
		{lazyImage("", "a.png", "0"), Pending},
		{lazyImage("a.png", "", "0"), Promoted},
		{lazyImage("a.png", "", "0", AnimatedClass), Settled},
		{lazyImage("", "a.png", "0", AnimatedClass), Pending},
	}
	for _, tt := range tests {
		if got := ClassifyImage(tt.img); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.img.SerializeOuter(), tt.want, got)
		}
	}
}

func TestLazyScan(t *testing.T) {
	s := newFakeSurface(600, 100)
	l := NewLazyLoader(s, 50)

	inside := lazyImage("", "in.png", "149")
	edge := lazyImage("", "edge.png", "150")
	promoted := lazyImage("p.png", "", "900")
	settledImg := lazyImage("s.png", "", "0", AnimatedClass)
	marked := lazyImage("", "m.png", "900", AnimatedClass)
	noSource := lazyImage("", "", "0")
	for _, n := range []*html.Node{inside, edge, promoted, settledImg, marked, noSource} {
		s.root.AddChild(n)
	}

	if n := l.Scan(nil); n != 3 {
		t.Errorf("expected 3 changes, got %d", n)
	}
	if inside.Attr("src") != "in.png" || inside.Attr(DeferredSourceAttr) != "" || !inside.HasClass(AnimatedClass) {
		t.Errorf("inside image not promoted: %s", inside.SerializeOuter())
	}
	if edge.Attr("src") != "" {
		t.Error("image at the limit promoted")
	}
	if !promoted.HasClass(AnimatedClass) {
		t.Error("promoted image missing the marker")
	}
	if marked.Attr("src") != "m.png" {
		t.Error("marked image not restored")
	}
	if noSource.HasClass(AnimatedClass) {
		t.Error("image without a source changed")
	}

	if n := l.Scan(nil); n != 0 {
		t.Errorf("second scan changed %d elements", n)
	}
}

func TestLazyScanSubset(t *testing.T) {
	s := newFakeSurface(600, 100)
	l := NewLazyLoader(s, 0)
	a := lazyImage("", "a.png", "10")
	b := lazyImage("", "b.png", "10")
	s.root.AddChild(a)
	s.root.AddChild(b)

	if n := l.Scan([]*html.Node{a}); n != 1 {
		t.Errorf("expected 1 change, got %d", n)
	}
	if b.Attr("src") != "" {
		t.Error("scan touched an image outside the subset")
	}
}
