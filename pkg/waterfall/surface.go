package waterfall

import "waterfall/pkg/html"

// Viewport is the visible area the layout is measured against.
type Viewport struct {
	Width  float64
	Height float64
}

// Awaitable is an in-flight image decode. Done is closed when the decode
// has succeeded or failed; Size is valid after that.
type Awaitable interface {
	Done() <-chan struct{}
	Size() (width, height int, err error)
}

// Surface is the host environment the engine lays cards out on. All
// methods are called with the engine lock held and must not block;
// Decode returns immediately and reports completion through the
// Awaitable.
type Surface interface {
	// Root is the container the columns are attached to, or nil when it
	// is not available yet.
	Root() *html.Node
	// Slot holds the rendered source cards in data order.
	Slot() *html.Node
	Viewport() Viewport
	// Height is the measured box height of n.
	Height(n *html.Node) float64
	// Width is the rendered width of n, or 0 when n is not laid out.
	Width(n *html.Node) float64
	// Top is the distance from the top of the viewport to n.
	Top(n *html.Node) float64
	// Scroll reports scrollTop and scrollHeight of either the bounded
	// root container or the document.
	Scroll(bounded bool) (top, height float64)
	Decode(src string) Awaitable
}

// settled reports whether a has completed without waiting.
func settled(a Awaitable) bool {
	select {
	case <-a.Done():
		return true
	default:
		return false
	}
}
