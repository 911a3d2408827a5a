package waterfall

// ScrollController holds the load gate: armed means a "load more" signal
// may fire on the next threshold crossing.
type ScrollController struct {
	Threshold     float64
	armed         bool
	lastScrollTop float64
}

func NewScrollController(threshold float64) *ScrollController {
	return &ScrollController{Threshold: threshold, armed: true}
}

// Evaluate applies one scroll tick to the gate and reports whether a
// "load more" signal must fire. It fires once per crossing below the
// threshold and re-arms when Diff climbs back to it.
func (c *ScrollController) Evaluate(ev ScrollEvent, resizing bool) bool {
	if ev.Diff <= c.Threshold && c.armed && ev.ScrollHeight > ev.ClientHeight && !resizing {
		c.lastScrollTop = ev.ScrollTop
		c.armed = false
		return true
	}
	if ev.Diff >= c.Threshold {
		c.armed = true
	}
	return false
}

// Armed reports the load gate.
func (c *ScrollController) Armed() bool {
	return c.armed
}

// LastScrollTop is the scroll position of the last "load more" signal.
func (c *ScrollController) LastScrollTop() float64 {
	return c.lastScrollTop
}
