package waterfall

import "time"

// ScrollEvent is emitted on every scroll tick.
type ScrollEvent struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
	// Diff is the remaining distance to the bottom:
	// ScrollHeight - ScrollTop - ClientHeight.
	Diff float64
	Time time.Time
}

// Listener receives engine signals. Signals are delivered on the goroutine
// that produced them, after the engine lock is released, so a listener
// may call SetData, ResizeAsync, Mix or OnScroll. It must not call the
// blocking Resize from Finish.
type Listener interface {
	Scroll(ScrollEvent)
	LoadMore()
	Finish()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnScroll   func(ScrollEvent)
	OnLoadMore func()
	OnFinish   func()
}

func (l ListenerFuncs) Scroll(ev ScrollEvent) {
	if l.OnScroll != nil {
		l.OnScroll(ev)
	}
}

func (l ListenerFuncs) LoadMore() {
	if l.OnLoadMore != nil {
		l.OnLoadMore()
	}
}

func (l ListenerFuncs) Finish() {
	if l.OnFinish != nil {
		l.OnFinish()
	}
}
