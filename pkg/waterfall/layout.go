package waterfall

import (
	"context"

	"github.com/sirupsen/logrus"

	"waterfall/pkg/html"
)

type batchKind int

const (
	batchFull batchKind = iota
	batchAppend
	batchExplicit
)

// Batch selects the cards one layout pass places.
type Batch struct {
	kind  batchKind
	from  int
	items []*html.Node
}

// FullRebuild clears the columns and places every card from the slot.
func FullRebuild() Batch { return Batch{kind: batchFull} }

// AppendFrom places the slot cards from index i onward, keeping the
// columns. In interactive mode the live cards left in the slot are all
// unplaced, so i is ignored.
func AppendFrom(i int) Batch { return Batch{kind: batchAppend, from: i} }

// Explicit clears the columns and places exactly items, in order.
func Explicit(items []*html.Node) Batch {
	return Batch{kind: batchExplicit, items: items}
}

type resizeRequest struct {
	batch Batch
	done  chan struct{}
}

// Resize queues b and blocks until it has been laid out, ctx ends or the
// engine closes. Batches run one at a time in the order they were queued.
// A batch that aborts because the slot is empty or there are no columns
// emits no Finish signal, nor does one cut short by Close; every other
// batch emits Finish when it ends.
func (e *Engine) Resize(ctx context.Context, b Batch) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	req, drive := e.enqueueLocked(b)
	e.mu.Unlock()
	if drive {
		go e.drive()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResizeAsync queues b and returns at once.
func (e *Engine) ResizeAsync(b Batch) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	_, drive := e.enqueueLocked(b)
	e.mu.Unlock()
	if drive {
		go e.drive()
	}
}

// enqueueLocked queues b. When it reports true no driver is running and the
// caller must start one once it has released the lock.
func (e *Engine) enqueueLocked(b Batch) (*resizeRequest, bool) {
	req := &resizeRequest{batch: b, done: make(chan struct{})}
	e.pending = append(e.pending, req)
	if e.driving {
		return req, false
	}
	e.driving = true
	e.idle = make(chan struct{})
	return req, true
}

// drive runs queued batches until the queue is empty.
func (e *Engine) drive() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 || e.closed {
			for _, r := range e.pending {
				close(r.done)
			}
			e.pending = nil
			e.driving = false
			close(e.idle)
			e.mu.Unlock()
			return
		}
		req := e.pending[0]
		e.pending = e.pending[1:]
		e.mu.Unlock()

		if e.layout(req.batch) {
			e.emit(func(l Listener) { l.Finish() })
		}
		close(req.done)
	}
}

// layout executes one batch and reports whether it ran to the end of its
// placement loop.
func (e *Engine) layout(b Batch) bool {
	e.mu.Lock()
	items, ok := e.selectLocked(b)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.resizing = true
	e.log.WithFields(logrus.Fields{
		"stage":  "layout",
		"items":  len(items),
		"cursor": e.cursor,
	}).Debug("batch started")
	e.mu.Unlock()

	completed := true
	for _, item := range items {
		if !e.place(item) {
			completed = false
			break
		}
	}

	e.mu.Lock()
	e.resizing = false
	e.log.WithFields(logrus.Fields{
		"stage":   "layout",
		"cursor":  e.cursor,
		"heights": e.columns.Heights(),
	}).Debug("batch finished")
	e.mu.Unlock()
	return completed
}

// selectLocked resolves the cards b places and clears the columns for
// full and explicit batches. ok is false when there is nothing to lay out
// into: no slot cards or no columns.
func (e *Engine) selectLocked(b Batch) (items []*html.Node, ok bool) {
	slot := e.surface.Slot()
	if slot == nil || len(e.columns.Columns()) == 0 {
		e.log.WithField("stage", "layout").Debug("no columns, batch aborted")
		return nil, false
	}
	interactive := e.opts.Interactive
	clears := b.kind == batchFull || b.kind == batchExplicit

	// Live cards sit in the columns after a previous pass; they go back to
	// the slot before it is inspected.
	if clears && interactive {
		e.clearColumnsLocked()
	}
	if len(slot.ElementChildren()) == 0 && !(b.kind == batchExplicit && len(b.items) > 0) {
		e.log.WithField("stage", "layout").Debug("empty slot, batch aborted")
		return nil, false
	}
	if clears && !interactive {
		e.clearColumnsLocked()
	}

	switch b.kind {
	case batchExplicit:
		e.cursor = 0
		return b.items, true
	case batchFull:
		e.cursor = 0
		return e.snapshotLocked(slot), true
	}
	src := e.snapshotLocked(slot)
	start := b.from
	if interactive {
		start = 0
	}
	if start >= len(src) {
		return nil, true
	}
	if start < 0 {
		start = 0
	}
	return src[start:], true
}

// snapshotLocked returns the cards to place: the live slot children in
// interactive mode, detached clones otherwise.
func (e *Engine) snapshotLocked(slot *html.Node) []*html.Node {
	if e.opts.Interactive {
		return slot.ElementChildren()
	}
	return slot.CloneNode(true).ElementChildren()
}

func (e *Engine) clearColumnsLocked() {
	removed := e.columns.Clear()
	if e.opts.Interactive {
		e.restoreLocked(removed)
	}
}

// place runs the per-item steps of a batch. It returns false when the
// engine closed while waiting on an image.
func (e *Engine) place(item *html.Node) bool {
	e.mu.Lock()
	imgs := item.ElementsByTagName("img")
	var first Awaitable
	if len(imgs) > 0 {
		first = e.surface.Decode(imgs[0].Attr("src"))
	}
	e.mu.Unlock()

	// The first image gates placement; a failed decode still places.
	if first != nil && !e.await(first) {
		return false
	}
	if !e.appendItem(item, imgs) {
		return false
	}

	e.mu.Lock()
	if len(imgs) > 0 {
		e.lazy.Scan(imgs)
	}
	e.cursor++
	e.mu.Unlock()
	return true
}

// appendItem appends item to the shortest column, then sizes each of its
// images from the decoded aspect ratio so the column height is right
// before the source is promoted.
func (e *Engine) appendItem(item *html.Node, imgs []*html.Node) bool {
	e.mu.Lock()
	col := e.columns.Shortest()
	if col == nil {
		e.mu.Unlock()
		return true
	}
	col.AddChild(item)
	e.mu.Unlock()

	for _, img := range imgs {
		e.mu.Lock()
		src := img.Attr("src")
		if src == "" {
			src = img.Attr(DeferredSourceAttr)
		}
		if src == "" {
			e.mu.Unlock()
			continue
		}
		a := e.surface.Decode(src)
		e.mu.Unlock()

		if !e.await(a) {
			return false
		}
		w, h, err := a.Size()
		e.mu.Lock()
		if err != nil {
			e.log.WithFields(logrus.Fields{"stage": "decode", "src": truncate(src, 64)}).WithError(err).Debug("image decode failed")
		} else {
			e.fitHeightLocked(img, w, h)
		}
		e.mu.Unlock()
	}
	return true
}

func (e *Engine) fitHeightLocked(img *html.Node, naturalW, naturalH int) {
	if naturalW <= 0 {
		return
	}
	width := e.surface.Width(img)
	if width <= 0 {
		width = e.columns.Width()
	}
	if width <= 0 {
		return
	}
	img.SetStyle("height", html.FormatPx(float64(naturalH)*width/float64(naturalW)))
}

// await blocks until a completes or the engine closes.
func (e *Engine) await(a Awaitable) bool {
	if settled(a) {
		return true
	}
	select {
	case <-a.Done():
		return true
	case <-e.closing:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
