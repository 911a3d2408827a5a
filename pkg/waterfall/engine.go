package waterfall

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"waterfall/pkg/html"
	"waterfall/pkg/logger"
)

// KeyAttr carries the identity key on every rendered card.
const KeyAttr = "data-key"

// ErrClosed is returned by Resize after Close.
var ErrClosed = errors.New("waterfall: engine closed")

// Item is one entry of the data source.
type Item map[string]any

// Key returns the identity of the item under field key, or "" when the
// field is missing.
func (it Item) Key(key string) string {
	v, ok := it[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// CardRenderer renders the card element of one item.
type CardRenderer func(Item) *html.Node

// Option configures an Engine.
type Option func(*Engine)

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithCardRenderer makes SetData render cards into the slot. Without a
// renderer the host keeps the slot in sync with the data itself.
func WithCardRenderer(r CardRenderer) Option {
	return func(e *Engine) { e.render = r }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithRand sets the random source used by Mix.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// Engine is the waterfall layout engine. Every state transition runs under
// mu; a layout batch releases it only while it waits for an image decode.
type Engine struct {
	mu      sync.Mutex
	surface Surface
	opts    Options
	sched   Scheduler
	render  CardRenderer
	rng     *rand.Rand
	now     func() time.Time
	log     *logrus.Entry

	columns *ColumnManager
	lazy    *LazyLoader
	scroll  *ScrollController

	data     []Item
	cards    map[string]*html.Node
	cursor   int
	resizing bool
	active   bool
	closed   bool
	closing  chan struct{}

	pending []*resizeRequest
	driving bool
	idle    chan struct{}

	columnTimer debouncer
	dataTimer   debouncer
	lazyTimer   debouncer

	lmu       sync.Mutex
	listeners []Listener
}

func New(s Surface, opts Options, options ...Option) *Engine {
	opts = opts.WithDefaults()
	e := &Engine{
		surface:     s,
		opts:        opts,
		cards:       make(map[string]*html.Node),
		active:      true,
		closing:     make(chan struct{}),
		columnTimer: debouncer{delay: ReflowDelay},
		dataTimer:   debouncer{delay: ReflowDelay},
		lazyTimer:   debouncer{delay: LazyScanDelay},
	}
	for _, o := range options {
		o(e)
	}
	if e.sched == nil {
		e.sched = NewClockScheduler()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logger.Named("waterfall")
	}
	e.columns = NewColumnManager(s)
	e.lazy = NewLazyLoader(s, opts.LazyDistance)
	e.scroll = NewScrollController(opts.LoadDistance)
	return e
}

// AddListener registers l and returns a function that removes it.
func (e *Engine) AddListener(l Listener) (remove func()) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	e.listeners = append(e.listeners, l)
	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		for i, x := range e.listeners {
			if x == l {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(fn func(Listener)) {
	e.lmu.Lock()
	ls := append([]Listener(nil), e.listeners...)
	e.lmu.Unlock()
	for _, l := range ls {
		fn(l)
	}
}

// Mount builds the columns and lays out every card. It returns when the
// batch has finished. A surface without a root is left untouched; the
// next Mount or column change retries.
func (e *Engine) Mount() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.initColumnsLocked()
	_, drive := e.enqueueLocked(FullRebuild())
	e.mu.Unlock()
	if drive {
		e.drive()
	}
}

// Do runs fn with the engine lock held. Hosts use it to read or change the
// element tree (render it, move the scroll position) without racing a
// layout batch.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Activate resumes scroll handling after Deactivate.
func (e *Engine) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = true
}

// Deactivate ignores scroll events until Activate, e.g. while the view is
// cached off screen. A pending lazy scan is dropped.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.lazyTimer.stop(e.sched)
}

// Close cancels every timer and wakes a batch waiting on an image. Later
// calls into the engine are no-ops.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.columnTimer.stop(e.sched)
	e.dataTimer.stop(e.sched)
	e.lazyTimer.stop(e.sched)
	close(e.closing)
}

// SetColumnCount changes the column count. After ReflowDelay the columns
// are rebuilt and every card is placed again.
func (e *Engine) SetColumnCount(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if n < 1 {
		n = DefaultColumnCount
	}
	e.opts.ColumnCount = n
	e.columnTimer.reset(e.sched, e.columnsChanged)
}

func (e *Engine) columnsChanged(gen uint64) {
	e.mu.Lock()
	if e.closed || !e.columnTimer.claim(gen) {
		e.mu.Unlock()
		return
	}
	e.initColumnsLocked()
	_, drive := e.enqueueLocked(FullRebuild())
	e.mu.Unlock()
	if drive {
		e.drive()
	}
}

func (e *Engine) initColumnsLocked() {
	detached, ok := e.columns.Init(e.opts.ColumnCount, e.opts.GutterWidth, e.opts.ColumnWidth, e.opts.Transition)
	if !ok {
		e.log.WithField("stage", "columns").Debug("root not available, columns not built")
		return
	}
	if e.opts.Interactive {
		e.restoreLocked(detached)
	}
	e.log.WithFields(logrus.Fields{
		"stage":   "columns",
		"columns": e.opts.ColumnCount,
		"width":   e.columns.Width(),
	}).Debug("columns built")
}

// SetData replaces the data source. With a card renderer the slot is
// re-rendered at once, reusing cards by identity key; the layout follows
// after ReflowDelay, coalescing bursts of changes.
func (e *Engine) SetData(items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	oldLen := len(e.data)
	e.data = e.keyed(items)
	e.renderSlotLocked()
	newLen := len(e.data)
	e.dataTimer.reset(e.sched, func(gen uint64) { e.dataChanged(gen, oldLen, newLen) })
}

// AppendData extends the data source; see SetData.
func (e *Engine) AppendData(items ...Item) {
	e.mu.Lock()
	data := append(append([]Item(nil), e.data...), items...)
	e.mu.Unlock()
	e.SetData(data)
}

// Data returns a copy of the data source.
func (e *Engine) Data() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Item(nil), e.data...)
}

func (e *Engine) dataChanged(gen uint64, oldLen, newLen int) {
	e.mu.Lock()
	if e.closed || !e.dataTimer.claim(gen) {
		e.mu.Unlock()
		return
	}
	d := DecideReflow(oldLen, newLen, e.cursor, e.resizing)
	e.cursor = d.Cursor
	e.log.WithFields(logrus.Fields{
		"stage":    "reflow",
		"old":      oldLen,
		"new":      newLen,
		"cursor":   d.Cursor,
		"decision": d.Kind,
		"resizing": e.resizing,
	}).Debug("data length changed")

	// An emptied data source leaves nothing to place; the columns are
	// cleared so no stale cards stay on screen.
	if d.Kind == ReflowNone && newLen == 0 && oldLen > 0 && !e.resizing {
		e.clearColumnsLocked()
	}

	var drive bool
	switch d.Kind {
	case ReflowAppend:
		_, drive = e.enqueueLocked(AppendFrom(d.Start))
	case ReflowRebuild:
		_, drive = e.enqueueLocked(FullRebuild())
	}
	e.mu.Unlock()
	if drive {
		e.drive()
	}
}

// keyed copies items and gives every item without an identity a uuid.
func (e *Engine) keyed(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.Key(e.opts.ItemKey) == "" {
			cp := make(Item, len(it)+1)
			for k, v := range it {
				cp[k] = v
			}
			cp[e.opts.ItemKey] = uuid.NewString()
			it = cp
		}
		out[i] = it
	}
	return out
}

func (e *Engine) renderSlotLocked() {
	slot := e.surface.Slot()
	if e.render == nil || slot == nil {
		return
	}
	next := make(map[string]*html.Node, len(e.data))
	for _, it := range e.data {
		key := it.Key(e.opts.ItemKey)
		if _, dup := next[key]; dup {
			continue
		}
		card, ok := e.cards[key]
		if !ok {
			if card = e.render(it); card == nil {
				continue
			}
			card.SetAttribute(KeyAttr, key)
		}
		next[key] = card
		// Live cards already placed in a column stay there.
		if card.Parent == nil || card.Parent == slot {
			slot.AddChild(card)
		}
	}
	// Dropped cards leave the tree, placed or not.
	for key, card := range e.cards {
		if _, keep := next[key]; !keep {
			card.Remove()
		}
	}
	e.cards = next
}

// restoreLocked puts live cards taken out of the columns back into the
// slot, in data order. With a card renderer only cards of the current data
// source return.
func (e *Engine) restoreLocked(cards []*html.Node) {
	slot := e.surface.Slot()
	if slot == nil || len(cards) == 0 {
		return
	}
	for _, c := range cards {
		if e.render != nil && e.cards[c.Attr(KeyAttr)] != c {
			continue
		}
		slot.AddChild(c)
	}
	for _, it := range e.data {
		if card, ok := e.cards[it.Key(e.opts.ItemKey)]; ok && card.Parent == slot {
			slot.AddChild(card)
		}
	}
}

// Mix shuffles the cards and lays them out again in the new order. It does
// not wait for the batch.
func (e *Engine) Mix() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	slot := e.surface.Slot()
	if slot == nil {
		e.mu.Unlock()
		return
	}
	var cards []*html.Node
	if e.opts.Interactive {
		cards = slot.ElementChildren()
		for _, col := range e.columns.Columns() {
			cards = append(cards, col.ElementChildren()...)
		}
	} else {
		cards = slot.CloneNode(true).ElementChildren()
	}
	shuffle(e.rng, cards)
	_, drive := e.enqueueLocked(Explicit(cards))
	e.mu.Unlock()
	if drive {
		go e.drive()
	}
}

// OnScroll handles one scroll or touch-move tick: it emits the scroll
// metrics, evaluates the load gate and restarts the lazy-scan debounce.
func (e *Engine) OnScroll() {
	e.mu.Lock()
	if e.closed || !e.active || e.surface.Root() == nil {
		e.mu.Unlock()
		return
	}
	bounded := e.opts.Bounded()
	top, height := e.surface.Scroll(bounded)
	client := e.surface.Viewport().Height
	if bounded {
		client = e.opts.Height
	}
	ev := ScrollEvent{
		ScrollTop:    top,
		ScrollHeight: height,
		ClientHeight: client,
		Diff:         height - top - client,
		Time:         e.now(),
	}
	more := e.scroll.Evaluate(ev, e.resizing)
	e.lazyTimer.reset(e.sched, e.lazyScanDue)
	e.mu.Unlock()

	e.emit(func(l Listener) { l.Scroll(ev) })
	if more {
		e.log.WithFields(logrus.Fields{"stage": "scroll", "diff": ev.Diff}).Debug("load more")
		e.emit(func(l Listener) { l.LoadMore() })
	}
}

func (e *Engine) lazyScanDue(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.lazyTimer.claim(gen) {
		return
	}
	e.lazy.Scan(nil)
}

// LazyScan runs a full-viewport lazy-load scan now.
func (e *Engine) LazyScan() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lazy.Scan(nil)
}

// Cursor is the index of the next unprocessed data item.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Resizing reports whether a layout batch is executing.
func (e *Engine) Resizing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resizing
}

// LoadArmed reports whether the next threshold crossing fires LoadMore.
func (e *Engine) LoadArmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scroll.Armed()
}

// ColumnHeights reports the measured height of every column.
func (e *Engine) ColumnHeights() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.columns.Heights()
}

// ColumnWidth is the numeric column width used for image heights.
func (e *Engine) ColumnWidth() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.columns.Width()
}

// Options returns the effective configuration.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// Wait blocks until no layout batch is queued or running.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	if !e.driving {
		e.mu.Unlock()
		return nil
	}
	idle := e.idle
	e.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
