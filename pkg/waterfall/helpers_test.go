package waterfall

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"waterfall/pkg/html"
)

// fakeSurface measures cards by their data-h attribute and places images
// by data-top. Column height is the sum of its cards.
type fakeSurface struct {
	root         *html.Node
	slot         *html.Node
	viewport     Viewport
	scrollTop    float64
	scrollHeight float64
	images       map[string]*fakeImage
}

func newFakeSurface(width, height float64) *fakeSurface {
	return &fakeSurface{
		root:     html.NewElement("div"),
		slot:     html.NewElement("div"),
		viewport: Viewport{Width: width, Height: height},
		images:   make(map[string]*fakeImage),
	}
}

func (s *fakeSurface) Root() *html.Node   { return s.root }
func (s *fakeSurface) Slot() *html.Node   { return s.slot }
func (s *fakeSurface) Viewport() Viewport { return s.viewport }

func (s *fakeSurface) Height(n *html.Node) float64 {
	if v, ok := n.GetAttribute("data-h"); ok {
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	sum := 0.0
	for _, c := range n.ElementChildren() {
		sum += s.Height(c)
	}
	return sum
}

func (s *fakeSurface) Width(n *html.Node) float64 { return 0 }

func (s *fakeSurface) Top(n *html.Node) float64 {
	f, _ := strconv.ParseFloat(n.Attr("data-top"), 64)
	return f
}

func (s *fakeSurface) Scroll(bounded bool) (float64, float64) {
	return s.scrollTop, s.scrollHeight
}

func (s *fakeSurface) Decode(src string) Awaitable {
	if img, ok := s.images[src]; ok {
		return img
	}
	return failedImage()
}

func (s *fakeSurface) addCards(heights ...float64) []*html.Node {
	var out []*html.Node
	for i, h := range heights {
		card := html.NewElement("div")
		card.SetAttribute("id", fmt.Sprintf("card-%d", len(s.slot.Children)+i))
		card.SetAttribute("data-h", strconv.FormatFloat(h, 'f', -1, 64))
		out = append(out, card)
	}
	for _, c := range out {
		s.slot.AddChild(c)
	}
	return out
}

type fakeImage struct {
	done chan struct{}
	w, h int
	err  error
}

func readyImage(w, h int) *fakeImage {
	img := &fakeImage{done: make(chan struct{}), w: w, h: h}
	close(img.done)
	return img
}

func failedImage() *fakeImage {
	img := &fakeImage{done: make(chan struct{}), err: errors.New("decode failed")}
	close(img.done)
	return img
}

// blockedImage completes when release is called.
func blockedImage(w, h int) (*fakeImage, func()) {
	img := &fakeImage{done: make(chan struct{}), w: w, h: h}
	var once sync.Once
	return img, func() { once.Do(func() { close(img.done) }) }
}

func (i *fakeImage) Done() <-chan struct{}    { return i.done }
func (i *fakeImage) Size() (int, int, error) { return i.w, i.h, i.err }

// manualScheduler runs callbacks only when the test advances its clock.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	next  Token
	tasks map[Token]manualTask
}

type manualTask struct {
	due time.Duration
	seq Token
	fn  func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[Token]manualTask)}
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.tasks[s.next] = manualTask{due: s.now + d, seq: s.next, fn: fn}
	return s.next
}

func (s *manualScheduler) Cancel(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, t)
}

func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Advance moves the clock forward by d and runs every callback that came
// due, in due order, on the calling goroutine.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []manualTask
	for tok, t := range s.tasks {
		if t.due <= s.now {
			due = append(due, t)
			delete(s.tasks, tok)
		}
	}
	s.mu.Unlock()
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
}

// recorder counts engine signals.
type recorder struct {
	mu       sync.Mutex
	scrolls  []ScrollEvent
	loadMore int
	finish   int
}

func (r *recorder) Scroll(ev ScrollEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls = append(r.scrolls, ev)
}

func (r *recorder) LoadMore() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadMore++
}

func (r *recorder) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish++
}

func (r *recorder) counts() (loadMore, finish int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadMore, r.finish
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestEngine(t *testing.T, s *fakeSurface, opts Options, extra ...Option) (*Engine, *manualScheduler, *recorder) {
	t.Helper()
	sched := newManualScheduler()
	rec := &recorder{}
	options := append([]Option{
		WithScheduler(sched),
		WithLogger(quietLogger()),
		WithListener(rec),
	}, extra...)
	e := New(s, opts, options...)
	t.Cleanup(e.Close)
	return e, sched, rec
}

// cardRenderer renders an item's "h" field as the card height.
func cardRenderer(it Item) *html.Node {
	card := html.NewElement("div")
	card.SetAttribute("data-h", fmt.Sprint(it["h"]))
	return card
}

func items(heights ...int) []Item {
	out := make([]Item, len(heights))
	for i, h := range heights {
		out[i] = Item{"id": i, "h": h}
	}
	return out
}

func placedCount(e *Engine) int {
	n := 0
	e.Do(func() {
		for _, col := range e.columns.Columns() {
			n += len(col.ElementChildren())
		}
	})
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
