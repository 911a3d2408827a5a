package js

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"waterfall/pkg/html"
	"waterfall/pkg/logger"
	"waterfall/pkg/waterfall"
)

// Event names accepted by waterfall.on.
const (
	EventScroll   = "scroll"
	EventLoadMore = "loadMore"
	EventFinish   = "finish"
)

// Engine executes page scripts against a document's DOM. Once attached to
// a waterfall engine it also exposes the global `waterfall` object and
// forwards engine signals to handlers registered with waterfall.on.
//
// The runtime is not goroutine safe; every entry into it holds mu.
// Handlers run on the goroutine that emitted the signal.
type Engine struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	dom      *domContext
	log      *logrus.Entry
	layout   *waterfall.Engine
	handlers map[string][]goja.Callable
}

type Option func(*Engine)

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// New creates a new JS engine with a fresh goja runtime.
func New(opts ...Option) *Engine {
	vm := goja.New()
	e := &Engine{
		vm:       vm,
		dom:      newDOMContext(vm),
		handlers: make(map[string][]goja.Callable),
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = logger.Named("script")
	}
	c := &consoleAPI{log: e.log}
	c.register(vm)
	return e
}

// Execute registers `document` for doc and runs its scripts in order.
// Any JS error is returned; callers may log it and continue.
func (e *Engine) Execute(doc *html.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dom.registerDocument(doc)
	for i, script := range doc.Scripts {
		if _, err := e.vm.RunString(script); err != nil {
			return fmt.Errorf("script %d: %w", i, err)
		}
	}
	return nil
}

// Run evaluates one script.
func (e *Engine) Run(src string) (goja.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.RunString(src)
}

// Attach binds the global `waterfall` object to w. Register e as a
// listener of w (waterfall.WithListener or AddListener) to deliver events.
func (e *Engine) Attach(w *waterfall.Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layout = w
	e.vm.Set("waterfall", e.bindWaterfall())
}

// bindWaterfall builds the script-facing engine object. Only calls that
// return without waiting on a layout batch are exposed, since handlers may
// run inside a batch's Finish signal.
func (e *Engine) bindWaterfall() *goja.Object {
	vm := e.vm
	w := e.layout
	obj := vm.NewObject()
	obj.Set("on", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(vm.NewTypeError("waterfall.on: handler is not a function"))
		}
		switch name {
		case EventScroll, EventLoadMore, EventFinish:
		default:
			panic(vm.NewTypeError("waterfall.on: unknown event " + name))
		}
		e.handlers[name] = append(e.handlers[name], fn)
		return goja.Undefined()
	})
	obj.Set("resize", func(call goja.FunctionCall) goja.Value {
		if arg := call.Argument(0); goja.IsUndefined(arg) || goja.IsNull(arg) {
			w.ResizeAsync(waterfall.FullRebuild())
		} else {
			w.ResizeAsync(waterfall.AppendFrom(int(arg.ToInteger())))
		}
		return goja.Undefined()
	})
	obj.Set("mix", func(goja.FunctionCall) goja.Value {
		w.Mix()
		return goja.Undefined()
	})
	obj.Set("setData", func(call goja.FunctionCall) goja.Value {
		w.SetData(e.items(call.Argument(0)))
		return goja.Undefined()
	})
	obj.Set("appendData", func(call goja.FunctionCall) goja.Value {
		w.AppendData(e.items(call.Argument(0))...)
		return goja.Undefined()
	})
	obj.Set("data", func(goja.FunctionCall) goja.Value {
		data := w.Data()
		out := make([]interface{}, len(data))
		for i, it := range data {
			out[i] = map[string]interface{}(it)
		}
		return vm.ToValue(out)
	})
	obj.Set("setColumnCount", func(call goja.FunctionCall) goja.Value {
		w.SetColumnCount(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	})
	obj.Set("cursor", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(w.Cursor())
	})
	return obj
}

// items converts a JS array of plain objects. Non-object entries are
// skipped.
func (e *Engine) items(v goja.Value) []waterfall.Item {
	raw, ok := v.Export().([]interface{})
	if !ok {
		panic(e.vm.NewTypeError("expected an array of items"))
	}
	out := make([]waterfall.Item, 0, len(raw))
	for _, x := range raw {
		if m, ok := x.(map[string]interface{}); ok {
			out = append(out, waterfall.Item(m))
		}
	}
	return out
}

func (e *Engine) dispatch(name string, arg func() goja.Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := e.handlers[name]
	if len(fns) == 0 {
		return
	}
	var args []goja.Value
	if arg != nil {
		args = []goja.Value{arg()}
	}
	for _, fn := range fns {
		if _, err := fn(goja.Undefined(), args...); err != nil {
			e.log.WithField("event", name).WithError(err).Warn("handler failed")
		}
	}
}

func (e *Engine) Scroll(ev waterfall.ScrollEvent) {
	e.dispatch(EventScroll, func() goja.Value {
		o := e.vm.NewObject()
		o.Set("scrollTop", ev.ScrollTop)
		o.Set("scrollHeight", ev.ScrollHeight)
		o.Set("clientHeight", ev.ClientHeight)
		o.Set("diff", ev.Diff)
		o.Set("time", ev.Time.UnixMilli())
		return o
	})
}

func (e *Engine) LoadMore() {
	e.dispatch(EventLoadMore, nil)
}

func (e *Engine) Finish() {
	e.dispatch(EventFinish, nil)
}
