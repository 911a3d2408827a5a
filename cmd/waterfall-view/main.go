package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"waterfall/pkg/config"
	"waterfall/pkg/feed"
	"waterfall/pkg/html"
	"waterfall/pkg/images"
	"waterfall/pkg/logger"
	"waterfall/pkg/render"
	"waterfall/pkg/surface"
	"waterfall/pkg/waterfall"
)

// viewer shows the live layout in a window. The slider scrolls the page;
// each move is one scroll tick for the engine.
type viewer struct {
	cfg    config.Config
	page   *surface.Page
	engine *waterfall.Engine
	gen    *feed.Generator
	batch  int
	log    *logrus.Entry

	img    *canvas.Image
	slider *widget.Slider
	status *widget.Label
}

func main() {
	configPath := flag.String("config", "", "config file (default ~/.waterfall/config.toml)")
	dataPath := flag.String("data", "", "JSON array of items, reloaded when the file changes")
	count := flag.Int("n", 20, "number of generated items")
	batch := flag.Int("batch", 10, "items appended per load-more signal")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Configure(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}

	doc, _ := html.Parse(`<html><body></body></html>`)
	v := &viewer{
		cfg:   cfg,
		gen:   feed.NewGenerator(time.Now().UnixNano()),
		batch: *batch,
		log:   logger.Named("viewer"),
	}
	v.page = surface.New(doc,
		waterfall.Viewport{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		surface.WithDecoder(images.NewDecoder(nil, "")),
		surface.WithBoundedHeight(cfg.Layout.Height),
	)
	v.engine = waterfall.New(v.page, cfg.Layout,
		waterfall.WithCardRenderer(feed.RenderCard),
		waterfall.WithLogger(logger.Named("waterfall")),
		waterfall.WithListener(waterfall.ListenerFuncs{
			OnLoadMore: v.loadMore,
			OnFinish:   func() { fyne.Do(v.redraw) },
		}),
	)
	defer v.engine.Close()

	a := app.New()
	w := a.NewWindow("waterfall")
	w.Resize(fyne.NewSize(float32(cfg.Viewport.Width)+40, float32(cfg.Viewport.Height)+60))

	v.img = canvas.NewImageFromImage(render.NewRenderer(int(cfg.Viewport.Width), int(cfg.Viewport.Height)).Image())
	v.img.FillMode = canvas.ImageFillOriginal
	v.slider = widget.NewSlider(0, 1)
	v.slider.Orientation = widget.Vertical
	v.slider.Value = 1
	v.slider.OnChanged = v.scrolled
	v.status = widget.NewLabel("")

	mix := widget.NewButton("Mix", v.engine.Mix)
	more := widget.NewButton("More columns", func() { v.columns(1) })
	fewer := widget.NewButton("Fewer columns", func() { v.columns(-1) })
	toolbar := container.NewHBox(mix, more, fewer)
	w.SetContent(container.NewBorder(toolbar, v.status, nil, v.slider, v.img))

	items := v.gen.List(*count)
	if *dataPath != "" {
		if items, err = feed.LoadFile(*dataPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
			os.Exit(1)
		}
		stop, err := v.watch(*dataPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error watching data: %v\n", err)
			os.Exit(1)
		}
		defer stop()
	}
	v.engine.SetData(items)
	go v.engine.Mount()

	w.ShowAndRun()
}

func (v *viewer) loadMore() {
	if v.batch <= 0 {
		return
	}
	v.engine.AppendData(v.gen.List(v.batch)...)
}

func (v *viewer) columns(delta int) {
	n := v.engine.Options().ColumnCount + delta
	if n < 1 {
		return
	}
	v.engine.SetColumnCount(n)
}

// scrolled maps the vertical slider (max at the top) onto the scroll
// position and delivers the tick.
func (v *viewer) scrolled(value float64) {
	v.engine.Do(func() {
		_, height := v.page.Scroll(v.page.Bounded())
		v.page.ScrollTo((1 - value) * (height - v.clientHeight()))
	})
	v.engine.OnScroll()
	v.redraw()
}

func (v *viewer) clientHeight() float64 {
	if v.page.Bounded() {
		return v.cfg.Layout.Height
	}
	return v.cfg.Viewport.Height
}

// redraw repaints the viewport. It runs on the UI goroutine.
func (v *viewer) redraw() {
	r := render.NewRenderer(int(v.cfg.Viewport.Width), int(v.cfg.Viewport.Height))
	var top, height float64
	v.engine.Do(func() {
		r.Render(v.page)
		top, height = v.page.Scroll(v.page.Bounded())
	})
	v.img.Image = r.Image()
	v.img.Refresh()

	heights := v.engine.ColumnHeights()
	parts := make([]string, len(heights))
	for i, h := range heights {
		parts[i] = fmt.Sprintf("%.0f", h)
	}
	v.status.SetText(fmt.Sprintf("%d items, cursor %d, columns [%s], scroll %.0f/%.0f",
		len(v.engine.Data()), v.engine.Cursor(), strings.Join(parts, " "), top, height))
}

// watch reloads the data source whenever path is written. The engine
// coalesces bursts of writes into one reflow.
func (v *viewer) watch(path string) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				items, err := feed.LoadFile(path)
				if err != nil {
					v.log.WithError(err).Warn("data reload failed")
					continue
				}
				v.log.WithField("items", len(items)).Info("data reloaded")
				v.engine.SetData(items)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				v.log.WithError(err).Warn("watch error")
			}
		}
	}()
	return func() { w.Close() }, nil
}
