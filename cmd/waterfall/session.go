package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"waterfall/pkg/config"
	"waterfall/pkg/feed"
	"waterfall/pkg/html"
	"waterfall/pkg/images"
	"waterfall/pkg/js"
	"waterfall/pkg/logger"
	"waterfall/pkg/render"
	"waterfall/pkg/resource"
	"waterfall/pkg/surface"
	"waterfall/pkg/waterfall"
)

const blankPage = `<html><body></body></html>`

// session is one headless run: a page, its scripts and the layout engine,
// with the generator answering load-more signals.
type session struct {
	cfg    config.Config
	page   *surface.Page
	script *js.Engine
	engine *waterfall.Engine
	log    *logrus.Entry

	gen    *feed.Generator
	batch  int
	pages  int
	loaded int
}

type sessionOptions struct {
	baseURL string
	seed    int64
	batch   int
	pages   int
}

func newSession(cfg config.Config, doc *html.Document, so sessionOptions) *session {
	log := logger.Named("cli")
	var fetch images.ImageFetcher
	if so.baseURL != "" {
		fetch = resource.ImageFetcher(resource.NewFetcher(so.baseURL))
	}
	page := surface.New(doc,
		waterfall.Viewport{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		surface.WithDecoder(images.NewDecoder(fetch, "")),
		surface.WithBoundedHeight(cfg.Layout.Height),
	)
	s := &session{
		cfg:    cfg,
		page:   page,
		script: js.New(js.WithLogger(logger.Named("script"))),
		log:    log,
		gen:    feed.NewGenerator(so.seed),
		batch:  so.batch,
		pages:  so.pages,
	}
	s.engine = waterfall.New(page, cfg.Layout,
		waterfall.WithCardRenderer(feed.RenderCard),
		waterfall.WithLogger(logger.Named("waterfall")),
		waterfall.WithListener(s.script),
		waterfall.WithListener(waterfall.ListenerFuncs{OnLoadMore: s.loadMore}),
	)
	s.script.Attach(s.engine)
	if err := s.script.Execute(doc); err != nil {
		log.WithError(err).Warn("page script failed")
	}
	return s
}

func (s *session) loadMore() {
	if s.loaded >= s.pages {
		return
	}
	s.loaded++
	s.log.WithFields(logrus.Fields{"page": s.loaded, "items": s.batch}).Info("loading more")
	s.engine.AppendData(s.gen.List(s.batch)...)
}

// start replaces the data source and lays out every card.
func (s *session) start(ctx context.Context, items []waterfall.Item) error {
	s.engine.SetData(items)
	s.engine.Mount()
	return s.settle(ctx)
}

// scroll moves the page by delta, delivers the scroll tick and waits for
// any layout it caused.
func (s *session) scroll(ctx context.Context, delta float64) error {
	s.engine.Do(func() { s.page.ScrollBy(delta) })
	s.engine.OnScroll()
	return s.settle(ctx)
}

// settle waits until every data item has a placed card and no batch is
// queued.
func (s *session) settle(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := s.engine.Wait(ctx); err != nil {
			return err
		}
		if s.engine.Cursor() >= len(s.engine.Data()) && !s.engine.Resizing() {
			s.engine.LazyScan()
			return nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// snapshot paints the current viewport into a PNG file.
func (s *session) snapshot(path string) error {
	r := render.NewRenderer(int(s.cfg.Viewport.Width), int(s.cfg.Viewport.Height))
	s.engine.Do(func() { r.Render(s.page) })
	return r.SavePNG(path)
}

func (s *session) close() {
	s.engine.Close()
}
