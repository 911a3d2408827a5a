package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"waterfall/pkg/config"
	"waterfall/pkg/feed"
	"waterfall/pkg/html"
	"waterfall/pkg/logger"
	"waterfall/pkg/waterfall"
)

// kvFlags collects repeated -c key=value overrides.
type kvFlags []string

func (k *kvFlags) String() string     { return strings.Join(*k, ",") }
func (k *kvFlags) Set(v string) error { *k = append(*k, v); return nil }

func main() {
	var overrides kvFlags
	configPath := flag.String("config", "", "config file (default ~/.waterfall/config.toml)")
	flag.Var(&overrides, "c", "config override key=value (repeatable)")
	pagePath := flag.String("page", "", "HTML page with scripts to host the waterfall")
	dataPath := flag.String("data", "", "JSON array of items (default: generated)")
	baseURL := flag.String("base", "", "base URL for network image sources")
	count := flag.Int("n", 12, "number of generated items")
	batch := flag.Int("batch", 8, "items appended per load-more signal")
	pages := flag.Int("pages", 3, "maximum load-more pages")
	steps := flag.Int("scroll", 4, "scroll ticks to simulate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "generator seed")
	output := flag.String("o", "waterfall.png", "output PNG file path")
	saveData := flag.String("save-data", "", "write the final data source as JSON")
	logFile := flag.String("log-file", "", "write logs to this file instead of stderr")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: waterfall [flags]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = config.ApplyKVOverrides(cfg, overrides)

	if err := logger.Configure(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	if *logFile != "" {
		closer, resolved, err := logger.SetupFile(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer closer.Close()
		fmt.Fprintf(os.Stderr, "Logging to %s\n", resolved)
	}
	log := logger.Named("cli")

	source := blankPage
	if *pagePath != "" {
		b, err := os.ReadFile(*pagePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading page: %v\n", err)
			os.Exit(1)
		}
		source = string(b)
	}
	doc, err := html.Parse(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing HTML: %v\n", err)
		os.Exit(1)
	}

	s := newSession(cfg, doc, sessionOptions{baseURL: *baseURL, seed: *seed, batch: *batch, pages: *pages})
	defer s.close()

	var items []waterfall.Item
	if *dataPath != "" {
		if items, err = feed.LoadFile(*dataPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
			os.Exit(1)
		}
	} else {
		items = s.gen.List(*count)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := s.start(ctx, items); err != nil {
		fmt.Fprintf(os.Stderr, "Error laying out: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < *steps; i++ {
		if err := s.scroll(ctx, cfg.Viewport.Height); err != nil {
			fmt.Fprintf(os.Stderr, "Error scrolling: %v\n", err)
			os.Exit(1)
		}
	}
	log.WithFields(logger.Fields{
		"items":   len(s.engine.Data()),
		"cursor":  s.engine.Cursor(),
		"heights": s.engine.ColumnHeights(),
	}).Info("layout settled")

	if *saveData != "" {
		if err := feed.SaveFile(*saveData, s.engine.Data()); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving data: %v\n", err)
			os.Exit(1)
		}
	}
	if err := s.snapshot(*output); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving PNG: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Saved to %s\n", *output)
}
