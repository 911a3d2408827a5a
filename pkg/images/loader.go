package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptySource is reported for an element without an active source.
	ErrEmptySource = errors.New("images: empty source")
	// ErrNoFetcher is reported for network sources when no fetcher is set.
	ErrNoFetcher = errors.New("images: no fetcher for network source")
)

// ImageFetcher retrieves the raw bytes of a network image.
type ImageFetcher func(uri string) ([]byte, error)

// Pending is the outcome of one Decode call. Done is closed once the
// image has decoded or failed; Size is valid after that.
type Pending struct {
	done          chan struct{}
	width, height int
	err           error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) settle(img image.Image, err error) {
	if err == nil {
		b := img.Bounds()
		p.width, p.height = b.Dx(), b.Dy()
	}
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Size returns the natural dimensions, or the decode error.
func (p *Pending) Size() (width, height int, err error) {
	<-p.done
	return p.width, p.height, p.err
}

// Complete reports whether the result is already available (cache hit).
func (p *Pending) Complete() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Decoder loads and decodes images, caching both successes and failures
// by source string. Failed sources are not retried.
type Decoder struct {
	fetcher ImageFetcher
	baseDir string

	mu       sync.Mutex
	cache    map[string]image.Image
	failed   map[string]error
	inflight map[string]*Pending
}

// NewDecoder creates a decoder. Relative file paths resolve against
// baseDir; http(s) sources go through fetcher.
func NewDecoder(fetcher ImageFetcher, baseDir string) *Decoder {
	return &Decoder{
		fetcher:  fetcher,
		baseDir:  baseDir,
		cache:    make(map[string]image.Image),
		failed:   make(map[string]error),
		inflight: make(map[string]*Pending),
	}
}

// Decode starts loading src in the background. A cached source returns an
// already settled Pending; concurrent calls for the same source share one
// load.
func (d *Decoder) Decode(src string) *Pending {
	src = strings.TrimSpace(src)
	d.mu.Lock()
	if img, ok := d.cache[src]; ok {
		d.mu.Unlock()
		p := newPending()
		p.settle(img, nil)
		return p
	}
	if err, ok := d.failed[src]; ok {
		d.mu.Unlock()
		p := newPending()
		p.settle(nil, err)
		return p
	}
	if p, ok := d.inflight[src]; ok {
		d.mu.Unlock()
		return p
	}
	p := newPending()
	if src == "" {
		d.mu.Unlock()
		p.settle(nil, ErrEmptySource)
		return p
	}
	d.inflight[src] = p
	d.mu.Unlock()

	go func() {
		img, err := d.load(src)
		d.mu.Lock()
		delete(d.inflight, src)
		if err != nil {
			d.failed[src] = err
		} else {
			d.cache[src] = img
		}
		d.mu.Unlock()
		p.settle(img, err)
	}()
	return p
}

// Load decodes src synchronously, going through the cache.
func (d *Decoder) Load(src string) (image.Image, error) {
	p := d.Decode(src)
	<-p.Done()
	if p.err != nil {
		return nil, p.err
	}
	img, _ := d.Image(src)
	return img, nil
}

// Image returns a decoded image if it is already in the cache.
func (d *Decoder) Image(src string) (image.Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.cache[strings.TrimSpace(src)]
	return img, ok
}

func (d *Decoder) load(src string) (image.Image, error) {
	data, err := d.read(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", shorten(src), err)
	}
	return img, nil
}

func (d *Decoder) read(src string) ([]byte, error) {
	switch {
	case IsDataURI(src):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		if d.fetcher == nil {
			return nil, ErrNoFetcher
		}
		return d.fetcher(src)
	}
	path := strings.TrimPrefix(src, "file://")
	if !filepath.IsAbs(path) && d.baseDir != "" {
		path = filepath.Join(d.baseDir, path)
	}
	return os.ReadFile(path)
}

// IsDataURI reports whether s is a data: URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI base64: %w", err)
		}
		return data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI escape: %w", err)
	}
	return []byte(unescaped), nil
}

func shorten(src string) string {
	if len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}
