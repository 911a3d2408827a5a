package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func dataURI(t *testing.T, w, h int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, w, h))
}

func waitSettled(t *testing.T, p *Pending) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("decode did not settle")
	}
}

func TestIsDataURI(t *testing.T) {
	if !IsDataURI("data:image/png;base64,abc") {
		t.Error("expected true for data URI")
	}
	if IsDataURI("/path/to/file.png") || IsDataURI("") {
		t.Error("expected false for non data URI")
	}
}

func TestDecodeDataURI(t *testing.T) {
	d := NewDecoder(nil, "")
	p := d.Decode(dataURI(t, 4, 3))
	waitSettled(t, p)
	w, h, err := p.Size()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 4 || h != 3 {
		t.Errorf("expected 4x3, got %dx%d", w, h)
	}
}

func TestDecodeCacheHitIsComplete(t *testing.T) {
	d := NewDecoder(nil, "")
	uri := dataURI(t, 2, 2)
	if _, err := d.Load(uri); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := d.Decode(uri)
	if !p.Complete() {
		t.Error("second decode of a cached source should be complete immediately")
	}
	if _, ok := d.Image(uri); !ok {
		t.Error("expected image in cache")
	}
}

func TestDecodeEmptySource(t *testing.T) {
	p := NewDecoder(nil, "").Decode("  ")
	if !p.Complete() {
		t.Fatal("empty source should settle immediately")
	}
	if _, _, err := p.Size(); !errors.Is(err, ErrEmptySource) {
		t.Errorf("expected ErrEmptySource, got %v", err)
	}
}

func TestDecodeInvalidSources(t *testing.T) {
	d := NewDecoder(nil, "")
	for _, src := range []string{
		"data:image/png;base64",
		"data:image/png;base64,!!!invalid-base64!!!",
		"data:image/png;base64,aGVsbG8=",
		"https://example.com/a.png",
		"does-not-exist.png",
	} {
		p := d.Decode(src)
		waitSettled(t, p)
		if _, _, err := p.Size(); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestDecodeFailureIsNotRetried(t *testing.T) {
	var calls int32
	d := NewDecoder(func(uri string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}, "")
	waitSettled(t, d.Decode("https://example.com/x.png"))
	p := d.Decode("https://example.com/x.png")
	if !p.Complete() {
		t.Error("failed source should settle immediately on the second call")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestDecodeFetcherAndFile(t *testing.T) {
	body := encodePNG(t, 6, 2)
	d := NewDecoder(func(uri string) ([]byte, error) { return body, nil }, "")
	p := d.Decode("https://example.com/wide.png")
	waitSettled(t, p)
	if w, h, err := p.Size(); err != nil || w != 6 || h != 2 {
		t.Errorf("fetched decode = %dx%d, %v", w, h, err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tall.png"), encodePNG(t, 1, 5), 0o644); err != nil {
		t.Fatal(err)
	}
	fd := NewDecoder(nil, dir)
	p = fd.Decode("tall.png")
	waitSettled(t, p)
	if w, h, err := p.Size(); err != nil || w != 1 || h != 5 {
		t.Errorf("file decode = %dx%d, %v", w, h, err)
	}
}
