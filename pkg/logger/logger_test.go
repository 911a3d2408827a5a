package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name string
		data logrus.Fields
		want string
	}{
		{
			name: "with stage",
			data: logrus.Fields{
				"component": "waterfall",
				"stage":     "layout",
				"caller":    "x.go:1",
				"items":     5,
				"cursor":    0,
			},
			want: "x.go:1 [2025-01-02T03:04:05Z] [INFO] [waterfall] [stage=layout] batch started cursor=0 items=5\n",
		},
		{
			name: "bare",
			data: logrus.Fields{},
			want: "[2025-01-02T03:04:05Z] [INFO] batch started\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: "batch started",
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, string(out))
			}
		})
	}
}

func TestNamedUsesRoot(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(PlainFormatter{})
	SetRoot(l)
	defer SetRoot(nil)

	Named("surface").Info("mounted")
	if !strings.Contains(buf.String(), "[surface] mounted") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestConfigureLevel(t *testing.T) {
	l := logrus.New()
	SetRoot(l)
	defer SetRoot(nil)

	if err := Configure("debug"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", l.GetLevel())
	}
	if err := Configure("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetupFile(t *testing.T) {
	l := logrus.New()
	SetRoot(l)
	defer SetRoot(nil)

	path := filepath.Join(t.TempDir(), "logs", "w.log")
	closer, resolved, err := SetupFile(path)
	if err != nil {
		t.Fatalf("SetupFile: %v", err)
	}
	Root().Info("hello")
	closer.Close()

	data, err := os.ReadFile(resolved)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing entry: %q", data)
	}
}
