package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseArgs(t *testing.T) {
	var out bytes.Buffer
	cfg, err := parseArgs([]string{"-props", "a, b,,c", "-debounce", "20ms", "-log-level", "debug", "conf.yaml"}, &out)
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if cfg.File != "conf.yaml" {
		t.Errorf("File = %q", cfg.File)
	}
	if strings.Join(cfg.Props, ",") != "a,b,c" {
		t.Errorf("Props = %v", cfg.Props)
	}
	if cfg.Debounce != 20*time.Millisecond {
		t.Errorf("Debounce = %s", cfg.Debounce)
	}
	if cfg.Level != slog.LevelDebug {
		t.Errorf("Level = %v", cfg.Level)
	}
}

func TestParseArgsDefaults(t *testing.T) {
	t.Setenv("PROPWATCH_LOG_LEVEL", "warn")
	cfg, err := parseArgs([]string{"conf.yaml"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if len(cfg.Props) != 0 || cfg.Debounce != 50*time.Millisecond || cfg.Level != slog.LevelWarn {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestParseArgsErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"a.yaml", "b.yaml"},
		{"-log-level", "loud", "a.yaml"},
		{"-debounce", "0s", "a.yaml"},
	}
	for _, args := range cases {
		if _, err := parseArgs(args, &bytes.Buffer{}); err == nil {
			t.Errorf("parseArgs(%v) succeeded; want error", args)
		}
	}
	if _, err := parseArgs([]string{"-h"}, &bytes.Buffer{}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseArgs(-h) error = %v; want flag.ErrHelp", err)
	}
}

func TestRunStopsOnContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(path, []byte("a: 1\nb: two\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := run(ctx, []string{path}, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "msg=watching") || !strings.Contains(out.String(), "properties=2") {
		t.Errorf("unexpected log output: %s", out.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	err := run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("run succeeded for a missing file")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLog(t *testing.T, out *syncBuffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), substr) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q in log:\n%s", substr, out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestRunWatchesRequestedPropertyAddedLater 测试-props指定的属性在文件中出现后开始监听
func TestRunWatchesRequestedPropertyAddedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(path, []byte("b: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-props", "a", "-debounce", "5ms", path}, out)
	}()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("run failed: %v", err)
		}
	}()

	waitForLog(t, out, "msg=watching")
	if err := os.WriteFile(path, []byte("a: 1\nb: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	waitForLog(t, out, "property added\" property=a")

	if err := os.WriteFile(path, []byte("a: 2\nb: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	waitForLog(t, out, "property changed\" property=a")
}
