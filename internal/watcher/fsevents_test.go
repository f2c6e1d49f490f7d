package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) hook(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("change hook was not called")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	w, err := New(Options{
		Paths:    []string{dir},
		OnChange: newRecorder().hook,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.opts.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", w.opts.Debounce, DefaultDebounce)
	}
	if len(w.opts.Extensions) != len(DefaultExtensions) {
		t.Errorf("Extensions = %v, want defaults", w.opts.Extensions)
	}
}

func TestNew_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := New(Options{OnChange: newRecorder().hook}); err == nil {
		t.Error("New() with no paths: expected error")
	}
	if _, err := New(Options{Paths: []string{dir}}); err == nil {
		t.Error("New() with nil hook: expected error")
	}
	if _, err := New(Options{Paths: []string{filepath.Join(dir, "missing")}, OnChange: newRecorder().hook}); err == nil {
		t.Error("New() with missing path: expected error")
	}
}

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()

	w, err := New(Options{
		Paths:    []string{dir},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.hook,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "effects.csv")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("d_icv\n0.1\n"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	changed := rec.wait(t)
	if len(changed) != 1 || changed[0] != path {
		t.Errorf("changed = %v, want [%s]", changed, path)
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()

	w, err := New(Options{
		Paths:    []string{dir},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.hook,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "matrices")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "strucMatrix_ctx_aparc.csv")
	if err := os.WriteFile(path, []byte("0,1\n1,0\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	changed := rec.wait(t)
	if len(changed) != 1 || changed[0] != path {
		t.Errorf("changed = %v, want [%s]", changed, path)
	}
}

func TestResetTimer_DiscardsStaleTick(t *testing.T) {
	timer := time.NewTimer(time.Millisecond)
	time.Sleep(20 * time.Millisecond) // fired, tick unreceived

	resetTimer(timer, 300*time.Millisecond)
	select {
	case <-timer.C:
		t.Fatal("stale tick delivered before the debounce period")
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset")
	}
}

func TestStartStop(t *testing.T) {
	w, err := New(Options{
		Paths:    []string{t.TempDir()},
		OnChange: newRecorder().hook,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	// A second Stop is a no-op.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStop_BeforeStart(t *testing.T) {
	w, err := New(Options{
		Paths:    []string{t.TempDir()},
		OnChange: newRecorder().hook,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v, want nil", err)
	}
}
