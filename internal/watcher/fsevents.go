package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/enigma/internal/log"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	// Paths are directories (watched recursively) or single files.
	Paths []string
	// Extensions defaults to DefaultExtensions.
	Extensions []string
	Debounce   time.Duration
	// OnChange receives the sorted changed paths after each quiet period.
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher reruns a hook when watched input files change.
type Watcher struct {
	opts    Options
	matcher *Matcher
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new Watcher instance.
func New(opts Options) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if opts.OnChange == nil {
		return nil, errors.New("change hook cannot be nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}

	var files []string
	for _, p := range opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot watch %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
		}
	}

	return &Watcher{
		opts:    opts,
		matcher: NewMatcher(opts.Extensions, files),
		pending: make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start subscribes to filesystem events and processes them in the
// background until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	w.fsw = fsw

	for _, p := range w.opts.Paths {
		info, err := os.Stat(p)
		if err != nil {
			fsw.Close()
			return fmt.Errorf("cannot watch %s: %w", p, err)
		}
		if info.IsDir() {
			err = w.addTree(p)
		} else {
			// Editors replace files by rename, so watch the parent.
			err = fsw.Add(filepath.Dir(p))
		}
		if err != nil {
			fsw.Close()
			return err
		}
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		log.Debugf("watching %s", path)
		return nil
	})
}

// run collects events and fires the hook after each quiet period.
func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(ev) {
				resetTimer(timer, w.opts.Debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warningf("watcher: %v", err)
		case <-timer.C:
			w.fire(ctx)
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
}

// resetTimer restarts t for d, discarding a tick that fired but was not
// yet received.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// handle records ev and reports whether it is a relevant change.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				log.Warningf("watcher: %v", err)
			}
			return false
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	if !w.matcher.Match(ev.Name) {
		return false
	}

	log.Debugf("changed: %s (%s)", ev.Name, ev.Op)
	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	w.mu.Unlock()
	return true
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	log.Infof("%d input file(s) changed, rerunning", len(changed))
	if err := w.opts.OnChange(ctx, changed); err != nil {
		log.Errorf("watcher: rerun failed: %v", err)
	}
}

// Stop halts the watcher and waits for a running hook to return.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopCh:
		return nil
	default:
	}
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
