// Package watch re-validates markdown documents as they change on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long the watcher waits for writes to settle.
const DefaultDelay = 500 * time.Millisecond

// Handler receives the documents that changed in one debounced batch, sorted.
type Handler func(ctx context.Context, paths []string)

// Options configures a Watcher.
type Options struct {
	Delay time.Duration
	// Match selects the files to report. Defaults to markdown files.
	Match func(path string) bool
}

// Watcher reports changed documents under a set of roots. Directories are
// watched recursively; files are watched through their parent directory.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	match   func(string) bool
	files   map[string]bool // explicitly watched files; empty means any match
	hashes  *ContentHashTracker
	batch   *debouncer
}

// New watches roots and calls handler for each batch of changes.
func New(roots []string, handler Handler, opts Options) (*Watcher, error) {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Match == nil {
		opts.Match = isMarkdown
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fsw:     fsw,
		handler: handler,
		match:   opts.Match,
		files:   make(map[string]bool),
		hashes:  NewContentHashTracker(),
	}
	w.batch = newDebouncer(opts.Delay)

	dirsOnly := true
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
		if info.IsDir() {
			err = w.addRecursive(abs)
		} else {
			dirsOnly = false
			w.files[abs] = true
			w.hashes.HasChanged(abs)
			err = fsw.Add(filepath.Dir(abs))
		}
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}
	if dirsOnly {
		w.files = nil
	}
	return w, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()
	w.batch.onFlush = func(paths []string) { w.handler(ctx, paths) }
	defer w.batch.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.files == nil {
				_ = w.addRecursive(path)
			}
			return
		}
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.hashes.Remove(path)
		return
	case ev.Op&fsnotify.Write == 0:
		return
	}
	if !w.wants(path) {
		return
	}
	if !w.hashes.HasChanged(path) {
		slog.Debug("skip unchanged document", "path", path)
		return
	}
	w.batch.add(path)
}

func (w *Watcher) wants(path string) bool {
	if w.files != nil {
		return w.files[path]
	}
	return w.match(path)
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}
		_ = w.seed(path)
		return w.fsw.Add(path)
	})
}

// seed records the current hash of every matching file in dir so the first
// write after startup is compared against real content.
func (w *Watcher) seed(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if !e.IsDir() && w.match(p) {
			w.hashes.HasChanged(p)
		}
	}
	return nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// debouncer collects paths and flushes them once no new path arrived for
// delay.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	delay   time.Duration
	stopped bool
	onFlush func([]string)
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{pending: make(map[string]bool), delay: delay}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[path] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]bool)
	fn := d.onFlush
	d.mu.Unlock()

	slices.Sort(paths)
	if fn != nil {
		fn(paths)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// ContentHashTracker remembers file content hashes so saves that do not
// change a document are ignored.
type ContentHashTracker struct {
	mu     sync.Mutex
	hashes map[string]string
}

// NewContentHashTracker creates a new content hash tracker
func NewContentHashTracker() *ContentHashTracker {
	return &ContentHashTracker{hashes: make(map[string]string)}
}

// HasChanged reports whether path is new or its content differs from the
// last call. Unreadable files count as changed.
func (t *ContentHashTracker) HasChanged(path string) bool {
	hash, err := hashFile(path)
	if err != nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.hashes[path]
	t.hashes[path] = hash
	return !ok || old != hash
}

// Remove forgets path.
func (t *ContentHashTracker) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hashes, path)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
