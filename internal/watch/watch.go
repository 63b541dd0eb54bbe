// Package watch reloads a document when its file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-slidesync/internal/pages"
	"github.com/alnah/go-slidesync/internal/pipeline"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 50 * time.Millisecond

// Updater receives the new text of the watched file.
type Updater interface {
	Update(ctx context.Context, text string) (pages.Change, error)
}

// Watcher watches one file through its directory, so editors that save by
// renaming a temporary file over it are seen too.
type Watcher struct {
	path     string
	doc      Updater
	fs       *fsnotify.Watcher
	log      logrus.FieldLogger
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New starts watching the directory of path.
func New(path string, doc Updater, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		doc:      doc,
		fs:       fsw,
		log:      pipeline.DiscardLogger(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("file", abs)
	return w, nil
}

// Load reads the file and hands its text to the document.
func (w *Watcher) Load(ctx context.Context) error {
	data, err := os.ReadFile(w.path) // #nosec G304 -- the document the user opened
	if err != nil {
		return err
	}
	change, err := w.doc.Update(ctx, string(data))
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		"invalidate": change.Invalidate,
		"changed":    len(change.Pages),
	}).Debug("file reloaded")
	return nil
}

// Run reloads the file after each quiet period following a change, until
// ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		case <-fire:
			fire = nil
			if err := w.Load(ctx); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					w.log.Debug("file gone, waiting for it to return")
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				w.log.WithError(err).Warn("reloading file")
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
