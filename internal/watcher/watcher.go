// Package watcher waits for the arrival of a named file in a directory. It
// polls modification timestamps; only files that show up after the watch
// begins count as arrivals.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hostwatchhq/agent/internal/events"
	"github.com/hostwatchhq/agent/pkg/types"
)

const DefaultPoll = 500 * time.Millisecond

type Watcher struct {
	dir    string
	file   string
	poll   time.Duration
	copyTo string

	now    func() time.Time
	logger *log.Logger
	events events.Recorder
}

type Option func(*Watcher)

func WithPoll(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithCopyTo copies the arrived file to dst (creating parent directories,
// overwriting an existing file) before reporting it.
func WithCopyTo(dst string) Option {
	return func(w *Watcher) {
		w.copyTo = dst
	}
}

func WithNow(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithEvents(rec events.Recorder) Option {
	return func(w *Watcher) {
		if rec != nil {
			w.events = rec
		}
	}
}

func New(dir, file string, opts ...Option) (*Watcher, error) {
	if dir == "" || file == "" {
		return nil, fmt.Errorf("watcher requires both a directory and a filename")
	}
	if filepath.Base(file) != file {
		return nil, fmt.Errorf("watch filename %q must not contain path separators", file)
	}
	w := &Watcher{
		dir:    dir,
		file:   file,
		poll:   DefaultPoll,
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
		events: events.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Wait blocks until the watched file arrives or ctx is cancelled, and returns
// the path of the arrived file. A file already present when the watch starts
// is ignored until it is replaced with a fresh copy.
func (w *Watcher) Wait(ctx context.Context) (string, error) {
	start := w.now()
	target := filepath.Join(w.dir, w.file)
	w.logger.Printf("watching %q for new %q", w.dir, w.file)

	staleSeen := false
	check := func() (bool, error) {
		info, err := os.Stat(target)
		if err != nil {
			return false, nil
		}
		if !info.ModTime().After(start) {
			if !staleSeen {
				w.logger.Printf("found stale %q; waiting for a fresh copy", target)
				staleSeen = true
			}
			return false, nil
		}
		if w.copyTo != "" {
			if err := copyFile(target, w.copyTo); err != nil {
				return false, fmt.Errorf("copy %q to %q: %w", target, w.copyTo, err)
			}
		}
		return true, nil
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			arrived, err := check()
			if err != nil {
				return "", err
			}
			if !arrived {
				continue
			}
			now := w.now().UTC()
			w.logger.Printf("file arrived: %q", target)
			w.events.Record(types.Event{
				Type:      types.EventFileArrived,
				Timestamp: now,
				Details:   map[string]any{"path": target},
			})
			return target, nil
		}
	}
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
