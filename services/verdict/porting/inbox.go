// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package porting

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInboxDebounce is how long the inbox waits after the last write
// event before importing a file, so partially-copied exports settle first.
const DefaultInboxDebounce = 500 * time.Millisecond

// ErrInboxClosed indicates Start was called on a stopped inbox.
var ErrInboxClosed = errors.New("inbox already stopped")

// Importer is the slice of Porter the inbox needs. The Core façade
// satisfies it too, which is what the gateway wires in so inbox imports go
// through the same serialization point as every other mutation.
type Importer interface {
	Import(ctx context.Context, payload []byte, mode Mode) (ImportResult, error)
}

// Inbox watches a directory and merge-imports export files dropped into
// it. Processed files are renamed in place: <name>.imported on success,
// <name>.rejected on failure, so a file is only ever imported once.
//
// Thread Safety: Start may be called once; Stop is idempotent.
type Inbox struct {
	dir      string
	importer Importer
	debounce time.Duration
	log      *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// InboxConfig assembles an Inbox.
type InboxConfig struct {
	// Dir is the watched directory. Created when absent.
	Dir string

	// Debounce is the settle window after the last event for a file.
	// 0 selects DefaultInboxDebounce.
	Debounce time.Duration

	Logger *slog.Logger
}

// NewInbox builds an inbox over an importer.
func NewInbox(importer Importer, cfg InboxConfig) (*Inbox, error) {
	if importer == nil {
		return nil, errors.New("inbox requires an importer")
	}
	if cfg.Dir == "" {
		return nil, errors.New("inbox requires a directory")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultInboxDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Inbox{
		dir:      cfg.Dir,
		importer: importer,
		debounce: cfg.Debounce,
		log:      cfg.Logger.With(slog.String("component", "inbox"), slog.String("dir", cfg.Dir)),
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Files already present in the directory are
// processed first, then create/write events are debounced per path and
// imported as they settle. Watching stops when ctx is canceled or Stop is
// called.
func (in *Inbox) Start(ctx context.Context) error {
	select {
	case <-in.done:
		return ErrInboxClosed
	default:
	}
	if err := in.watcher.Add(in.dir); err != nil {
		return err
	}

	in.sweep(ctx)

	in.wg.Add(1)
	go in.loop(ctx)
	in.log.Info("inbox watching for export files")
	return nil
}

// Stop ends watching and waits for in-flight imports. Idempotent.
func (in *Inbox) Stop() {
	in.stopOnce.Do(func() {
		close(in.done)
		in.watcher.Close()
	})
	in.wg.Wait()
}

// sweep imports files that were waiting before the watcher started.
func (in *Inbox) sweep(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.log.Warn("inbox sweep failed", slog.Any("error", err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() && eligible(e.Name()) {
			in.process(ctx, filepath.Join(in.dir, e.Name()))
		}
	}
}

// loop debounces watcher events per path and imports files as they settle.
func (in *Inbox) loop(ctx context.Context) {
	defer in.wg.Done()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(in.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-in.done:
			return

		case ev, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if eligible(filepath.Base(ev.Name)) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.log.Warn("inbox watcher error", slog.Any("error", err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) >= in.debounce {
					delete(pending, path)
					in.process(ctx, path)
				}
			}
		}
	}
}

// process imports one file and renames it by outcome.
func (in *Inbox) process(ctx context.Context, path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		// The file may have been renamed or removed since the event.
		in.log.Debug("inbox file unreadable", slog.String("path", path), slog.Any("error", err))
		return
	}

	result, err := in.importer.Import(ctx, payload, ModeMerge)
	suffix := ".imported"
	if err != nil {
		suffix = ".rejected"
		in.log.Warn("inbox import rejected",
			slog.String("path", path),
			slog.Any("error", err))
	} else {
		in.log.Info("inbox import completed",
			slog.String("path", path),
			slog.Int("imported", result.Imported),
			slog.Int("skipped", result.Skipped))
	}
	if err := os.Rename(path, path+suffix); err != nil {
		in.log.Warn("inbox rename failed", slog.String("path", path), slog.Any("error", err))
	}
}

// eligible reports whether a filename looks like a droppable export.
func eligible(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
