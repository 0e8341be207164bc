// Package watcher monitors a config path for changes with debouncing. A
// file config is watched through its parent directory so editor
// replace-on-save sequences are still observed; a directory config is
// watched recursively.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keyforge/keyforge/internal/logging"
)

// EventType represents the type of file change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventRemoved
	EventRenamed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one observed change on the watched config path.
type Event struct {
	Type EventType
	Path string
	At   time.Time
}

// Handler receives a debounced batch of events. Handlers run one batch at
// a time on a single goroutine, so regenerations triggered from a handler
// are serialized.
type Handler func(events []Event)

// ConfigWatcher watches one config path and delivers debounced change
// batches to its handlers.
type ConfigWatcher struct {
	fs         *fsnotify.Watcher
	debouncer  *debouncer
	configPath string
	isDir      bool
	handlers   []Handler
	log        logging.Logger
	mutex      sync.RWMutex
}

// New creates a watcher for configPath with the given debounce window.
func New(configPath string, debounce time.Duration, log logging.Logger) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ConfigWatcher{
		fs:         fs,
		configPath: abs,
		isDir:      info.IsDir(),
		log:        log.WithComponent("watcher"),
		debouncer: &debouncer{
			delay:  debounce,
			events: make(chan Event, 100),
			output: make(chan []Event, 10),
		},
	}

	if w.isDir {
		err = w.addRecursive(abs)
	} else {
		// Watch the parent: editors replace files via rename+create,
		// which a watch on the file itself loses track of.
		err = fs.Add(filepath.Dir(abs))
	}
	if err != nil {
		fs.Close()

		return nil, err
	}

	return w, nil
}

// AddHandler adds a change handler.
func (w *ConfigWatcher) AddHandler(handler Handler) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start starts the watch goroutines. They exit when ctx is cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	go w.debouncer.start(ctx)
	go w.processEvents(ctx)
	go w.watchLoop(ctx)
}

// Stop stops the watcher and releases its resources.
func (w *ConfigWatcher) Stop() error {
	w.debouncer.stop()

	return w.fs.Close()
}

func (w *ConfigWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}

		return nil
	})
}

func (w *ConfigWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, err, "watch error")
		}
	}
}

func (w *ConfigWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if !w.relevant(event.Name) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreated
		// New subdirectories of a directory config need their own watch.
		if w.isDir {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.fs.Add(event.Name); err != nil {
					w.log.Warn(ctx, err, "failed to watch new directory", "path", event.Name)
				}
			}
		}
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventRemoved
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventRenamed
	default:
		// Chmod and friends carry no content change.
		return
	}

	w.debouncer.add(Event{Type: eventType, Path: event.Name, At: time.Now()})
}

// relevant filters events down to the watched path. For a file config only
// events on the file itself count; for a directory config everything under
// the root counts.
func (w *ConfigWatcher) relevant(path string) bool {
	if w.isDir {
		return true
	}

	return filepath.Clean(path) == w.configPath
}

func (w *ConfigWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-w.debouncer.output:
			w.mutex.RLock()
			handlers := w.handlers
			w.mutex.RUnlock()

			for _, handler := range handlers {
				handler(events)
			}
		}
	}
}

// debouncer groups rapid file changes together.
type debouncer struct {
	delay   time.Duration
	events  chan Event
	output  chan []Event
	timer   *time.Timer
	pending []Event
	mutex   sync.Mutex
}

func (d *debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addPending(event)
		}
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *debouncer) add(event Event) {
	select {
	case d.events <- event:
	default:
		// Channel full, drop the event. The batch already in flight
		// triggers a regeneration that picks up this change too.
	}
}

func (d *debouncer) addPending(event Event) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate by path, keeping the latest event for each.
	latest := make(map[string]Event, len(d.pending))
	for _, event := range d.pending {
		latest[event.Path] = event
	}

	events := make([]Event, 0, len(latest))
	for _, event := range latest {
		events = append(events, event)
	}

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}
