package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/platinummonkey/handoff/pkg/observability"
	"github.com/platinummonkey/handoff/pkg/sso"
)

// DefaultReloadDelay coalesces the burst of events an editor or a config map
// update produces into one reload
const DefaultReloadDelay = 250 * time.Millisecond

// ClientsWatcher reloads the clients file when its contents change.
//
// The parent directory is watched rather than the file, so atomic replacements
// (rename over, symlink swap) are seen too. A change that fails to parse, validate or
// apply is logged and the running clients are kept.
type ClientsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *observability.Logger
	onChange func([]sso.ClientConfig) error
	delay    time.Duration
	last     []byte

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewClientsWatcher starts watching path. The current contents are the baseline;
// onChange is only called for later changes.
func NewClientsWatcher(path string, logger *observability.Logger, onChange func([]sso.ClientConfig) error) (*ClientsWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve clients file: %w", err)
	}
	last, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &ClientsWatcher{
		path:     abs,
		watcher:  watcher,
		logger:   logger.WithField("clients_file", abs),
		onChange: onChange,
		delay:    DefaultReloadDelay,
		last:     last,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start processes file events in the background until Stop
func (w *ClientsWatcher) Start() {
	go w.run()
}

// Stop ends the event loop and releases the watcher
func (w *ClientsWatcher) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })

	var err error
	select {
	case <-w.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if cerr := w.watcher.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *ClientsWatcher) run() {
	defer close(w.done)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(w.delay)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Clients file watcher error")
		}
	}
}

// reload applies the file if its contents differ from the last applied version
func (w *ClientsWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("Clients file unreadable, keeping current clients")
		return
	}
	if bytes.Equal(data, w.last) {
		return
	}

	clients, err := ParseClients(data)
	if err == nil {
		err = ValidateClients(clients)
	}
	if err == nil {
		err = w.onChange(clients)
	}
	if err != nil {
		w.logger.WithError(err).Error("Rejected clients file change, keeping current clients")
		return
	}

	w.last = data
	w.logger.WithField("clients", len(clients)).Info("Reloaded clients file")
}
