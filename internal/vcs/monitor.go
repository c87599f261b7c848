package vcs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 50 * time.Millisecond

// Monitor watches a working tree and publishes a FileChangedEvent for every
// changed path. Paths the Vcs ignores are dropped, as are common build and
// dependency directories.
type Monitor struct {
	watcher  *fsnotify.Watcher
	vcs      Vcs
	bus      *event.Bus
	logger   *logging.Logger
	debounce time.Duration

	ignoreDirs []string

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMonitor starts watching the working directory of v and every
// directory below it.
func NewMonitor(v Vcs, bus *event.Bus, logger *logging.Logger) (*Monitor, error) {
	root := v.WorkingDirectory()
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, errors.NewNotFoundError("working directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	m := &Monitor{
		watcher:    watcher,
		vcs:        v,
		bus:        bus,
		logger:     logger.WithComponent("monitor"),
		debounce:   DefaultDebounce,
		ignoreDirs: []string{".git", "node_modules", ".flatpak-builder", "_build"},
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if err := watcher.Add(root); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", root)
	}
	m.watchDirRecursive(root)

	go m.watchLoop()
	return m, nil
}

func (m *Monitor) watchDirRecursive(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && m.ignored(path) {
			return filepath.SkipDir
		}
		_ = m.watcher.Add(path)
		return nil
	})
}

func (m *Monitor) ignored(path string) bool {
	if m.vcs.IsIgnored(path) {
		return true
	}
	sep := string(filepath.Separator)
	for _, dir := range m.ignoreDirs {
		if filepath.Base(path) == dir || strings.Contains(path, sep+dir+sep) {
			return true
		}
	}
	return false
}

// Close stops the monitor. It is safe to call more than once.
func (m *Monitor) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopCh)
		err = m.watcher.Close()
		<-m.doneCh
	})
	return err
}

func (m *Monitor) watchLoop() {
	defer close(m.doneCh)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case <-m.stopCh:
			timer.Stop()
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if m.ignored(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					m.watchDirRecursive(ev.Name)
				}
			}
			pending[ev.Name] |= ev.Op
			timer.Reset(m.debounce)

		case <-timer.C:
			for path, op := range pending {
				m.bus.Publish(event.NewFileChangedEvent(path, opName(op)))
			}
			pending = make(map[string]fsnotify.Op)

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("file watcher error", "error", err.Error())
		}
	}
}

// opName picks the most significant operation of a coalesced set.
func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	default:
		return "chmod"
	}
}
