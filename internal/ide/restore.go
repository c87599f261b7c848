package ide

import (
	"context"

	"github.com/Iron-Ham/idecore/internal/errors"
)

// RestoreFilesMax is the default number of unsaved files Restore replays.
const RestoreFilesMax = 20

// Restore replays the unsaved files found during bring-up into the buffer
// manager, one at a time. It may be called once; later calls return
// errors.ErrAlreadyRestored. When more files are pending than the restore
// limit allows, the drafts are discarded instead.
//
// A file that fails to load is logged and skipped. The context is held
// while files are replayed.
func (c *Context) Restore(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.unloading || c.state == StateUnloading || c.state == StateUnloaded:
		c.mu.Unlock()
		return errors.ErrContextUnloaded
	case c.state == StateFailed:
		c.mu.Unlock()
		return errors.ErrContextFailed
	case c.restored:
		c.mu.Unlock()
		return errors.ErrAlreadyRestored
	}
	// held from the state check on, so an unload requested from here waits
	c.restored = true
	c.restoring = true
	c.holds++
	files := c.unsaved
	c.mu.Unlock()
	c.metrics.holdChanged(1)

	hold := &Hold{c: c}
	defer hold.Release()
	defer c.setRestoring(false)

	if files == nil || !c.cfg.Restore.Enabled {
		return nil
	}
	snapshot := files.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	limit := c.cfg.Restore.MaxFiles
	if limit <= 0 {
		limit = RestoreFilesMax
	}
	if len(snapshot) > limit {
		c.logger.Warn("too many unsaved files to restore, discarding drafts", "count", len(snapshot), "limit", limit)
		files.Clear()
		return nil
	}

	restored := 0
	defer func() { c.metrics.restored(restored) }()
	for i := len(snapshot) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return errors.NewCanceledError("restore", err)
		}
		f := snapshot[i]
		if err := c.buffers.Load(ctx, f.URI, f.Content); err != nil {
			c.logger.Warn("failed to restore unsaved file", "uri", f.URI, "error", err.Error())
			continue
		}
		restored++
	}
	c.logger.Info("restored unsaved files", "restored", restored, "total", len(snapshot))
	return nil
}

// RestoreAsync runs Restore on a new goroutine and calls done exactly once
// with the result.
func (c *Context) RestoreAsync(ctx context.Context, done func(error)) {
	go func() {
		err := c.Restore(ctx)
		if done != nil {
			done(err)
		}
	}()
}

func (c *Context) setRestoring(v bool) {
	c.mu.Lock()
	c.restoring = v
	c.mu.Unlock()
}
