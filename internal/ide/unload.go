package ide

import (
	"context"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/navigation"
	"github.com/Iron-Ham/idecore/internal/sequencer"
	"github.com/Iron-Ham/idecore/internal/worker"
)

// Shutdown step names, in execution order.
const (
	StepSaveConfiguration = "save-configuration"
	StepSaveHistory       = "save-history"
	StepSaveBuffers       = "save-buffers"
	StepSaveUnsavedFiles  = "save-unsaved-files"
	StepStopServices      = "stop-services"
)

type unloadRequest struct {
	ctx  context.Context
	done func(error)
}

// Unload persists the context state and moves it to StateUnloaded. It
// blocks until every hold is released, so a caller holding the context
// must use UnloadAsync. If ctx ends first, Unload returns a cancellation
// error and the unload still happens once the holds are gone.
func (c *Context) Unload(ctx context.Context) error {
	done := make(chan error, 1)
	c.UnloadAsync(ctx, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.NewCanceledError("unload", ctx.Err())
	}
}

// UnloadAsync requests an unload and returns immediately. done is called
// exactly once, on another goroutine, when the unload finished or was
// refused. Only one request may be outstanding: a second one fails with
// errors.ErrPending.
//
// Shutdown steps never abort each other. A step that fails is logged as a
// warning and the next step runs.
func (c *Context) UnloadAsync(ctx context.Context, done func(error)) {
	if done == nil {
		done = func(error) {}
	}

	c.mu.Lock()
	c.unloading = true
	var refused error
	switch {
	case c.pending != nil || c.state == StateUnloading:
		refused = errors.Wrap(errors.ErrPending, "an unload request is already pending")
	case c.state == StateUnloaded:
		refused = errors.ErrContextUnloaded
	case c.state == StateFailed:
		refused = errors.ErrContextFailed
	}
	if refused != nil {
		c.mu.Unlock()
		go done(refused)
		return
	}

	req := &unloadRequest{ctx: ctx, done: done}
	if c.holds > 0 {
		c.pending = req
		holds := c.holds
		c.mu.Unlock()
		c.logger.Debug("unload delayed until holds are released", "holds", holds)
		return
	}
	c.mu.Unlock()

	go c.runUnload(req)
}

func shutdownSteps() []sequencer.Step[*Context] {
	return []sequencer.Step[*Context]{
		step(StepSaveConfiguration, (*Context).saveConfiguration),
		step(StepSaveHistory, (*Context).saveHistory),
		step(StepSaveBuffers, (*Context).saveBuffers),
		step(StepSaveUnsavedFiles, (*Context).saveUnsavedFiles),
		step(StepStopServices, (*Context).stopServices),
	}
}

func (c *Context) runUnload(req *unloadRequest) {
	c.mu.Lock()
	from := c.state
	if from == StateUnloading || from == StateUnloaded {
		c.mu.Unlock()
		req.done(errors.Wrap(errors.ErrPending, "an unload is already running"))
		return
	}
	c.state = StateUnloading
	c.mu.Unlock()

	c.stateChanged(from, StateUnloading)
	c.logger.Info("unloading context")
	c.warnings.Store(0)

	seq := sequencer.New(c, shutdownSteps(),
		sequencer.WithName("shutdown"),
		sequencer.WithLogger(c.logger),
		sequencer.WithObserver(c.metrics),
		sequencer.WithTracer(c.tracer),
	)
	err := seq.Run(req.ctx)
	if err != nil {
		c.logger.Warn("shutdown interrupted", "completed_steps", seq.Completed(), "error", err.Error())
	}

	c.mu.Lock()
	m := c.monitor
	c.monitor = nil
	c.mu.Unlock()
	if m != nil {
		if cerr := m.Close(); cerr != nil {
			c.warn("close file monitor", cerr)
		}
	}
	if c.ownsPool {
		c.pool.Release()
	}

	warnings := int(c.warnings.Load())
	c.setState(StateUnloaded)
	c.metrics.unloaded()
	c.logger.Info("context unloaded", "warnings", warnings)
	c.bus.Publish(event.NewContextUnloadedEvent(c.id, warnings))
	req.done(err)
}

func (c *Context) warn(what string, err error) {
	c.warnings.Add(1)
	c.logger.Warn("failed to "+what, "error", err.Error())
}

func (c *Context) saveConfiguration(ctx context.Context) error {
	mgr := c.ConfigurationManager()
	if mgr == nil {
		return nil
	}
	if err := mgr.Save(ctx); err != nil {
		c.warn("save build configurations", err)
	}
	return nil
}

func (c *Context) saveHistory(ctx context.Context) error {
	err := c.history.Save(ctx, c.historyPath(),
		navigation.WithMaxPerTarget(c.cfg.History.MaxPerTarget),
	)
	if err != nil {
		c.warn("save navigation history", err)
	}
	return nil
}

// saveBuffers saves every modified buffer concurrently and waits for all
// of them.
func (c *Context) saveBuffers(ctx context.Context) error {
	type pending struct {
		buf  Buffer
		done <-chan error
	}

	var saves []pending
	skipped := 0
	for _, buf := range c.buffers.Buffers() {
		if !buf.Modified() {
			skipped++
			continue
		}
		done := worker.Go(ctx, c.pool, func(ctx context.Context) error {
			return c.buffers.Save(ctx, buf)
		})
		saves = append(saves, pending{buf: buf, done: done})
	}

	failed := 0
	for _, s := range saves {
		if err := <-s.done; err != nil {
			failed++
			c.warn("save buffer "+s.buf.URI(), err)
			c.metrics.bufferSaveFailed()
			c.bus.Publish(event.NewBufferSaveFailedEvent(c.id, s.buf.URI(), err))
		}
	}
	c.logger.Debug("saved buffers", "saved", len(saves)-failed, "failed", failed, "unmodified", skipped)
	return nil
}

func (c *Context) saveUnsavedFiles(ctx context.Context) error {
	files := c.UnsavedFiles()
	if files == nil {
		return nil
	}
	_, err := worker.Run(ctx, c.pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, files.Save(ctx)
	})
	if err != nil {
		c.warn("save unsaved files", err)
	}
	return nil
}

func (c *Context) stopServices(ctx context.Context) error {
	if err := c.services.StopAll(ctx); err != nil {
		c.warn("stop services", err)
	}
	return nil
}
