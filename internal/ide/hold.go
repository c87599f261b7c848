package ide

import (
	"context"
	"runtime"
	"sync"
)

// Hold is one hold on a Context. Releasing it more than once has no
// further effect.
type Hold struct {
	c    *Context
	once sync.Once
}

// Release drops the hold. If it was the last one and an unload is pending,
// the unload runs before Release returns.
func (h *Hold) Release() {
	h.once.Do(h.c.Release)
}

// Hold prevents the context from unloading until the hold is released. An
// Unload requested in the meantime waits for the hold count to reach zero.
func (c *Context) Hold() *Hold {
	c.mu.Lock()
	c.holds++
	c.mu.Unlock()
	c.metrics.holdChanged(1)
	return &Hold{c: c}
}

// HoldFor holds c for the lifetime of obj. The hold is dropped by the
// returned guard or, failing that, once obj is garbage collected. A release
// caused by collection runs on its own goroutine, so a pending unload it
// triggers never occupies the runtime's cleanup goroutine.
func HoldFor[T any](c *Context, obj *T) *Hold {
	h := c.Hold()
	runtime.AddCleanup(obj, func(h *Hold) { go h.Release() }, h)
	return h
}

// Release drops one hold taken with Hold. Releasing more holds than were
// taken panics. When the count reaches zero with an unload pending, the
// unload runs on the calling goroutine.
func (c *Context) Release() {
	c.mu.Lock()
	if c.holds <= 0 {
		c.mu.Unlock()
		panic("ide: Release called without a matching Hold")
	}
	c.holds--
	var req *unloadRequest
	if c.holds == 0 && c.pending != nil {
		req = c.pending
		c.pending = nil
	}
	c.mu.Unlock()
	c.metrics.holdChanged(-1)

	if req != nil {
		if req.ctx.Err() != nil {
			// the requester stopped waiting; the unload itself still has to persist state
			req.ctx = context.WithoutCancel(req.ctx)
		}
		c.runUnload(req)
	}
}

// HoldCount returns the number of outstanding holds.
func (c *Context) HoldCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holds
}
