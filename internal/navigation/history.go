package navigation

import (
	"sync"

	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// DefaultMaxItems bounds the backward stack.
const DefaultMaxItems = 100

// Direction of a navigation step.
type Direction string

const (
	Backward Direction = "backward"
	Forward  Direction = "forward"
)

// Option configures a History.
type Option func(*History)

// WithMaxItems bounds the backward stack. Values below 1 are ignored.
func WithMaxItems(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxItems = n
		}
	}
}

// WithChainer replaces the chaining policy.
func WithChainer(c Chainer) Option {
	return func(h *History) {
		if c != nil {
			h.chainer = c
		}
	}
}

// WithLogger sets the logger used for navigation warnings.
func WithLogger(l *logging.Logger) Option {
	return func(h *History) {
		if l != nil {
			h.logger = l.WithComponent("navigation")
		}
	}
}

// WithBus publishes change and navigation events on bus.
func WithBus(bus *event.Bus) Option {
	return func(h *History) { h.bus = bus }
}

// WithOnNavigate registers a callback run after every successful backward
// or forward move, outside the history lock.
func WithOnNavigate(fn func(item *Item, dir Direction)) Option {
	return func(h *History) { h.onNavigate = fn }
}

// History is a bounded jump list with a current item and backward and
// forward stacks, both kept most-recent-first. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	backward []*Item // [0] is the most recent
	forward  []*Item // [0] is the nearest
	current  *Item

	maxItems   int
	chainer    Chainer
	logger     *logging.Logger
	bus        *event.Bus
	onNavigate func(*Item, Direction)
}

// NewHistory creates an empty history. Without options it keeps 100 items
// and chains jumps fewer than 5 lines apart in the same file.
func NewHistory(opts ...Option) *History {
	h := &History{
		maxItems: DefaultMaxItems,
		chainer:  LineProximityChainer{MaxLines: DefaultChainLines},
		logger:   logging.NopLogger().WithComponent("navigation"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Push records item as the current place. The previous current item moves
// onto the backward stack. If the user had gone back, the forward items are
// folded onto the backward stack followed by the previous current item
// again, so the path actually walked can still be retraced. If item chains
// with the newest backward entry, that entry is replaced by item. After Push
// the forward stack is empty.
func (h *History) Push(item *Item) {
	if item == nil {
		return
	}

	h.mu.Lock()
	h.pushLocked(item)
	changed := h.changedEventLocked()
	h.mu.Unlock()

	h.bus.Publish(changed)
}

func (h *History) pushLocked(item *Item) {
	if h.current == nil {
		h.current = item
		return
	}
	if h.current == item {
		return
	}

	old := h.current
	h.backward = prepend(h.backward, old)

	if len(h.forward) > 0 {
		for _, f := range h.forward {
			h.backward = prepend(h.backward, f)
		}
		h.backward = prepend(h.backward, old)
		h.forward = nil
	}

	if len(h.backward) > 0 && h.chainer.Chainable(h.backward[0], item) {
		h.backward = h.backward[1:]
	}
	h.current = item

	for len(h.backward) > h.maxItems {
		h.backward[len(h.backward)-1] = nil
		h.backward = h.backward[:len(h.backward)-1]
	}
}

// GoBackward makes the newest backward item current. With nothing to go
// back to it logs a warning and returns false.
func (h *History) GoBackward() bool {
	return h.move(Backward)
}

// GoForward makes the nearest forward item current. With nothing to go
// forward to it logs a warning and returns false.
func (h *History) GoForward() bool {
	return h.move(Forward)
}

func (h *History) move(dir Direction) bool {
	h.mu.Lock()
	from, to := &h.backward, &h.forward
	if dir == Forward {
		from, to = &h.forward, &h.backward
	}
	if len(*from) == 0 {
		h.mu.Unlock()
		h.logger.Warn("no navigation item to move to", "direction", string(dir))
		return false
	}

	next := (*from)[0]
	*from = (*from)[1:]
	if h.current != nil {
		*to = prepend(*to, h.current)
	}
	h.current = next
	changed := h.changedEventLocked()
	cb := h.onNavigate
	h.mu.Unlock()

	h.bus.Publish(event.NewHistoryNavigatedEvent(next.URI(), string(dir)))
	h.bus.Publish(changed)
	if cb != nil {
		cb(next, dir)
	}
	return true
}

// CanGoBackward reports whether the backward stack is non-empty.
func (h *History) CanGoBackward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.backward) > 0
}

// CanGoForward reports whether the forward stack is non-empty.
func (h *History) CanGoForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.forward) > 0
}

// Current returns the current item, or nil before the first push.
func (h *History) Current() *Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Len returns the number of items, counting current.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.backward) + len(h.forward)
	if h.current != nil {
		n++
	}
	return n
}

// Items returns the history in the order it was experienced: backward from
// oldest to newest, then current, then forward from nearest to farthest.
func (h *History) Items() []*Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.linearizeLocked()
}

func (h *History) linearizeLocked() []*Item {
	out := make([]*Item, 0, len(h.backward)+len(h.forward)+1)
	for i := len(h.backward) - 1; i >= 0; i-- {
		out = append(out, h.backward[i])
	}
	if h.current != nil {
		out = append(out, h.current)
	}
	out = append(out, h.forward...)
	return out
}

// Find returns the most recently visited item matching pred, searching
// current, then backward, then forward.
func (h *History) Find(pred func(*Item) bool) *Item {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current != nil && pred(h.current) {
		return h.current
	}
	for _, item := range h.backward {
		if pred(item) {
			return item
		}
	}
	for _, item := range h.forward {
		if pred(item) {
			return item
		}
	}
	return nil
}

// Branch returns an independent history holding the same items, built by
// pushing backward from oldest to newest, then current, then forward. The
// branch inherits the size bound, chaining policy, logger and bus of h and
// shares item identity with it, which Merge relies on. opts are applied on
// top, e.g. to set the branch's own WithOnNavigate.
func (h *History) Branch(opts ...Option) *History {
	h.mu.Lock()
	items := h.linearizeLocked()
	branch := &History{
		maxItems: h.maxItems,
		chainer:  h.chainer,
		logger:   h.logger,
		bus:      h.bus,
	}
	h.mu.Unlock()

	for _, opt := range opts {
		opt(branch)
	}
	branch.mu.Lock()
	for _, item := range items {
		branch.pushLocked(item)
	}
	branch.mu.Unlock()
	return branch
}

// Merge folds branch back into h. It finds the first item of branch in h by
// identity, skips the run of items both share from there, and pushes the
// remaining branch items. If the first branch item is not in h at all,
// every branch item is pushed.
func (h *History) Merge(branch *History) {
	if branch == nil || branch == h {
		return
	}

	branch.mu.Lock()
	theirs := branch.linearizeLocked()
	branch.mu.Unlock()

	if len(theirs) == 0 {
		return
	}

	h.mu.Lock()
	ours := h.linearizeLocked()

	start := -1
	for i, item := range ours {
		if item == theirs[0] {
			start = i
			break
		}
	}

	remaining := theirs
	if start >= 0 {
		j := 0
		for i := start; i < len(ours) && j < len(theirs) && ours[i] == theirs[j]; i++ {
			j++
		}
		remaining = theirs[j:]
	}

	for _, item := range remaining {
		h.pushLocked(item)
	}
	changed := h.changedEventLocked()
	h.mu.Unlock()

	h.logger.Debug("merged navigation branch", "pushed", len(remaining), "common_ancestor", start >= 0)
	if len(remaining) > 0 {
		h.bus.Publish(changed)
	}
}

func (h *History) changedEventLocked() event.HistoryChangedEvent {
	uri := ""
	if h.current != nil {
		uri = h.current.URI()
	}
	return event.NewHistoryChangedEvent(uri, len(h.backward), len(h.forward))
}

func prepend(s []*Item, item *Item) []*Item {
	s = append(s, nil)
	copy(s[1:], s)
	s[0] = item
	return s
}
