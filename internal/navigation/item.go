package navigation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Iron-Ham/idecore/internal/errors"
)

// Location is a position inside a target file.
type Location struct {
	Line   uint32
	Column uint32
}

// Key identifies the file an item points at, ignoring position.
type Key struct {
	Scheme string
	Host   string
	Path   string
}

// Item is one place in the navigation history. Items are immutable and
// compared by pointer: two items with the same URI are still different
// entries unless they are the same *Item.
type Item struct {
	id     uuid.UUID
	target *url.URL // fragment stripped
	loc    Location
	hasLoc bool
}

// NewItem creates an item for target without a location. target must be an
// absolute URI such as file:///src/main.c.
func NewItem(target string) (*Item, error) {
	u, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	return &Item{id: uuid.New(), target: u}, nil
}

// NewItemAt creates an item for target at loc.
func NewItemAt(target string, loc Location) (*Item, error) {
	item, err := NewItem(target)
	if err != nil {
		return nil, err
	}
	item.loc = loc
	item.hasLoc = true
	return item, nil
}

// ParseItem parses a URI as written in the history file. A fragment of the
// form "L<line>_<column>" becomes the item's location; any other fragment
// is dropped.
func ParseItem(raw string) (*Item, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.NewInvalidDataError("navigation item", err.Error())
	}
	fragment := u.Fragment
	u.Fragment = ""
	u.RawFragment = ""

	item, err := NewItem(u.String())
	if err != nil {
		return nil, err
	}
	if loc, ok := parseFragment(fragment); ok {
		item.loc = loc
		item.hasLoc = true
	}
	return item, nil
}

// MustParseItem is like ParseItem but panics on error. For tests and
// constant URIs.
func MustParseItem(raw string) *Item {
	item, err := ParseItem(raw)
	if err != nil {
		panic(err)
	}
	return item
}

func parseTarget(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.NewInvalidDataError("navigation item", err.Error())
	}
	if u.Scheme == "" {
		return nil, errors.NewInvalidDataError("navigation item", fmt.Sprintf("%q is not an absolute URI", target))
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

func parseFragment(fragment string) (Location, bool) {
	rest, ok := strings.CutPrefix(fragment, "L")
	if !ok {
		return Location{}, false
	}
	lineStr, colStr, ok := strings.Cut(rest, "_")
	if !ok {
		return Location{}, false
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil {
		return Location{}, false
	}
	col, err := strconv.ParseUint(colStr, 10, 32)
	if err != nil {
		return Location{}, false
	}
	return Location{Line: uint32(line), Column: uint32(col)}, true
}

// ID returns the stable identifier of this item.
func (i *Item) ID() uuid.UUID {
	return i.id
}

// Target returns the URI of the file without location.
func (i *Item) Target() string {
	return i.target.String()
}

// Key returns the (scheme, host, path) triple of the target.
func (i *Item) Key() Key {
	return Key{Scheme: i.target.Scheme, Host: i.target.Host, Path: i.target.Path}
}

// Location returns the position and whether one is set.
func (i *Item) Location() (Location, bool) {
	return i.loc, i.hasLoc
}

// URI returns the target with the location encoded as "#L<line>_<column>".
func (i *Item) URI() string {
	if !i.hasLoc {
		return i.Target()
	}
	return fmt.Sprintf("%s#L%d_%d", i.Target(), i.loc.Line, i.loc.Column)
}

// String implements fmt.Stringer.
func (i *Item) String() string {
	return i.URI()
}

// Chainer decides whether next should be folded into prev instead of being
// recorded as a separate place.
type Chainer interface {
	Chainable(prev, next *Item) bool
}

// ChainerFunc adapts a function to Chainer.
type ChainerFunc func(prev, next *Item) bool

// Chainable implements Chainer.
func (f ChainerFunc) Chainable(prev, next *Item) bool {
	return f(prev, next)
}

// LineProximityChainer chains items in the same file whose lines are closer
// than MaxLines. Two items without a location in the same file also chain.
type LineProximityChainer struct {
	MaxLines uint32
}

// DefaultChainLines is the line distance used by NewHistory.
const DefaultChainLines = 5

// Chainable implements Chainer.
func (c LineProximityChainer) Chainable(prev, next *Item) bool {
	if prev == nil || next == nil || prev.Key() != next.Key() {
		return false
	}
	pl, pok := prev.Location()
	nl, nok := next.Location()
	if !pok && !nok {
		return true
	}
	if pok != nok {
		return false
	}
	diff := pl.Line - nl.Line
	if nl.Line > pl.Line {
		diff = nl.Line - pl.Line
	}
	return diff < c.MaxLines
}

// NeverChain is a Chainer that keeps every push separate.
var NeverChain Chainer = ChainerFunc(func(prev, next *Item) bool { return false })
