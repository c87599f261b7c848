package ide

import (
	"context"

	"github.com/Iron-Ham/idecore/internal/buildconfig"
	"github.com/Iron-Ham/idecore/internal/unsaved"
)

// ConfigurationManager owns the project's build configurations.
type ConfigurationManager interface {
	Init(ctx context.Context) error
	Save(ctx context.Context) error
}

// Buffer is an open document.
type Buffer interface {
	URI() string
	Modified() bool
}

// BufferManager owns the open documents of a context.
type BufferManager interface {
	Buffers() []Buffer
	Save(ctx context.Context, buf Buffer) error
	// Load opens uri with content replacing what is on disk. It is used to
	// replay unsaved files.
	Load(ctx context.Context, uri string, content []byte) error
}

// UnsavedFiles is the draft store of a context.
type UnsavedFiles interface {
	Restore(ctx context.Context) error
	Save(ctx context.Context) error
	// Snapshot lists the drafts, least recently updated first.
	Snapshot() []unsaved.File
	Clear()
}

var (
	_ ConfigurationManager = (*buildconfig.Manager)(nil)
	_ UnsavedFiles         = (*unsaved.Files)(nil)
)

// nopBuffers is used when no buffer manager is supplied.
type nopBuffers struct{}

func (nopBuffers) Buffers() []Buffer                          { return nil }
func (nopBuffers) Save(context.Context, Buffer) error         { return nil }
func (nopBuffers) Load(context.Context, string, []byte) error { return nil }
