// Package project holds the identity of an opened project: its display
// name, a filesystem-safe id and the DOAP description if one is shipped.
package project

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// Project is safe for concurrent use.
type Project struct {
	mu   sync.RWMutex
	file string
	dir  string
	name string
	doap *Doap
}

// New creates a project for file, which may be a directory or a file inside
// the project root. The name defaults to the root directory's base name.
func New(file string) *Project {
	dir := file
	if fi, err := os.Stat(file); err != nil || !fi.IsDir() {
		dir = filepath.Dir(file)
	}
	return &Project{file: file, dir: dir, name: filepath.Base(dir)}
}

// File returns the project file the project was created with.
func (p *Project) File() string {
	return p.file
}

// Directory returns the project root directory.
func (p *Project) Directory() string {
	return p.dir
}

// Name returns the display name.
func (p *Project) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// SetName replaces the display name. Empty names are ignored.
func (p *Project) SetName(name string) {
	if name = strings.TrimSpace(name); name == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// ID returns the name with path separators and whitespace replaced, usable
// as a single path component.
func (p *Project) ID() string {
	return MakeID(p.Name())
}

// MakeID turns a display name into a path component.
func MakeID(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', '|', '<', '>', '\n', '\t', ':':
			return '-'
		}
		return r
	}, name)
}

// Doap returns the parsed DOAP description, or nil.
func (p *Project) Doap() *Doap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doap
}

// Probe looks for a *.doap file in the project root. The first one that
// parses provides the project name and description. Finding none is not an
// error. Probe blocks on directory and file reads.
func (p *Project) Probe(ctx context.Context, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to list project directory %s", p.dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".doap") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return errors.NewCanceledError("project probe", err)
		}
		path := filepath.Join(p.dir, name)
		doap, err := LoadDoap(path)
		if err != nil {
			logger.Warn("ignoring unreadable doap file", "path", path, "error", err.Error())
			continue
		}

		p.mu.Lock()
		p.doap = doap
		if doap.Name != "" {
			p.name = doap.Name
		}
		p.mu.Unlock()
		logger.Debug("loaded doap", "path", path, "name", doap.Name)
		return nil
	}
	return nil
}
