// Package vcs locates the version control working tree of a project and
// watches it for changes.
package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/registry"
)

// Vcs is a version control system bound to one working tree.
type Vcs interface {
	Name() string
	WorkingDirectory() string
	// IsIgnored reports whether path is VCS metadata that tools should skip.
	IsIgnored(path string) bool
}

// Resolver finds the Vcs for a project file.
type Resolver interface {
	Resolve(ctx context.Context, projectFile string) (Vcs, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, projectFile string) (Vcs, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, projectFile string) (Vcs, error) {
	return f(ctx, projectFile)
}

type git struct {
	root string
}

func (g *git) Name() string             { return "git" }
func (g *git) WorkingDirectory() string { return g.root }
func (g *git) IsIgnored(path string) bool {
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return false
	}
	return rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator))
}

type directory struct {
	root string
}

func (d *directory) Name() string              { return "directory" }
func (d *directory) WorkingDirectory() string  { return d.root }
func (d *directory) IsIgnored(path string) bool { return false }

// projectDir returns projectFile if it is a directory, else its parent.
func projectDir(projectFile string) string {
	if fi, err := os.Stat(projectFile); err == nil && fi.IsDir() {
		return projectFile
	}
	return filepath.Dir(projectFile)
}

// Git finds the nearest enclosing directory holding a .git entry. It
// returns an error matching errors.ErrNotFound outside any repository.
var Git = ResolverFunc(func(ctx context.Context, projectFile string) (Vcs, error) {
	dir, err := filepath.Abs(projectDir(projectFile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve project directory")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCanceledError("git discovery", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return &git{root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, errors.NewNotFoundError("git repository", projectFile)
		}
		dir = parent
	}
})

// Directory treats the project directory as an unversioned working tree.
var Directory = ResolverFunc(func(ctx context.Context, projectFile string) (Vcs, error) {
	return &directory{root: projectDir(projectFile)}, nil
})

// DefaultResolvers returns a registry holding Git before Directory.
func DefaultResolvers() *registry.Registry[Resolver] {
	reg := registry.New[Resolver]("vcs")
	reg.Register("git", 100, Git)
	reg.Register("directory", 1000, Directory)
	return reg
}

// ChainResolver asks each registered resolver in priority order and returns
// the first match. A resolver returning an error matching
// errors.ErrNotFound is skipped; any other error ends the search.
type ChainResolver struct {
	resolvers *registry.Registry[Resolver]
	logger    *logging.Logger
}

// NewChainResolver creates a ChainResolver. A nil registry uses
// DefaultResolvers.
func NewChainResolver(resolvers *registry.Registry[Resolver], logger *logging.Logger) *ChainResolver {
	if resolvers == nil {
		resolvers = DefaultResolvers()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ChainResolver{resolvers: resolvers, logger: logger.WithComponent("vcs")}
}

// Resolve implements Resolver.
func (c *ChainResolver) Resolve(ctx context.Context, projectFile string) (Vcs, error) {
	for _, e := range c.resolvers.Entries() {
		v, err := e.Value.Resolve(ctx, projectFile)
		if err == nil {
			c.logger.Debug("resolved vcs", "vcs", e.Name, "working_directory", v.WorkingDirectory())
			return v, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, errors.NewNotFoundError("vcs", projectFile)
}
