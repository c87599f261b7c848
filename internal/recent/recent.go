// Package recent maintains the index of recently opened projects shared by
// every process of the program.
//
// The index is a yaml file. Writers take a lock file next to it, read the
// current content, apply their change and atomically replace the file.
package recent

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/store"
)

// FileName is the base name of the index inside the program data directory.
const FileName = "recent-projects.yaml"

// Group names attached to entries.
const (
	GroupProject           = "project"
	LanguageGroupPrefix    = "language:"
	BuildSystemGroupPrefix = "build-system:"
)

// DefaultLockTimeout bounds how long Add and Remove wait for the lock.
const DefaultLockTimeout = 2 * time.Second

// Entry is one project in the index.
type Entry struct {
	URI         string    `yaml:"uri"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Groups      []string  `yaml:"groups,omitempty"`
	Application string    `yaml:"application,omitempty"`
	Added       time.Time `yaml:"added"`
	Visited     time.Time `yaml:"visited"`
}

// Path returns the local path of the entry, or "" for non-file URIs.
func (e Entry) Path() string {
	u, err := url.Parse(e.URI)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return u.Path
}

// Languages returns the languages recorded in the entry's groups.
func (e Entry) Languages() []string {
	var out []string
	for _, g := range e.Groups {
		if lang, ok := strings.CutPrefix(g, LanguageGroupPrefix); ok {
			out = append(out, lang)
		}
	}
	return out
}

type indexFile struct {
	Projects []Entry `yaml:"projects"`
}

// Registration describes a project being added to the index.
type Registration struct {
	ProjectFile string
	Title       string
	Description string
	Languages   []string
	BuildSystem string
	Application string
}

// Option configures an Index.
type Option func(*Index)

// WithHome sets the home directory used by the ignore rules.
func WithHome(dir string) Option {
	return func(i *Index) { i.home = filepath.Clean(dir) }
}

// WithDownloads sets the downloads directory. An empty dir disables the
// downloads rule.
func WithDownloads(dir string) Option {
	return func(i *Index) {
		if dir == "" {
			i.downloads = ""
			return
		}
		i.downloads = filepath.Clean(dir)
	}
}

// WithLockTimeout sets how long writers wait for the lock.
func WithLockTimeout(d time.Duration) Option {
	return func(i *Index) {
		if d > 0 {
			i.lockTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.logger = l.WithComponent("recent")
		}
	}
}

// WithBus publishes a RecentAddedEvent for every added project.
func WithBus(bus *event.Bus) Option {
	return func(i *Index) { i.bus = bus }
}

// Index is a handle on the index file.
type Index struct {
	path        string
	home        string
	downloads   string
	lockTimeout time.Duration
	logger      *logging.Logger
	bus         *event.Bus
	now         func() time.Time
}

// New returns a handle on the index at path. Without options the home and
// downloads directories come from the environment.
func New(path string, opts ...Option) *Index {
	home, _ := os.UserHomeDir()
	i := &Index{
		path:        path,
		home:        filepath.Clean(home),
		lockTimeout: DefaultLockTimeout,
		logger:      logging.NopLogger().WithComponent("recent"),
		now:         time.Now,
	}
	i.downloads = defaultDownloads(i.home)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func defaultDownloads(home string) string {
	if dir := os.Getenv("XDG_DOWNLOAD_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	if home == "" || home == "." {
		return ""
	}
	return filepath.Join(home, "Downloads")
}

// Path returns the index file path.
func (i *Index) Path() string {
	return i.path
}

// IsIgnored reports whether path should stay out of the index: anything
// outside the home directory, anything in downloads, dot directories other
// than .local, and files sitting directly in home.
func (i *Index) IsIgnored(path string) bool {
	path = filepath.Clean(path)
	if !within(path, i.home) {
		return true
	}
	if i.downloads != "" && (path == i.downloads || within(path, i.downloads)) {
		return true
	}

	rel, err := filepath.Rel(i.home, path)
	if err != nil {
		return true
	}
	sep := string(filepath.Separator)
	if strings.HasPrefix(rel, ".") && !strings.HasPrefix(rel, ".local"+sep) {
		return true
	}

	if fi, err := os.Lstat(path); err == nil && !fi.IsDir() && filepath.Dir(path) == i.home {
		return true
	}
	return false
}

// within reports whether path is strictly below dir.
func within(path, dir string) bool {
	if dir == "" || dir == "." {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Add records the project, or refreshes its entry if it is already known.
// It reports false without error when the project is ignored.
func (i *Index) Add(ctx context.Context, reg Registration) (bool, error) {
	abs, err := filepath.Abs(reg.ProjectFile)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve project path")
	}
	if i.IsIgnored(abs) {
		i.logger.Debug("not recording ignored project", "path", abs)
		return false, nil
	}

	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	groups := []string{GroupProject}
	for _, lang := range reg.Languages {
		groups = append(groups, LanguageGroupPrefix+lang)
	}
	if reg.BuildSystem != "" {
		groups = append(groups, BuildSystemGroupPrefix+reg.BuildSystem)
	}

	now := i.now()
	err = i.update(ctx, func(idx *indexFile) {
		for n := range idx.Projects {
			if idx.Projects[n].URI == uri {
				e := &idx.Projects[n]
				e.Title = reg.Title
				e.Description = reg.Description
				e.Groups = groups
				e.Application = reg.Application
				e.Visited = now
				return
			}
		}
		idx.Projects = append(idx.Projects, Entry{
			URI:         uri,
			Title:       reg.Title,
			Description: reg.Description,
			Groups:      groups,
			Application: reg.Application,
			Added:       now,
			Visited:     now,
		})
	})
	if err != nil {
		return false, err
	}

	i.logger.Info("registered recent project", "uri", uri, "title", reg.Title)
	i.bus.Publish(event.NewRecentAddedEvent(abs, reg.Title))
	return true, nil
}

// Remove drops the entry for projectFile.
func (i *Index) Remove(ctx context.Context, projectFile string) error {
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		return errors.Wrap(err, "failed to resolve project path")
	}
	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	return i.update(ctx, func(idx *indexFile) {
		kept := idx.Projects[:0]
		for _, e := range idx.Projects {
			if e.URI != uri {
				kept = append(kept, e)
			}
		}
		idx.Projects = kept
	})
}

// List returns the entries, most recently visited first. A missing index
// is empty.
func (i *Index) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCanceledError("recent list", err)
	}
	idx, err := i.read()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(idx.Projects, func(a, b int) bool {
		return idx.Projects[a].Visited.After(idx.Projects[b].Visited)
	})
	return idx.Projects, nil
}

func (i *Index) update(ctx context.Context, fn func(*indexFile)) error {
	lock, err := store.AcquireLockWithRetry(ctx, i.path+".lock", i.lockTimeout, i.logger)
	if err != nil {
		return errors.NewStoreError("failed to lock recent projects", err).
			WithStore("recent").WithPath(i.path)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			i.logger.Warn("failed to release lock", "path", i.path, "error", err.Error())
		}
	}()

	idx, err := i.read()
	if err != nil {
		return err
	}
	fn(idx)

	data, err := yaml.Marshal(idx)
	if err != nil {
		return errors.Wrap(err, "failed to encode recent projects")
	}
	if err := store.WriteFile(i.path, data, 0o644); err != nil {
		return errors.NewStoreError("failed to write recent projects", err).
			WithStore("recent").WithPath(i.path)
	}
	return nil
}

func (i *Index) read() (*indexFile, error) {
	var idx indexFile
	data, err := os.ReadFile(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &idx, nil
		}
		return nil, errors.NewStoreError("failed to read recent projects", err).
			WithStore("recent").WithPath(i.path)
	}
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, errors.NewInvalidDataError("recent projects", err.Error()).WithCause(err)
	}
	return &idx, nil
}
