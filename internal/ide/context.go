package ide

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/idecore/internal/buildsystem"
	"github.com/Iron-Ham/idecore/internal/config"
	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/library"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/navigation"
	"github.com/Iron-Ham/idecore/internal/project"
	"github.com/Iron-Ham/idecore/internal/recent"
	"github.com/Iron-Ham/idecore/internal/search"
	"github.com/Iron-Ham/idecore/internal/services"
	"github.com/Iron-Ham/idecore/internal/vcs"
	"github.com/Iron-Ham/idecore/internal/worker"
)

// TracerName is the instrumentation scope of context spans.
const TracerName = "github.com/Iron-Ham/idecore/internal/ide"

// State is the lifecycle state of a Context.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateUnloading
	StateUnloaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateUnloading:
		return "unloading"
	case StateUnloaded:
		return "unloaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Context is the root object of an opened project. It owns every
// per-project collaborator, brings them up in a fixed order and persists
// their state on Unload. It is safe for concurrent use.
type Context struct {
	id      string
	cfg     *config.Config
	logger  *logging.Logger
	bus     *event.Bus
	metrics *Metrics
	tracer  trace.Tracer
	opts    options

	pool     *worker.Pool
	ownsPool bool

	history  *navigation.History
	snippets *library.Snippets
	scripts  *library.Scripts
	services *services.Manager
	buffers  BufferManager

	mu          sync.Mutex
	state       State
	projectFile string
	project     *project.Project
	buildSystem buildsystem.BuildSystem
	vcs         vcs.Vcs
	unsaved     UnsavedFiles
	recent      *recent.Index
	search      *search.Engine
	configs     ConfigurationManager
	monitor     *vcs.Monitor

	holds     int
	pending   *unloadRequest
	unloading bool
	restored  bool
	restoring bool

	warnings atomic.Int32 // shutdown warnings of the running unload
}

// New opens the project at locator, which may be a project directory or a
// file inside it, and runs bring-up. It blocks until the context is ready.
//
// If bring-up fails, every collaborator started so far is stopped, the
// context moves to StateFailed and the error is returned as an
// *errors.ContextError naming the failed step.
func New(ctx context.Context, locator string, opts ...Option) (*Context, error) {
	c, err := newContext(locator, opts)
	if err != nil {
		return nil, err
	}
	if err := c.bringUp(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewAsync runs New on a new goroutine and calls done exactly once with the
// result.
func NewAsync(ctx context.Context, locator string, done func(*Context, error), opts ...Option) {
	go func() {
		c, err := New(ctx, locator, opts...)
		if done != nil {
			done(c, err)
		}
	}()
}

func newContext(locator string, opts []Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}
	if o.buffers == nil {
		o.buffers = nopBuffers{}
	}

	abs, err := filepath.Abs(locator)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve project locator %s", locator)
	}

	id := uuid.NewString()
	logger := o.logger.WithContextID(id).WithComponent("context")

	c := &Context{
		id:          id,
		cfg:         o.cfg,
		logger:      logger,
		bus:         o.bus,
		metrics:     o.metrics,
		tracer:      o.tracer,
		opts:        o,
		pool:        o.pool,
		buffers:     o.buffers,
		projectFile: abs,
		project:     project.New(abs),
		state:       StateUninitialized,
	}

	if c.pool == nil {
		pool, err := worker.New(o.cfg.Workers.PoolSize, o.logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create worker pool")
		}
		c.pool = pool
		c.ownsPool = true
	}

	c.history = navigation.NewHistory(
		navigation.WithMaxItems(o.cfg.History.MaxItems),
		navigation.WithChainer(navigation.LineProximityChainer{MaxLines: uint32(o.cfg.History.ChainLines)}),
		navigation.WithLogger(o.logger),
		navigation.WithBus(o.bus),
	)
	c.snippets = library.NewSnippets(o.logger)
	c.scripts = library.NewScripts(o.logger)
	c.services = services.NewManager(o.services, services.Callbacks{
		OnStatusChange: func(name string, oldStatus, newStatus services.Status) {
			c.logger.Debug("service status changed", "service", name, "from", string(oldStatus), "to", string(newStatus))
		},
	}, logger)

	return c, nil
}

// ID returns the unique identifier of this context.
func (c *Context) ID() string {
	return c.id
}

// Config returns the configuration the context was created with.
func (c *Context) Config() *config.Config {
	return c.cfg
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	c.stateChanged(from, to)
}

func (c *Context) stateChanged(from, to State) {
	if from == to {
		return
	}
	c.logger.Debug("context state changed", "from", from.String(), "to", to.String())
	c.bus.Publish(event.NewContextStateChangedEvent(c.id, from.String(), to.String()))
}

// ProjectFile returns the project file, as possibly replaced by the build
// system.
func (c *Context) ProjectFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectFile
}

// Project returns the project.
func (c *Context) Project() *project.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// BuildSystem returns the resolved build system, nil before bring-up
// resolved it.
func (c *Context) BuildSystem() buildsystem.BuildSystem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildSystem
}

// Vcs returns the resolved version control system.
func (c *Context) Vcs() vcs.Vcs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vcs
}

// History returns the navigation history.
func (c *Context) History() *navigation.History {
	return c.history
}

// UnsavedFiles returns the draft store, nil before bring-up restored it.
func (c *Context) UnsavedFiles() UnsavedFiles {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsaved
}

// SearchEngine returns the search engine.
func (c *Context) SearchEngine() *search.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// RecentIndex returns the recent-projects index the project was recorded
// in, nil if recording is disabled.
func (c *Context) RecentIndex() *recent.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent
}

// ConfigurationManager returns the build configuration manager.
func (c *Context) ConfigurationManager() ConfigurationManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configs
}

// BufferManager returns the buffer manager.
func (c *Context) BufferManager() BufferManager {
	return c.buffers
}

// Services returns the service manager.
func (c *Context) Services() *services.Manager {
	return c.services
}

// Snippets returns the snippet library.
func (c *Context) Snippets() *library.Snippets {
	return c.snippets
}

// Scripts returns the script library.
func (c *Context) Scripts() *library.Scripts {
	return c.scripts
}

// Pool returns the worker pool used for background work.
func (c *Context) Pool() *worker.Pool {
	return c.pool
}

// IsUnloading reports whether an unload has been requested.
func (c *Context) IsUnloading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unloading
}

// IsRestoring reports whether Restore is replaying unsaved files.
func (c *Context) IsRestoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restoring
}

// CacheFilename joins parts below the project's cache directory,
// <cache>/<program>/projects/<project-id>.
func (c *Context) CacheFilename(parts ...string) string {
	base := []string{c.cfg.CacheDir(), "projects", c.Project().ID()}
	return filepath.Join(append(base, parts...)...)
}

// BuildFilename joins parts below the working directory of the project.
func (c *Context) BuildFilename(parts ...string) string {
	root := c.Project().Directory()
	if v := c.Vcs(); v != nil {
		root = v.WorkingDirectory()
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

// draftsDir is <data>/<program>/drafts/<project-id>.
func (c *Context) draftsDir() string {
	return filepath.Join(c.cfg.DataDir(), "drafts", c.Project().ID())
}

// historyPath is where the navigation history is persisted.
func (c *Context) historyPath() string {
	return c.CacheFilename("navigation", "history")
}

// Monitor returns a recursive file monitor over the working directory,
// creating it on first use. It is closed on unload.
func (c *Context) Monitor() (*vcs.Monitor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUnloading, StateUnloaded:
		return nil, errors.ErrContextUnloaded
	case StateFailed:
		return nil, errors.ErrContextFailed
	}
	if c.monitor != nil {
		return c.monitor, nil
	}
	if c.vcs == nil {
		return nil, errors.NewNotFoundError("vcs", c.projectFile)
	}

	m, err := vcs.NewMonitor(c.vcs, c.bus, c.logger)
	if err != nil {
		return nil, err
	}
	c.monitor = m
	return m, nil
}
