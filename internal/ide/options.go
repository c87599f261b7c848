package ide

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/idecore/internal/buildsystem"
	"github.com/Iron-Ham/idecore/internal/config"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/recent"
	"github.com/Iron-Ham/idecore/internal/registry"
	"github.com/Iron-Ham/idecore/internal/search"
	"github.com/Iron-Ham/idecore/internal/services"
	"github.com/Iron-Ham/idecore/internal/vcs"
	"github.com/Iron-Ham/idecore/internal/worker"
)

// Option configures a Context.
type Option func(*options)

type options struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *event.Bus
	metrics *Metrics
	tracer  trace.Tracer
	pool    *worker.Pool

	buildSystems buildsystem.Resolver
	vcsResolver  vcs.Resolver
	services     *registry.Registry[services.Service]
	providers    *registry.Registry[search.Provider]
	recent       *recent.Index
	noRecent     bool

	configManager func(projectDir string) ConfigurationManager
	unsavedFiles  func(draftsDir string) (UnsavedFiles, error)
	buffers       BufferManager

	snippetDirs []string
	scriptDirs  []string
}

// WithConfig sets the configuration. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBus publishes lifecycle, history and file events on bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithMetrics records lifecycle metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used for bring-up and shutdown spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithPool runs background work on p. The context does not release a pool
// it did not create.
func WithPool(p *worker.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithBuildSystemResolver replaces the marker-file build system detection.
func WithBuildSystemResolver(r buildsystem.Resolver) Option {
	return func(o *options) { o.buildSystems = r }
}

// WithVcsResolver replaces the default git/directory resolution.
func WithVcsResolver(r vcs.Resolver) Option {
	return func(o *options) { o.vcsResolver = r }
}

// WithServices sets the services started for the context.
func WithServices(reg *registry.Registry[services.Service]) Option {
	return func(o *options) { o.services = reg }
}

// WithSearchProviders sets the search providers. Without it the engine
// searches file names below the working directory.
func WithSearchProviders(reg *registry.Registry[search.Provider]) Option {
	return func(o *options) { o.providers = reg }
}

// WithRecentIndex records the project in idx instead of the index under
// the data directory.
func WithRecentIndex(idx *recent.Index) Option {
	return func(o *options) { o.recent = idx }
}

// WithoutRecent skips recent-projects registration.
func WithoutRecent() Option {
	return func(o *options) { o.noRecent = true }
}

// WithConfigurationManager replaces the build configuration manager. fn
// receives the project directory.
func WithConfigurationManager(fn func(projectDir string) ConfigurationManager) Option {
	return func(o *options) { o.configManager = fn }
}

// WithUnsavedFiles replaces the draft store. fn receives the drafts
// directory of the project.
func WithUnsavedFiles(fn func(draftsDir string) (UnsavedFiles, error)) Option {
	return func(o *options) { o.unsavedFiles = fn }
}

// WithBufferManager sets the buffer manager saved on unload and used by
// Restore.
func WithBufferManager(b BufferManager) Option {
	return func(o *options) { o.buffers = b }
}

// WithSnippetDirs replaces the directories searched for *.snippets files.
func WithSnippetDirs(dirs ...string) Option {
	return func(o *options) { o.snippetDirs = dirs }
}

// WithScriptDirs replaces the directories searched for scripts.
func WithScriptDirs(dirs ...string) Option {
	return func(o *options) { o.scriptDirs = dirs }
}
