package ide

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/idecore/internal/buildconfig"
	"github.com/Iron-Ham/idecore/internal/buildsystem"
	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/navigation"
	"github.com/Iron-Ham/idecore/internal/project"
	"github.com/Iron-Ham/idecore/internal/recent"
	"github.com/Iron-Ham/idecore/internal/registry"
	"github.com/Iron-Ham/idecore/internal/search"
	"github.com/Iron-Ham/idecore/internal/sequencer"
	"github.com/Iron-Ham/idecore/internal/store"
	"github.com/Iron-Ham/idecore/internal/unsaved"
	"github.com/Iron-Ham/idecore/internal/vcs"
	"github.com/Iron-Ham/idecore/internal/worker"
)

// Bring-up step names, in execution order.
const (
	StepBuildSystem   = "build-system"
	StepVcs           = "vcs"
	StepServices      = "services"
	StepProjectName   = "project-name"
	StepHistory       = "history"
	StepSnippets      = "snippets"
	StepScripts       = "scripts"
	StepUnsavedFiles  = "unsaved-files"
	StepRecent        = "recent"
	StepSearch        = "search"
	StepConfiguration = "configuration"
	StepLoaded        = "loaded"
)

func step(name string, fn func(*Context, context.Context) error) sequencer.Step[*Context] {
	return sequencer.Named(name, func(ctx context.Context, c *Context) error { return fn(c, ctx) })
}

func bringUpSteps() []sequencer.Step[*Context] {
	return []sequencer.Step[*Context]{
		step(StepBuildSystem, (*Context).initBuildSystem),
		step(StepVcs, (*Context).initVcs),
		step(StepServices, (*Context).initServices),
		step(StepProjectName, (*Context).initProjectName),
		step(StepHistory, (*Context).initHistory),
		step(StepSnippets, (*Context).initSnippets),
		step(StepScripts, (*Context).initScripts),
		step(StepUnsavedFiles, (*Context).initUnsavedFiles),
		step(StepRecent, (*Context).initRecent),
		step(StepSearch, (*Context).initSearch),
		step(StepConfiguration, (*Context).initConfiguration),
		step(StepLoaded, (*Context).initLoaded),
	}
}

func (c *Context) bringUp(ctx context.Context) error {
	c.setState(StateInitializing)
	c.logger.Info("bringing up context", "project_file", c.ProjectFile())

	seq := sequencer.New(c, bringUpSteps(),
		sequencer.WithName("bring-up"),
		sequencer.WithLogger(c.logger),
		sequencer.WithObserver(c.metrics),
		sequencer.WithTracer(c.tracer),
	)
	if err := seq.Run(ctx); err != nil {
		failed := seq.FailedStep()
		c.logger.Error("bring-up failed", "step", failed, "error", err.Error())
		c.rollback()
		c.setState(StateFailed)
		return errors.NewContextError("bring-up failed", err).
			WithStep(failed).
			WithProject(c.ProjectFile())
	}

	c.setState(StateReady)
	c.logger.Info("context ready", "project", c.Project().Name(), "project_file", c.ProjectFile())
	c.bus.Publish(event.NewContextReadyEvent(c.id, c.ProjectFile(), c.Project().Name()))
	return nil
}

// rollback stops what bring-up started. It must not block on the caller's
// context, which may be the reason bring-up failed.
func (c *Context) rollback() {
	ctx := context.Background()
	if err := c.services.StopAll(ctx); err != nil {
		c.logger.Warn("failed to stop services during rollback", "error", err.Error())
	}
	c.mu.Lock()
	m := c.monitor
	c.monitor = nil
	c.mu.Unlock()
	if m != nil {
		_ = m.Close()
	}
	if c.ownsPool {
		c.pool.Release()
	}
}

func (c *Context) initBuildSystem(ctx context.Context) error {
	resolver := c.opts.buildSystems
	if resolver == nil {
		resolver = buildsystem.NewMarkerResolver(buildsystem.DefaultDetectors(), c.logger)
	}
	bs, err := resolver.Resolve(ctx, c.ProjectFile())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.buildSystem = bs
	if pf := bs.ProjectFile(); pf != "" && pf != c.projectFile {
		c.logger.Debug("build system replaced project file", "build_system", bs.ID(), "project_file", pf)
		c.projectFile = pf
		c.project = project.New(pf)
	}
	c.mu.Unlock()
	return nil
}

func (c *Context) initVcs(ctx context.Context) error {
	resolver := c.opts.vcsResolver
	if resolver == nil {
		resolver = vcs.NewChainResolver(vcs.DefaultResolvers(), c.logger)
	}
	v, err := resolver.Resolve(ctx, c.ProjectFile())
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.vcs = v
	c.mu.Unlock()
	c.logger.Debug("resolved vcs", "vcs", v.Name(), "working_directory", v.WorkingDirectory())
	return nil
}

func (c *Context) initServices(ctx context.Context) error {
	return c.services.StartAll(ctx)
}

func (c *Context) initProjectName(ctx context.Context) error {
	p := c.Project()
	_, err := worker.Run(ctx, c.pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Probe(ctx, c.logger)
	})
	return err
}

func (c *Context) initHistory(ctx context.Context) error {
	return c.history.Load(ctx, c.historyPath(),
		navigation.WithMaxFileBytes(c.cfg.History.HistoryMaxFileBytes()),
		navigation.WithMaxPerTarget(c.cfg.History.MaxPerTarget),
	)
}

func (c *Context) initSnippets(ctx context.Context) error {
	dirs := c.opts.snippetDirs
	if dirs == nil {
		dirs = []string{
			filepath.Join(c.cfg.DataDir(), "snippets"),
			filepath.Join(c.cfg.UserConfigDir(), "snippets"),
		}
	}
	return c.snippets.LoadDirs(ctx, dirs...)
}

func (c *Context) initScripts(ctx context.Context) error {
	dirs := c.opts.scriptDirs
	if dirs == nil {
		dirs = []string{
			filepath.Join(c.cfg.DataDir(), "scripts"),
			filepath.Join(c.cfg.UserConfigDir(), "scripts"),
		}
	}
	return c.scripts.LoadDirs(ctx, dirs...)
}

func (c *Context) initUnsavedFiles(ctx context.Context) error {
	dir := c.draftsDir()
	files, err := worker.Run(ctx, c.pool, func(ctx context.Context) (UnsavedFiles, error) {
		var files UnsavedFiles
		if c.opts.unsavedFiles != nil {
			f, err := c.opts.unsavedFiles(dir)
			if err != nil {
				return nil, err
			}
			files = f
		} else {
			drafts, err := store.NewFileStore(dir)
			if err != nil {
				return nil, err
			}
			files = unsaved.New(drafts, c.logger)
		}
		if err := files.Restore(ctx); err != nil {
			return nil, err
		}
		return files, nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.unsaved = files
	c.mu.Unlock()
	return nil
}

// initRecent never fails bring-up: a project that cannot be recorded is
// still usable.
func (c *Context) initRecent(ctx context.Context) error {
	if c.opts.noRecent || !c.cfg.Recent.Enabled {
		return nil
	}

	idx := c.opts.recent
	if idx == nil {
		opts := []recent.Option{
			recent.WithLockTimeout(c.cfg.Recent.LockTimeout()),
			recent.WithLogger(c.logger),
			recent.WithBus(c.bus),
		}
		if !c.cfg.Recent.IgnoreDownloads {
			opts = append(opts, recent.WithDownloads(""))
		}
		idx = recent.New(filepath.Join(c.cfg.DataDir(), recent.FileName), opts...)
	}
	c.mu.Lock()
	c.recent = idx
	c.mu.Unlock()

	p := c.Project()
	reg := recent.Registration{
		ProjectFile: c.ProjectFile(),
		Title:       p.Name(),
		Application: c.cfg.ProgramName,
	}
	if bs := c.BuildSystem(); bs != nil {
		reg.BuildSystem = bs.ID()
	}
	if doap := p.Doap(); doap != nil {
		reg.Description = strings.TrimSpace(doap.ShortDesc)
		reg.Languages = doap.Languages
	}

	added, err := idx.Add(ctx, reg)
	if err != nil {
		if errors.IsCanceled(err) {
			return err
		}
		c.logger.Warn("failed to record recent project", "path", idx.Path(), "error", err.Error())
		return nil
	}
	if !added {
		c.logger.Debug("project not recorded in recent projects", "project_file", reg.ProjectFile)
	}
	return nil
}

func (c *Context) initSearch(ctx context.Context) error {
	providers := c.opts.providers
	if providers == nil {
		providers = registry.New[search.Provider]("search provider")
		v := c.Vcs()
		providers.Register("files", 100, &search.FileProvider{
			Root: v.WorkingDirectory(),
			Skip: func(path string) bool {
				return strings.HasPrefix(filepath.Base(path), ".") || v.IsIgnored(path)
			},
		})
	}
	engine := search.NewEngine(providers, c.pool, c.logger)

	c.mu.Lock()
	c.search = engine
	c.mu.Unlock()
	return nil
}

func (c *Context) initConfiguration(ctx context.Context) error {
	dir := c.Project().Directory()
	var mgr ConfigurationManager
	if c.opts.configManager != nil {
		mgr = c.opts.configManager(dir)
	} else {
		mgr = buildconfig.NewManager(dir, c.logger)
	}
	if err := mgr.Init(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.configs = mgr
	c.mu.Unlock()
	return nil
}

func (c *Context) initLoaded(ctx context.Context) error {
	c.services.ContextLoaded(ctx)
	return nil
}
