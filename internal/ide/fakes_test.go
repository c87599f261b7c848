package ide

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/idecore/internal/buildsystem"
	"github.com/Iron-Ham/idecore/internal/config"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/registry"
	"github.com/Iron-Ham/idecore/internal/services"
	"github.com/Iron-Ham/idecore/internal/unsaved"
	"github.com/Iron-Ham/idecore/internal/vcs"
)

// journal records collaborator calls across goroutines.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type env struct {
	root    string
	project string
	cfg     *config.Config
	bus     *event.Bus
	journal *journal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.ConfigDir = filepath.Join(root, "config")

	project := filepath.Join(root, "src", "app")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "go.mod"), []byte("module app\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"), []byte("package main\n"), 0o644))

	return &env{
		root:    root,
		project: project,
		cfg:     cfg,
		bus:     event.NewBus(nil),
		journal: &journal{},
	}
}

func (e *env) options(extra ...Option) []Option {
	opts := []Option{
		WithConfig(e.cfg),
		WithBus(e.bus),
		WithoutRecent(),
	}
	return append(opts, extra...)
}

func (e *env) open(t *testing.T, extra ...Option) *Context {
	t.Helper()
	c, err := New(context.Background(), e.project, e.options(extra...)...)
	require.NoError(t, err)
	return c
}

// states subscribes to state changes and returns the target states seen.
func (e *env) states() func() []string {
	var mu sync.Mutex
	var seen []string
	e.bus.Subscribe(event.TypeContextStateChanged, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.(event.ContextStateChangedEvent).To)
	})
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}
}

type fakeBuildSystem struct {
	id   string
	file string
}

func (b *fakeBuildSystem) ID() string          { return b.id }
func (b *fakeBuildSystem) DisplayName() string { return b.id }
func (b *fakeBuildSystem) ProjectFile() string { return b.file }

type buildSystemFunc func(ctx context.Context, projectFile string) (buildsystem.BuildSystem, error)

func (f buildSystemFunc) Resolve(ctx context.Context, projectFile string) (buildsystem.BuildSystem, error) {
	return f(ctx, projectFile)
}

type fakeVcs struct{ root string }

func (v *fakeVcs) Name() string               { return "fake" }
func (v *fakeVcs) WorkingDirectory() string   { return v.root }
func (v *fakeVcs) IsIgnored(path string) bool { return false }

func recordingVcs(j *journal, seen *string) vcs.Resolver {
	return vcs.ResolverFunc(func(ctx context.Context, projectFile string) (vcs.Vcs, error) {
		j.add("vcs")
		*seen = projectFile
		return &fakeVcs{root: filepath.Dir(projectFile)}, nil
	})
}

type fakeService struct {
	name     string
	j        *journal
	startErr error
	stopErr  error
	onLoaded func()
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	s.j.add(s.name + ".start")
	return s.startErr
}

func (s *fakeService) ContextLoaded(ctx context.Context) {
	s.j.add(s.name + ".loaded")
	if s.onLoaded != nil {
		s.onLoaded()
	}
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.j.add(s.name + ".stop")
	return s.stopErr
}

func serviceRegistry(svcs ...*fakeService) *registry.Registry[services.Service] {
	reg := registry.New[services.Service]("service")
	for i, s := range svcs {
		reg.Register(s.name, (i+1)*10, s)
	}
	return reg
}

type fakeConfigs struct {
	j       *journal
	initErr error
	saveErr error
}

func (f *fakeConfigs) Init(ctx context.Context) error {
	f.j.add("configuration.init")
	return f.initErr
}

func (f *fakeConfigs) Save(ctx context.Context) error {
	f.j.add("configuration.save")
	return f.saveErr
}

type fakeUnsaved struct {
	mu      sync.Mutex
	j       *journal
	files   []unsaved.File
	cleared bool
	saveErr error
}

func (f *fakeUnsaved) Restore(ctx context.Context) error {
	f.j.add("unsaved.restore")
	return nil
}

func (f *fakeUnsaved) Save(ctx context.Context) error {
	f.j.add("unsaved.save")
	return f.saveErr
}

func (f *fakeUnsaved) Snapshot() []unsaved.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]unsaved.File(nil), f.files...)
	sort.Slice(out, func(i, k int) bool { return out[i].Sequence < out[k].Sequence })
	return out
}

func (f *fakeUnsaved) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = nil
	f.cleared = true
}

type fakeBuffer struct {
	uri      string
	modified bool
}

func (b *fakeBuffer) URI() string    { return b.uri }
func (b *fakeBuffer) Modified() bool { return b.modified }

type fakeBuffers struct {
	mu      sync.Mutex
	buffers []Buffer
	failing map[string]error
	saved   []string
	loaded  []string
	onLoad  func(uri string)
}

func (f *fakeBuffers) Buffers() []Buffer {
	return f.buffers
}

func (f *fakeBuffers) Save(ctx context.Context, buf Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[buf.URI()]; err != nil {
		return err
	}
	f.saved = append(f.saved, buf.URI())
	return nil
}

func (f *fakeBuffers) Load(ctx context.Context, uri string, content []byte) error {
	if f.onLoad != nil {
		f.onLoad(uri)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[uri]; err != nil {
		return err
	}
	f.loaded = append(f.loaded, uri)
	return nil
}

func (f *fakeBuffers) savedURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.saved...)
	sort.Strings(out)
	return out
}

func (f *fakeBuffers) loadedURIs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loaded...)
}
