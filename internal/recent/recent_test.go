package recent

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/event"
	"github.com/Iron-Ham/idecore/internal/store"
)

type fixture struct {
	home  string
	index *Index
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	home := t.TempDir()
	path := filepath.Join(home, ".local", "share", "idecore", FileName)
	opts = append([]Option{WithHome(home), WithDownloads(filepath.Join(home, "Downloads"))}, opts...)
	return &fixture{home: home, index: New(path, opts...)}
}

func (f *fixture) mkdir(t *testing.T, rel string) string {
	t.Helper()
	dir := filepath.Join(f.home, rel)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func TestIndex_IsIgnored(t *testing.T) {
	f := newFixture(t)
	projects := f.mkdir(t, "src/app")
	local := f.mkdir(t, ".local/share/plugin")
	hidden := f.mkdir(t, ".config/thing")
	downloads := f.mkdir(t, "Downloads/tarball")
	loose := filepath.Join(f.home, "notes.txt")
	require.NoError(t, os.WriteFile(loose, nil, 0o644))

	assert.False(t, f.index.IsIgnored(projects))
	assert.False(t, f.index.IsIgnored(local))
	assert.True(t, f.index.IsIgnored(hidden))
	assert.True(t, f.index.IsIgnored(downloads))
	assert.True(t, f.index.IsIgnored(filepath.Join(f.home, "Downloads")))
	assert.True(t, f.index.IsIgnored(loose))
	assert.True(t, f.index.IsIgnored(f.home))
	assert.True(t, f.index.IsIgnored(filepath.Dir(f.home)))
}

func TestIndex_DownloadsRuleDisabled(t *testing.T) {
	f := newFixture(t, WithDownloads(""))
	assert.False(t, f.index.IsIgnored(f.mkdir(t, "Downloads/tarball")))
}

func TestIndex_AddAndList(t *testing.T) {
	bus := event.NewBus(nil)
	var mu sync.Mutex
	var added []event.RecentAddedEvent
	bus.Subscribe(event.TypeRecentAdded, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		added = append(added, e.(event.RecentAddedEvent))
	})

	f := newFixture(t, WithBus(bus))
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.index.now = func() time.Time { return clock }

	app := f.mkdir(t, "src/app")
	lib := f.mkdir(t, "src/lib")
	ctx := context.Background()

	ok, err := f.index.Add(ctx, Registration{
		ProjectFile: app,
		Title:       "App",
		Description: "An app",
		Languages:   []string{"C", "Vala"},
		BuildSystem: "meson",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	clock = clock.Add(time.Hour)
	_, err = f.index.Add(ctx, Registration{ProjectFile: lib, Title: "Lib"})
	require.NoError(t, err)

	entries, err := f.index.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Lib", entries[0].Title)
	assert.Equal(t, "App", entries[1].Title)
	assert.Equal(t, app, entries[1].Path())
	assert.Equal(t, []string{"C", "Vala"}, entries[1].Languages())
	assert.Contains(t, entries[1].Groups, BuildSystemGroupPrefix+"meson")
	assert.Contains(t, entries[1].Groups, GroupProject)

	mu.Lock()
	assert.Len(t, added, 2)
	mu.Unlock()

	_, err = os.Stat(f.index.Path() + ".lock")
	assert.True(t, os.IsNotExist(err), "lock released")
}

func TestIndex_AddRefreshesExisting(t *testing.T) {
	f := newFixture(t)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.index.now = func() time.Time { return first }

	app := f.mkdir(t, "src/app")
	ctx := context.Background()
	_, err := f.index.Add(ctx, Registration{ProjectFile: app, Title: "Old"})
	require.NoError(t, err)

	f.index.now = func() time.Time { return first.Add(24 * time.Hour) }
	_, err = f.index.Add(ctx, Registration{ProjectFile: app, Title: "New"})
	require.NoError(t, err)

	entries, err := f.index.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Title)
	assert.True(t, entries[0].Added.Equal(first))
	assert.True(t, entries[0].Visited.After(first))
}

func TestIndex_AddIgnored(t *testing.T) {
	f := newFixture(t)
	ok, err := f.index.Add(context.Background(), Registration{ProjectFile: f.mkdir(t, ".cache/x")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(f.index.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestIndex_Remove(t *testing.T) {
	f := newFixture(t)
	app := f.mkdir(t, "src/app")
	ctx := context.Background()
	_, err := f.index.Add(ctx, Registration{ProjectFile: app, Title: "App"})
	require.NoError(t, err)

	require.NoError(t, f.index.Remove(ctx, app))
	entries, err := f.index.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_ListMissingFile(t *testing.T) {
	f := newFixture(t)
	entries, err := f.index.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_ListCorruptFile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, store.WriteFile(f.index.Path(), []byte("projects: [unterminated"), 0o644))

	_, err := f.index.List(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestIndex_AddTimesOutOnHeldLock(t *testing.T) {
	f := newFixture(t, WithLockTimeout(50*time.Millisecond))
	lock, err := store.AcquireLock(f.index.Path()+".lock", nil)
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	_, err = f.index.Add(context.Background(), Registration{ProjectFile: f.mkdir(t, "src/app"), Title: "App"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLocked)
}
