package vcs

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
	"github.com/Iron-Ham/idecore/internal/registry"
)

func TestGit_WalksUpToRepository(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	v, err := Git.Resolve(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "git", v.Name())

	want, _ := filepath.Abs(root)
	assert.Equal(t, want, v.WorkingDirectory())
	assert.True(t, v.IsIgnored(filepath.Join(want, ".git", "HEAD")))
	assert.False(t, v.IsIgnored(filepath.Join(want, "src", "main.c")))
}

func TestChainResolver_FallsBackToDirectory(t *testing.T) {
	reg := registry.New[Resolver]("vcs")
	reg.Register("never", 1, ResolverFunc(func(ctx context.Context, p string) (Vcs, error) {
		return nil, errors.NewNotFoundError("vcs", p)
	}))
	reg.Register("directory", 2, Directory)

	dir := t.TempDir()
	v, err := NewChainResolver(reg, nil).Resolve(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "directory", v.Name())
	assert.Equal(t, dir, v.WorkingDirectory())
}

func TestChainResolver_StopsOnHardError(t *testing.T) {
	boom := errors.New("permission denied")
	reg := registry.New[Resolver]("vcs")
	reg.Register("broken", 1, ResolverFunc(func(ctx context.Context, p string) (Vcs, error) {
		return nil, boom
	}))
	reg.Register("directory", 2, Directory)

	_, err := NewChainResolver(reg, nil).Resolve(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, boom)
}

func TestChainResolver_NothingMatches(t *testing.T) {
	_, err := NewChainResolver(registry.New[Resolver]("vcs"), nil).Resolve(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMonitor_PublishesChanges(t *testing.T) {
	dir := t.TempDir()
	v, err := Directory.Resolve(context.Background(), dir)
	require.NoError(t, err)

	bus := event.NewBus(nil)
	var mu sync.Mutex
	var changed []event.FileChangedEvent
	bus.Subscribe(event.TypeFileChanged, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, e.(event.FileChangedEvent))
	})

	m, err := NewMonitor(v, bus, nil)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	target := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(target, []byte("int main;"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range changed {
			if e.Path == target {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitor_CloseIsIdempotent(t *testing.T) {
	v, err := Directory.Resolve(context.Background(), t.TempDir())
	require.NoError(t, err)

	m, err := NewMonitor(v, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestMonitor_MissingDirectory(t *testing.T) {
	v := &directory{root: filepath.Join(t.TempDir(), "gone")}
	_, err := NewMonitor(v, nil, nil)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
