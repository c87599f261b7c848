package buildconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/idecore/internal/errors"
)

func TestManager_InitWithoutFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil)
	require.NoError(t, m.Init(context.Background()))

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, DefaultID, cur.ID)
	assert.Equal(t, "host", cur.Runtime)

	require.NoError(t, m.Save(context.Background()))
	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(err), "unchanged configuration is not written")
}

func TestManager_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `configurations:
  - id: debug
    name: Debug
    prefix: /usr
    environment:
      CFLAGS: -O0
  - id: release
    name: Release
    runtime: flatpak
    default: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	m := NewManager(dir, nil)
	require.NoError(t, m.Init(context.Background()))

	configs := m.Configurations()
	require.Len(t, configs, 2)
	assert.Equal(t, "host", configs[0].Runtime)
	assert.Equal(t, []string{"CFLAGS=-O0"}, configs[0].Environ())

	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "release", cur.ID)
}

func TestManager_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("configurations: {"), 0o644))

	err := NewManager(dir, nil).Init(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestManager_ChangesAreSaved(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	m := NewManager(dir, nil)
	require.NoError(t, m.Init(ctx))

	id := m.Add(Configuration{ID: DefaultID, Name: "Copy"})
	assert.Equal(t, "default-2", id)
	require.NoError(t, m.Update(id, func(c *Configuration) { c.Prefix = "/opt" }))
	require.NoError(t, m.SetCurrent(id))
	require.NoError(t, m.Save(ctx))

	reloaded := NewManager(dir, nil)
	require.NoError(t, reloaded.Init(ctx))
	cur, err := reloaded.Current()
	require.NoError(t, err)
	assert.Equal(t, "default-2", cur.ID)
	assert.Equal(t, "/opt", cur.Prefix)
	assert.Len(t, reloaded.Configurations(), 2)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.Init(context.Background()))

	err := m.Remove(DefaultID)
	assert.ErrorIs(t, err, errors.ErrNotSupported)

	id := m.Add(Configuration{Name: "Other"})
	require.NoError(t, m.SetCurrent(id))
	require.NoError(t, m.Remove(id))
	cur, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, DefaultID, cur.ID)

	assert.ErrorIs(t, m.Remove("nope"), errors.ErrNotFound)
	assert.ErrorIs(t, m.SetCurrent("nope"), errors.ErrNotFound)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, "default-2", nextID("default"))
	assert.Equal(t, "default-3", nextID("default-2"))
	assert.Equal(t, "debug-build-2", nextID("debug-build"))
}
