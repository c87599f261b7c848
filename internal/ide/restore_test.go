package ide

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ideerrors "github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/unsaved"
)

func draftFiles(n int) []unsaved.File {
	out := make([]unsaved.File, n)
	for i := range out {
		out[i] = unsaved.File{
			URI:      fmt.Sprintf("file:///src/f%02d.c", i),
			Content:  []byte("int x;\n"),
			Sequence: uint64(i + 1),
		}
	}
	return out
}

func TestRestore_ReplaysOneAtATime(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(3)}
	buffers := &fakeBuffers{failing: map[string]error{"file:///src/f01.c": errors.New("gone")}}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	require.NoError(t, c.Restore(context.Background()))
	assert.Equal(t, []string{"file:///src/f02.c", "file:///src/f00.c"}, buffers.loadedURIs())
	assert.False(t, c.IsRestoring())
	assert.Equal(t, 0, c.HoldCount())
	assert.False(t, files.cleared)

	assert.ErrorIs(t, c.Restore(context.Background()), ideerrors.ErrAlreadyRestored)
}

func TestRestore_TooManyFilesDiscardsDrafts(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(RestoreFilesMax + 1)}
	buffers := &fakeBuffers{}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	require.NoError(t, c.Restore(context.Background()))
	assert.Empty(t, buffers.loadedURIs())
	assert.True(t, files.cleared)
	assert.Empty(t, files.Snapshot())
}

func TestRestore_AtLimit(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(RestoreFilesMax)}
	buffers := &fakeBuffers{}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	require.NoError(t, c.Restore(context.Background()))
	assert.Len(t, buffers.loadedURIs(), RestoreFilesMax)
	assert.False(t, files.cleared)
}

func TestRestore_Canceled(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(2)}
	buffers := &fakeBuffers{}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Restore(ctx), ideerrors.ErrCanceled)
	assert.Empty(t, buffers.loadedURIs())
}

func TestRestoreAsync(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(1)}
	buffers := &fakeBuffers{}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	done := make(chan error, 1)
	c.RestoreAsync(context.Background(), func(err error) { done <- err })
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RestoreAsync did not complete")
	}
	assert.Equal(t, []string{"file:///src/f00.c"}, buffers.loadedURIs())
}

func TestRestore_AfterUnload(t *testing.T) {
	e := newEnv(t)
	c := e.open(t)
	require.NoError(t, c.Unload(context.Background()))
	assert.ErrorIs(t, c.Restore(context.Background()), ideerrors.ErrContextUnloaded)
}

func TestRestore_ReplaysNewestDraftFirst(t *testing.T) {
	e := newEnv(t)
	// sequence order differs from URI order
	drafts := []unsaved.File{
		{URI: "file:///src/a.c", Sequence: 3},
		{URI: "file:///src/b.c", Sequence: 1},
		{URI: "file:///src/c.c", Sequence: 2},
	}
	files := &fakeUnsaved{j: e.journal, files: drafts}
	buffers := &fakeBuffers{}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)
	defer func() { _ = c.Unload(context.Background()) }()

	require.NoError(t, c.Restore(context.Background()))
	assert.Equal(t, []string{"file:///src/a.c", "file:///src/c.c", "file:///src/b.c"}, buffers.loadedURIs())
}

func TestRestore_UnloadRequestedDuringRestoreWaits(t *testing.T) {
	e := newEnv(t)
	files := &fakeUnsaved{j: e.journal, files: draftFiles(2)}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	buffers := &fakeBuffers{onLoad: func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}}
	c := e.open(t,
		WithUnsavedFiles(func(string) (UnsavedFiles, error) { return files, nil }),
		WithBufferManager(buffers),
	)

	restored := make(chan error, 1)
	c.RestoreAsync(context.Background(), func(err error) { restored <- err })
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("Restore did not start loading")
	}
	assert.True(t, c.IsRestoring())
	assert.Equal(t, 1, c.HoldCount())

	unloaded := make(chan error, 1)
	c.UnloadAsync(context.Background(), func(err error) { unloaded <- err })
	assert.True(t, c.IsUnloading())
	assert.Equal(t, StateReady, c.State())
	assert.ErrorIs(t, c.Restore(context.Background()), ideerrors.ErrContextUnloaded)

	close(release)
	select {
	case err := <-restored:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Restore did not finish")
	}
	select {
	case err := <-unloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("unload did not run after Restore released its hold")
	}

	assert.Equal(t, StateUnloaded, c.State())
	assert.Len(t, buffers.loadedURIs(), 2)
	assert.False(t, c.IsRestoring())
}
