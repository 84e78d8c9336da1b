package thread

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreEmptyDefault(t *testing.T) {
	store := NewMemoryStore()

	state, err := store.Get("missing")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Empty(t, state.Messages)
	assert.False(t, state.Exploring)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	s := NewState()
	s.Apply(Delta{Append: []Message{NewMessage(RoleUser, "hi")}, FilesOpened: []string{"a.go"}})
	require.NoError(t, store.Put("t1", s))

	got, err := store.Get("t1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Text)
}

func TestMemoryStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewMemoryStore()

	s := NewState()
	s.Apply(Delta{Append: []Message{NewMessage(RoleUser, "original")}})
	require.NoError(t, store.Put("t1", s))

	// Mutating the put state must not change the checkpoint.
	s.Messages[0].Text = "mutated after put"

	got, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Messages[0].Text)

	// Mutating a got state must not change the checkpoint either.
	got.Messages[0].Text = "mutated after get"

	again, err := store.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Messages[0].Text)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	state, err := store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, state.Messages)

	s := NewState()
	s.Apply(Delta{
		Append:      []Message{NewMessage(RoleUser, "hi"), NewMessage(RoleAssistant, "hello")},
		FilesOpened: []string{"a.go", "a.go"},
		AddRounds:   3,
	})
	require.NoError(t, store.Put("thread-1", s))

	got, err := store.Get("thread-1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, []string{"a.go", "a.go"}, got.AllFilesOpened)
	assert.Equal(t, 3, got.ExplorationRounds)
}

func TestFileStoreSanitizesThreadId(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("../escape/attempt", NewState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(entries[0].Name()), entries[0].Name())
	assert.NotContains(t, entries[0].Name(), "/")
}

func TestDefaultThreadDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	dir, err := DefaultThreadDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-data", "codescout", "threads"), dir)
}
