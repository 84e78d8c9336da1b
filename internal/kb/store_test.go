package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAbsentFileReturnsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())

	content, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	doc := "# Knowledge Base\n\n## Architecture\nLayered.\n"
	require.NoError(t, store.Save(doc))

	content, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, doc, content)

	assert.Equal(t, filepath.Join(root, "knowledge_base.md"), store.Path())
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.Save("v1"))
	require.NoError(t, store.Save("v2"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "knowledge_base.md", entries[0].Name())
}

func TestDiffNoChanges(t *testing.T) {
	assert.Equal(t, "no changes", Diff("same", "same"))
}

func TestDiffSummarizesChanges(t *testing.T) {
	old := "line one\nline two\n"
	new := "line one\nline two\nline three\n"

	summary := Diff(old, new)
	assert.Contains(t, summary, "+")
	assert.Contains(t, summary, "line three")
}

func TestDiffCountsRemovals(t *testing.T) {
	summary := Diff("keep\ndrop this line\n", "keep\n")
	assert.Contains(t, summary, "-")
	assert.Contains(t, summary, "drop this line")
}
