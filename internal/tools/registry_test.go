package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/codebase"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "util.go"), []byte("package pkg\n"), 0644))

	view, err := codebase.New(root, nil)
	require.NoError(t, err)

	reg := NewRegistry()
	require.NoError(t, reg.Register(NewStructureTool(view)))
	require.NoError(t, reg.Register(NewOpenFilesTool(view, 30000)))
	return reg
}

func TestRegistryDeclarations(t *testing.T) {
	reg := newTestRegistry(t)

	decls := reg.Declarations()
	require.Len(t, decls, 2)

	names := []string{decls[0].Name, decls[1].Name}
	assert.Contains(t, names, "get_file_structure")
	assert.Contains(t, names, "open_files")
	assert.ElementsMatch(t, names, reg.Names())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := newTestRegistry(t)

	view, err := codebase.New(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Error(t, reg.Register(NewStructureTool(view)))
}

func TestDispatchUnknownToolReturnsErrorResult(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Dispatch(context.Background(), "delete_files", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
	assert.Contains(t, result.Text(), "unknown tool")
}

func TestDispatchValidationFailureReturnsErrorResult(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Dispatch(context.Background(), "open_files", map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "file_paths")
}

func TestDispatchStructure(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Dispatch(context.Background(), "get_file_structure", nil)
	require.True(t, result.Success)
	assert.Contains(t, result.Content, "main.go")
	assert.Equal(t, strings.Count(result.Content, "\n")+1, result.Lines)
}

func TestDispatchOpenFilesCarriesFileMetadata(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Dispatch(context.Background(), "open_files", map[string]any{
		"file_paths": []any{"main.go", "missing.go"},
	})
	require.True(t, result.Success)
	assert.Equal(t, []string{"main.go"}, result.Files)
	assert.Contains(t, result.Content, "main.go:\npackage main")
}

func TestDispatchOpenFilesStringifiedList(t *testing.T) {
	reg := newTestRegistry(t)

	result := reg.Dispatch(context.Background(), "open_files", map[string]any{
		"file_paths": `["main.go", "pkg/util.go"]`,
	})
	require.True(t, result.Success)
	assert.Equal(t, []string{"main.go", "pkg/util.go"}, result.Files)
}
