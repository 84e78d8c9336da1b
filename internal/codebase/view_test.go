package codebase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newTestView(t *testing.T) (*View, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "internal/service/service.go", "package service\n")
	writeFile(t, root, "internal/service/service_test.go", "package service\n")
	writeFile(t, root, "internal/service/helper.go", "package service\n")
	writeFile(t, root, "docs/readme.md", "# readme\n")
	writeFile(t, root, "image.png", "binarydata")

	v, err := New(root, nil)
	require.NoError(t, err)
	return v, root
}

func TestEnumerationSkipsBinaryAndSortsFiles(t *testing.T) {
	v, _ := newTestView(t)

	assert.Equal(t, []string{
		"docs/readme.md",
		"internal/service/helper.go",
		"internal/service/service.go",
		"internal/service/service_test.go",
		"main.go",
	}, v.Files())
}

func TestEnumerationHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "vendor/\nsecret.go\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "secret.go", "package main\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")

	v, err := New(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, v.Files())
}

func TestEnumerationIncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "notes.md", "notes\n")
	writeFile(t, root, "internal/a/a.go", "package a\n")

	v, err := New(root, []string{"**/*.go"})
	require.NoError(t, err)

	assert.Equal(t, []string{"internal/a/a.go", "main.go"}, v.Files())
}

func TestStructureExcludesTestFiles(t *testing.T) {
	v, _ := newTestView(t)

	s := v.Structure()
	assert.NotContains(t, s, "service_test.go")
	assert.Contains(t, s, "service.go")
	assert.Contains(t, s, "4 files")
}

func TestStructureGroupsByDirectory(t *testing.T) {
	v, root := newTestView(t)

	s := v.Structure()
	lines := strings.Split(s, "\n")
	require.NotEmpty(t, lines)

	assert.True(t, strings.HasPrefix(lines[0], filepath.Base(root)+" ("))
	assert.Contains(t, s, "├── docs (1 files)")
	assert.Contains(t, s, "├── internal/service (2 files)")
	assert.Contains(t, s, "│   ├── helper.go")
	assert.Contains(t, s, "├── main.go")

	// Deterministic output for identical input.
	assert.Equal(t, s, v.Structure())
}

func TestReadFilesConcatenatesInRequestOrder(t *testing.T) {
	v, _ := newTestView(t)

	out, read := v.ReadFiles([]string{"internal/service/service.go", "main.go"}, 30000)
	assert.Equal(t, []string{"internal/service/service.go", "main.go"}, read)

	idx1 := strings.Index(out, "internal/service/service.go:\n")
	idx2 := strings.Index(out, "main.go:\npackage main")
	require.GreaterOrEqual(t, idx1, 0)
	require.Greater(t, idx2, idx1)
}

func TestReadFilesTruncatesWithMarker(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.go", strings.Repeat("a", 100))

	v, err := New(root, nil)
	require.NoError(t, err)

	out, _ := v.ReadFiles([]string{"big.go"}, 40)
	assert.Equal(t, "big.go:\n"+strings.Repeat("a", 40)+"...", out)
}

func TestReadFilesSkipsInvalidPaths(t *testing.T) {
	v, _ := newTestView(t)

	out, read := v.ReadFiles([]string{"missing.go", "internal", ""}, 30000)
	assert.Equal(t, "No valid file contents retrieved.", out)
	assert.Empty(t, read)
}

func TestReadFilesSanitizesPaths(t *testing.T) {
	v, _ := newTestView(t)

	out, read := v.ReadFiles([]string{" 'main.go' ", "1. docs/readme.md"}, 30000)
	assert.Equal(t, []string{"main.go", "docs/readme.md"}, read)
	assert.Contains(t, out, "main.go:\npackage main")
	assert.Contains(t, out, "docs/readme.md:\n# readme")
}

func TestSanitizePath(t *testing.T) {
	cases := map[string]string{
		"  main.go  ":        "main.go",
		"'main.go'":          "main.go",
		`["main.go"]`:        "main.go",
		"1. src/app.py":      "src/app.py",
		"2) src/app.py":      "src/app.py",
		"version2/app.py":    "version2/app.py",
		"utils2.py":          "utils2.py",
		"   ":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizePath(in), "input %q", in)
	}
}

func TestParsePathList(t *testing.T) {
	got, ok := ParsePathList([]any{"a.go", "b.go"})
	require.True(t, ok)
	assert.Equal(t, []string{"a.go", "b.go"}, got)

	got, ok = ParsePathList(`["a.go", "b.go"]`)
	require.True(t, ok)
	assert.Equal(t, []string{"a.go", "b.go"}, got)

	got, ok = ParsePathList("['a.go', 'b.go']")
	require.True(t, ok)
	assert.Equal(t, []string{"a.go", "b.go"}, got)

	got, ok = ParsePathList("main.go")
	require.True(t, ok)
	assert.Equal(t, []string{"main.go"}, got)

	_, ok = ParsePathList(42)
	assert.False(t, ok)

	_, ok = ParsePathList("[1, 2]")
	assert.False(t, ok)
}
