package codebase

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"codescout/internal/logging"
)

// textExtensions is the allowlist of file extensions treated as readable
// source or configuration text.
var textExtensions = map[string]bool{
	".go":         true,
	".java":       true,
	".py":         true,
	".js":         true,
	".ts":         true,
	".tsx":        true,
	".jsx":        true,
	".c":          true,
	".cpp":        true,
	".h":          true,
	".hpp":        true,
	".rs":         true,
	".rb":         true,
	".kt":         true,
	".yml":        true,
	".yaml":       true,
	".json":       true,
	".toml":       true,
	".properties": true,
	".md":         true,
	".sql":        true,
	".sh":         true,
	".proto":      true,
}

// View provides read-only access to the text files of a codebase.
// The file list is enumerated once at construction.
type View struct {
	root     string
	name     string
	files    []string
	patterns []string
}

// New creates a View rooted at the given codebase directory. When
// includePatterns is non-empty, only files matching at least one of the
// doublestar patterns are enumerated.
func New(root string, includePatterns []string) (*View, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve codebase path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access codebase path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("codebase path is not a directory: %s", abs)
	}

	v := &View{
		root:     abs,
		name:     filepath.Base(abs),
		patterns: includePatterns,
	}

	if err := v.enumerate(); err != nil {
		return nil, err
	}

	logging.Info("codebase enumerated", "root", abs, "files", len(v.files))
	return v, nil
}

// enumerate walks the codebase once, collecting relative paths of text
// files. The .git directory and anything matched by the repository's
// .gitignore are skipped.
func (v *View) enumerate() error {
	var ignore *gitignore.GitIgnore
	if gi, err := gitignore.CompileIgnoreFile(filepath.Join(v.root, ".gitignore")); err == nil {
		ignore = gi
	}

	var files []string
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(v.root, path)
		if relErr != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if len(v.patterns) > 0 && !v.matchesAny(rel) {
			return nil
		}

		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enumerate codebase: %w", err)
	}

	sort.Strings(files)
	v.files = files
	return nil
}

func (v *View) matchesAny(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range v.patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Root returns the absolute codebase root.
func (v *View) Root() string {
	return v.root
}

// Files returns the enumerated relative file paths, sorted.
func (v *View) Files() []string {
	out := make([]string, len(v.files))
	copy(out, v.files)
	return out
}

// Structure returns a deterministic grouped listing of the codebase:
// a root line with total size and file count, then per-directory groups.
// Files whose name stem ends in "test" (case-insensitive) are excluded.
func (v *View) Structure() string {
	var nonTest []string
	for _, f := range v.files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if strings.HasSuffix(strings.ToLower(stem), "test") {
			continue
		}
		nonTest = append(nonTest, f)
	}

	var totalBytes int64
	for _, f := range nonTest {
		if info, err := os.Stat(filepath.Join(v.root, filepath.FromSlash(f))); err == nil {
			totalBytes += info.Size()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%.1fKB, %d files)\n", v.name, float64(totalBytes)/1024, len(nonTest))

	groups := make(map[string][]string)
	for _, f := range nonTest {
		dir := ""
		if i := strings.LastIndex(f, "/"); i >= 0 {
			dir = f[:i]
		}
		groups[dir] = append(groups[dir], f[strings.LastIndex(f, "/")+1:])
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		names := groups[dir]
		sort.Strings(names)
		if dir != "" {
			fmt.Fprintf(&b, "├── %s (%d files)\n", dir, len(names))
			for _, name := range names {
				fmt.Fprintf(&b, "│   ├── %s\n", name)
			}
		} else {
			for _, name := range names {
				fmt.Fprintf(&b, "├── %s\n", name)
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// noContentSentinel is returned when none of the requested paths resolve.
const noContentSentinel = "No valid file contents retrieved."

// ReadFiles reads the requested files relative to the codebase root,
// returning the contents concatenated as "path:\ncontent" blocks in
// request order, plus the cleaned list of paths actually read. Each
// file is truncated to maxChars with a "..." marker when exceeded.
// Nonexistent or non-file paths are skipped with a warning.
func (v *View) ReadFiles(paths []string, maxChars int) (string, []string) {
	var blocks []string
	var read []string

	for _, p := range paths {
		clean := SanitizePath(p)
		if clean == "" || clean == "/" {
			logging.Warn("skipping invalid file path", "path", p)
			continue
		}

		full := filepath.Join(v.root, filepath.FromSlash(clean))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			logging.Warn("file not found or not a file", "path", clean)
			continue
		}

		data, err := os.ReadFile(full)
		if err != nil {
			logging.Error("failed to read file", "path", clean, "error", err)
			continue
		}

		content := string(data)
		if maxChars > 0 && len(content) > maxChars {
			content = content[:maxChars] + "..."
		}

		blocks = append(blocks, clean+":\n"+content)
		read = append(read, clean)
	}

	if len(blocks) == 0 {
		return noContentSentinel, nil
	}
	return strings.Join(blocks, "\n\n"), read
}

// SanitizePath cleans a single model-supplied file path: trims
// whitespace, strips quote and bracket artifacts, and strips stray
// leading index digits such as "1. " from a numbered list.
func SanitizePath(p string) string {
	clean := strings.TrimSpace(p)
	clean = strings.Trim(clean, "'\"[]")
	clean = strings.TrimSpace(clean)

	// A misformatted call can carry list numbering ("1. main.go").
	i := 0
	for i < len(clean) && clean[i] >= '0' && clean[i] <= '9' {
		i++
	}
	if i > 0 && i < len(clean) && (clean[i] == '.' || clean[i] == ')' || clean[i] == ' ') {
		clean = clean[i:]
	}
	clean = strings.TrimLeft(clean, ". )")
	return strings.TrimSpace(clean)
}

// ParsePathList coerces a tool argument into a list of path strings.
// It accepts a real list, a stringified JSON list, or a single path.
func ParsePathList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, "\n", ""))
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			var parsed []string
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				logging.Debug("converted stringified file list", "paths", parsed)
				return parsed, true
			}
			// Models sometimes emit Python-style single quotes.
			if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &parsed); err == nil {
				logging.Debug("converted stringified file list", "paths", parsed)
				return parsed, true
			}
			logging.Error("failed to parse stringified file list", "value", v)
			return nil, false
		}
		if s == "" {
			return nil, false
		}
		return []string{s}, true
	default:
		return nil, false
	}
}
