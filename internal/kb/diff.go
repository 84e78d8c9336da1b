package kb

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a compact summary of how the knowledge base changed
// between two versions: added and removed line counts plus the first
// few changed fragments.
func Diff(old, new string) string {
	if old == new {
		return "no changes"
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, new, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var added, removed int
	var fragments []string

	for _, d := range diffs {
		lines := strings.Count(d.Text, "\n")
		if len(strings.TrimSpace(d.Text)) > 0 && lines == 0 {
			lines = 1
		}

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += lines
			fragments = appendFragment(fragments, "+", d.Text)
		case diffmatchpatch.DiffDelete:
			removed += lines
			fragments = appendFragment(fragments, "-", d.Text)
		}
	}

	summary := fmt.Sprintf("+%d/-%d lines", added, removed)
	if len(fragments) > 0 {
		summary += "\n" + strings.Join(fragments, "\n")
	}
	return summary
}

const (
	maxFragments   = 5
	fragmentLength = 80
)

func appendFragment(fragments []string, sign, text string) []string {
	if len(fragments) >= maxFragments {
		return fragments
	}

	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return fragments
	}
	if len(line) > fragmentLength {
		line = line[:fragmentLength-3] + "..."
	}
	return append(fragments, sign+" "+line)
}
