package ui

import (
	"fmt"
	"sort"
	"strings"
)

// renderSidebar builds the exploration sidebar: knowledge base status,
// round progress while exploring, and the files examined so far grouped
// by directory.
func (m *Model) renderSidebar(height int) string {
	var b strings.Builder

	b.WriteString(m.styles.SideTitle.Render("Knowledge Base"))
	b.WriteString("\n")

	switch {
	case m.state != nil && m.state.Exploring:
		b.WriteString(fmt.Sprintf("exploring: round %d/%d\n", m.state.ExplorationRounds, m.roundBudget))
	case m.state != nil && m.state.KnowledgeBase != "":
		b.WriteString("generated\n")
	default:
		b.WriteString("not generated\n")
	}

	if m.kbDiff != "" {
		b.WriteString(m.styles.SideFile.Render("last update: "+firstLine(m.kbDiff)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.SideTitle.Render("Files Explored"))
	b.WriteString("\n")

	if m.state == nil || len(m.state.AllFilesOpened) == 0 {
		b.WriteString(m.styles.SideFile.Render("none yet"))
	} else {
		b.WriteString(m.renderFileGroups(height - 8))
	}

	return m.styles.Sidebar.Height(height).Render(b.String())
}

// renderFileGroups lists distinct opened files grouped by directory.
func (m *Model) renderFileGroups(maxLines int) string {
	groups := make(map[string][]string)
	seen := make(map[string]bool)

	for _, f := range m.state.AllFilesOpened {
		if seen[f] {
			continue
		}
		seen[f] = true

		dir := "."
		name := f
		if i := strings.LastIndex(f, "/"); i >= 0 {
			dir = f[:i]
			name = f[i+1:]
		}
		groups[dir] = append(groups[dir], name)
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var b strings.Builder
	lines := 0
	for _, dir := range dirs {
		if lines >= maxLines {
			b.WriteString(m.styles.SideFile.Render("..."))
			break
		}
		b.WriteString(m.styles.SideDir.Render(dir) + "\n")
		lines++

		sort.Strings(groups[dir])
		for _, name := range groups[dir] {
			if lines >= maxLines {
				break
			}
			b.WriteString(m.styles.SideFile.Render("  "+name) + "\n")
			lines++
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
