package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"codescout/internal/config"
	"codescout/internal/logging"
	"codescout/internal/thread"
)

// StepFunc runs one conversation turn and returns the new state.
type StepFunc func(ctx context.Context, input string) (*thread.State, error)

// StreamTextMsg carries an interim streamed text chunk for display.
// Only the committed state is authoritative.
type StreamTextMsg struct {
	Text string
}

// KBChangedMsg reports an external knowledge base update with a diff
// summary for the sidebar.
type KBChangedMsg struct {
	Diff string
}

// stepDoneMsg carries the result of a finished turn.
type stepDoneMsg struct {
	state *thread.State
	err   error
}

// Model is the chat TUI.
type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	styles   Styles
	renderer *glamour.TermRenderer

	step        StepFunc
	state       *thread.State
	roundBudget int
	showSidebar bool
	codebase    string
	modelName   string

	busy      bool
	streamBuf string
	kbDiff    string
	err       error

	width  int
	height int
	ready  bool
}

// New creates the TUI model. initial is the checkpointed state the
// session resumes from.
func New(cfg *config.Config, initial *thread.State, step StepFunc, codebasePath, modelName string) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the codebase, or type \"generate kb\"..."
	ta.Focus()
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	style := "dark"
	if cfg.UI.Theme == "light" {
		style = "light"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		logging.Warn("failed to create markdown renderer", "error", err)
	}

	return &Model{
		textarea:    ta,
		spinner:     sp,
		styles:      DefaultStyles(cfg.UI.Theme),
		renderer:    renderer,
		step:        step,
		state:       initial,
		roundBudget: cfg.Explorer.RoundBudget,
		showSidebar: cfg.UI.ShowSidebar,
		codebase:    codebasePath,
		modelName:   modelName,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshTranscript()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.busy = true
			m.streamBuf = ""
			m.err = nil
			return m, tea.Batch(m.runStep(input), m.spinner.Tick)

		case tea.KeyCtrlY:
			if text := m.lastAssistantText(); text != "" {
				if err := clipboard.WriteAll(text); err != nil {
					logging.Warn("clipboard copy failed", "error", err)
				}
			}
			return m, nil

		case tea.KeyCtrlB:
			m.showSidebar = !m.showSidebar
			m.layout()
			m.refreshTranscript()
			return m, nil

		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case StreamTextMsg:
		m.streamBuf += msg.Text
		m.refreshTranscript()

	case KBChangedMsg:
		m.kbDiff = msg.Diff

	case stepDoneMsg:
		m.busy = false
		m.streamBuf = ""
		if msg.state != nil {
			m.state = msg.state
		}
		m.err = msg.err
		m.refreshTranscript()
		m.viewport.GotoBottom()
	}

	if !m.busy {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) runStep(input string) tea.Cmd {
	return func() tea.Msg {
		state, err := m.step(context.Background(), input)
		return stepDoneMsg{state: state, err: err}
	}
}

func (m *Model) layout() {
	sidebarWidth := 0
	if m.showSidebar {
		sidebarWidth = 32
	}

	mainWidth := m.width - sidebarWidth
	if mainWidth < 20 {
		mainWidth = m.width
	}

	vpHeight := m.height - m.textarea.Height() - 4
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport = viewport.New(mainWidth, vpHeight)
	m.textarea.SetWidth(mainWidth - 2)
}

// refreshTranscript re-renders the conversation into the viewport.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}

	var b strings.Builder

	if m.state != nil {
		for _, msg := range m.state.Messages {
			switch msg.Role {
			case thread.RoleUser:
				if msg.Text == "Continue" {
					continue
				}
				b.WriteString(m.styles.UserLabel.Render("You") + "\n")
				b.WriteString(msg.Text + "\n\n")

			case thread.RoleAssistant:
				if msg.Text != "" {
					b.WriteString(m.styles.BotLabel.Render("Assistant") + "\n")
					b.WriteString(m.renderMarkdown(msg.Text) + "\n")
				}
				for _, tc := range msg.ToolCalls {
					b.WriteString(m.styles.ToolLine.Render("→ "+tc.Name) + "\n")
				}

			case thread.RoleTool:
				b.WriteString(m.styles.ToolLine.Render(toolPreview(msg)) + "\n\n")
			}
		}
	}

	if m.streamBuf != "" {
		b.WriteString(m.styles.BotLabel.Render("Assistant") + "\n")
		b.WriteString(m.streamBuf + "\n")
	}

	if m.err != nil {
		b.WriteString(m.styles.ErrorLine.Render("error: "+m.err.Error()) + "\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// toolPreview renders a one-line summary of a tool result from its
// metadata.
func toolPreview(msg thread.Message) string {
	if msg.Meta == nil {
		return "⚙ tool"
	}
	switch msg.Meta.Tool {
	case "open_files":
		if n := len(msg.Meta.Files); n > 0 {
			return fmt.Sprintf("⚙ open_files: %s", strings.Join(msg.Meta.Files, ", "))
		}
		return "⚙ open_files: no valid files"
	case "get_file_structure":
		return fmt.Sprintf("⚙ get_file_structure: %d lines", msg.Meta.Lines)
	default:
		return "⚙ " + msg.Meta.Tool
	}
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) lastAssistantText() string {
	if m.state == nil {
		return ""
	}
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		msg := m.state.Messages[i]
		if msg.Role == thread.RoleAssistant && msg.Text != "" {
			return msg.Text
		}
	}
	return ""
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.styles.Header.Render(fmt.Sprintf("codescout · %s · %s", m.codebase, m.modelName))

	main := m.viewport.View()
	if m.showSidebar {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar(m.viewport.Height))
	}

	status := "enter: send · ctrl+y: copy reply · ctrl+b: sidebar · ctrl+c: quit"
	if m.busy {
		status = m.spinner.View() + " thinking..."
	}

	return strings.Join([]string{
		header,
		main,
		m.styles.Input.Render(m.textarea.View()),
		m.styles.StatusBar.Render(status),
	}, "\n")
}
