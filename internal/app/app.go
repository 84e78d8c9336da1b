package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"codescout/internal/client"
	"codescout/internal/codebase"
	"codescout/internal/config"
	"codescout/internal/kb"
	"codescout/internal/logging"
	"codescout/internal/orchestrator"
	"codescout/internal/thread"
	"codescout/internal/tools"
	"codescout/internal/ui"
)

// defaultThreadID names the single session thread of the interactive
// app. The checkpoint contract supports many; the TUI drives one.
const defaultThreadID = "default"

// App wires the collaborators together for one interactive session.
type App struct {
	cfg      *config.Config
	view     *codebase.View
	client   client.Client
	orch     *orchestrator.Orchestrator
	store    thread.Store
	kbStore  *kb.Store
	codebase string
}

// New builds the application over the given codebase path.
func New(ctx context.Context, cfg *config.Config, codebasePath string) (*App, error) {
	if cfg.Logging.File {
		if dir := config.GetConfigDir(); dir != "" {
			if err := logging.EnableFileLogging(dir, logging.Level(cfg.Logging.Level)); err != nil {
				fmt.Printf("warning: failed to enable file logging: %v\n", err)
			}
		}
	}

	view, err := codebase.New(codebasePath, cfg.Explorer.IncludePatterns)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewStructureTool(view)); err != nil {
		return nil, err
	}
	if err := registry.Register(tools.NewOpenFilesTool(view, cfg.Explorer.MaxFileChars)); err != nil {
		return nil, err
	}

	modelClient, err := client.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	kbStore := kb.NewStore(view.Root())
	knowledgeBase, err := kbStore.Load()
	if err != nil {
		logging.Warn("failed to load knowledge base", "error", err)
		knowledgeBase = ""
	}

	threadDir, err := thread.DefaultThreadDir()
	if err != nil {
		return nil, err
	}
	store, err := thread.NewFileStore(threadDir)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(modelClient, registry, kbStore, store, cfg, knowledgeBase)

	return &App{
		cfg:      cfg,
		view:     view,
		client:   modelClient,
		orch:     orch,
		store:    store,
		kbStore:  kbStore,
		codebase: view.Root(),
	}, nil
}

// Run starts the interactive TUI and blocks until it exits.
func (a *App) Run(ctx context.Context) error {
	defer a.client.Close()

	initial, err := a.store.Get(defaultThreadID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	step := func(stepCtx context.Context, input string) (*thread.State, error) {
		return a.orch.Step(stepCtx, defaultThreadID, input)
	}

	model := ui.New(a.cfg, initial, step, a.codebase, a.client.GetModel())
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Interim chunks go straight to the display; only folded results
	// reach the checkpoint.
	a.orch.SetOnText(func(text string) {
		program.Send(ui.StreamTextMsg{Text: text})
	})

	// External edits to the knowledge base re-seed future prompts and
	// surface a diff summary in the sidebar.
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	previousKB, _ := a.kbStore.Load()
	if err := a.kbStore.Watch(watchCtx, func(content string) {
		diff := kb.Diff(previousKB, content)
		previousKB = content
		a.orch.RefreshKnowledgeBase(content)
		program.Send(ui.KBChangedMsg{Diff: diff})
	}); err != nil {
		logging.Warn("knowledge base watcher unavailable", "error", err)
	}

	_, err = program.Run()
	return err
}
