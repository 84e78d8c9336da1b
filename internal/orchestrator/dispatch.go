package orchestrator

import (
	"context"
	"sync"

	"codescout/internal/codebase"
	"codescout/internal/logging"
	"codescout/internal/thread"
)

// maxParallelTools bounds concurrent tool executions within one batch.
const maxParallelTools = 5

// dispatchTools answers every pending tool call of the trailing
// assistant message. Calls within a batch run in parallel but the
// resulting tool messages keep call order. Failures become error-text
// tool messages, never step failures.
func (o *Orchestrator) dispatchTools(ctx context.Context, state *thread.State) thread.Delta {
	calls := state.PendingToolCalls()
	if len(calls) == 0 {
		return thread.Delta{}
	}

	messages := make([]thread.Message, len(calls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallelTools)

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call thread.ToolCall) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				messages[i] = thread.NewToolMessage(call.ID, "Error: cancelled", &thread.ToolMeta{Tool: call.Name})
				return
			}

			result := o.registry.Dispatch(ctx, call.Name, call.Args)

			meta := &thread.ToolMeta{Tool: call.Name}
			if len(result.Files) > 0 {
				meta.Files = result.Files
			}
			if result.Lines > 0 {
				meta.Lines = result.Lines
			}

			messages[i] = thread.NewToolMessage(call.ID, result.Text(), meta)
		}(i, call)
	}

	wg.Wait()

	delta := thread.Delta{Append: messages}

	usedOpenFiles := false
	for _, call := range calls {
		if call.Name != "open_files" {
			continue
		}
		usedOpenFiles = true
		delta.FilesOpened = append(delta.FilesOpened, requestedPaths(call.Args)...)
	}

	if state.Exploring && usedOpenFiles {
		delta.AddRounds = 1
		logging.Debug("exploration round completed", "round", state.ExplorationRounds+1, "budget", o.cfg.Explorer.RoundBudget)
	}

	// The command is one-shot; dispatching consumes it.
	command := ""
	delta.SetCommand = &command

	return delta
}

// requestedPaths extracts the sanitized paths an open_files call asked
// for, whether or not they resolved.
func requestedPaths(args map[string]any) []string {
	raw, ok := args["file_paths"]
	if !ok {
		return nil
	}
	paths, ok := codebase.ParsePathList(raw)
	if !ok {
		return nil
	}

	var cleaned []string
	for _, p := range paths {
		if c := codebase.SanitizePath(p); c != "" && c != "/" {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}
