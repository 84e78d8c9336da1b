package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"codescout/internal/client"
	"codescout/internal/config"
	"codescout/internal/kb"
	"codescout/internal/logging"
	"codescout/internal/thread"
	"codescout/internal/tools"
)

// stage identifies a node of the conversation state machine.
type stage int

const (
	stagePreprocess stage = iota
	stageExplore
	stageAgent
	stageTools
	stageSynthesize
	stageCompact
	stageDone
)

func (s stage) String() string {
	switch s {
	case stagePreprocess:
		return "preprocess"
	case stageExplore:
		return "start_exploration"
	case stageAgent:
		return "agent"
	case stageTools:
		return "tool_dispatch"
	case stageSynthesize:
		return "synthesize_kb"
	case stageCompact:
		return "summarizer"
	case stageDone:
		return "terminal"
	default:
		return "unknown"
	}
}

// commandStartExploration is the one-shot command recognized by
// preprocessing; it is consumed within the same step.
const commandStartExploration = "start_exploration"

// redactedPlaceholder replaces consumed file contents in history.
const redactedPlaceholder = "..."

// Orchestrator drives conversation turns through the state machine.
// One turn for one thread runs to completion before the next begins;
// concurrent steps against the same thread id queue on a per-thread
// lock.
type Orchestrator struct {
	client   client.Client
	registry *tools.Registry
	kbStore  *kb.Store
	store    thread.Store
	cfg      *config.Config

	onText func(text string)

	kbMu    sync.RWMutex
	kbCache string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an orchestrator. knowledgeBase is the document loaded at
// session start; it seeds the system prompt of fresh threads.
func New(c client.Client, registry *tools.Registry, kbStore *kb.Store, store thread.Store, cfg *config.Config, knowledgeBase string) *Orchestrator {
	return &Orchestrator{
		client:   c,
		registry: registry,
		kbStore:  kbStore,
		store:    store,
		cfg:      cfg,
		kbCache:  knowledgeBase,
		locks:    make(map[string]*sync.Mutex),
	}
}

// SetOnText installs a callback receiving interim streamed text chunks.
// Chunks are display-only; state commits hold the folded result.
func (o *Orchestrator) SetOnText(fn func(text string)) {
	o.onText = fn
}

// RefreshKnowledgeBase replaces the cached document, typically after an
// external edit of the knowledge base file.
func (o *Orchestrator) RefreshKnowledgeBase(content string) {
	o.kbMu.Lock()
	o.kbCache = content
	o.kbMu.Unlock()
}

func (o *Orchestrator) knowledgeBase() string {
	o.kbMu.RLock()
	defer o.kbMu.RUnlock()
	return o.kbCache
}

func (o *Orchestrator) threadLock(threadID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[threadID] = lock
	}
	return lock
}

// Step processes one user turn to completion: a bounded sequence of
// stage transitions ending in a checkpointed state. On a model-call
// error the state accumulated so far is still committed and the error
// is returned.
func (o *Orchestrator) Step(ctx context.Context, threadID, input string) (*thread.State, error) {
	lock := o.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	state, err := o.store.Get(threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	current := stagePreprocess
	transitions := 0
	var stepErr error

	for current != stageDone {
		transitions++
		if transitions > o.cfg.Explorer.MaxTransitions {
			stepErr = fmt.Errorf("step exceeded %d stage transitions", o.cfg.Explorer.MaxTransitions)
			break
		}

		logging.Debug("entering stage", "thread", threadID, "stage", current.String(), "transition", transitions)

		switch current {
		case stagePreprocess:
			state.Apply(o.preprocess(state, input))
			if state.Command == commandStartExploration {
				current = stageExplore
			} else {
				current = stageAgent
			}

		case stageExplore:
			state.Apply(o.startExploration(state))
			current = stageAgent

		case stageAgent:
			delta, err := o.agent(ctx, state)
			if err != nil {
				stepErr = err
				break
			}
			state.Apply(delta)
			current = o.routeAfterAgent(state)

		case stageTools:
			state.Apply(o.dispatchTools(ctx, state))
			if state.Exploring && state.ExplorationRounds > o.cfg.Explorer.RoundBudget {
				current = stageSynthesize
			} else {
				current = stageAgent
			}

		case stageSynthesize:
			delta, err := o.synthesize(ctx, state)
			if err != nil {
				stepErr = err
				break
			}
			state.Apply(delta)
			current = stageDone

		case stageCompact:
			delta, err := o.compact(ctx, state)
			if err != nil {
				stepErr = err
				break
			}
			state.Apply(delta)
			current = stageDone
		}

		if stepErr != nil {
			break
		}
	}

	if putErr := o.store.Put(threadID, state); putErr != nil {
		if stepErr == nil {
			stepErr = fmt.Errorf("failed to checkpoint thread %s: %w", threadID, putErr)
		} else {
			logging.Error("failed to checkpoint thread after step error", "thread", threadID, "error", putErr)
		}
	}

	return state, stepErr
}

// preprocess seeds the system message on first contact, appends the
// user message and recognizes the knowledge base command. An existing
// system message is refreshed in place when the knowledge base changed
// since it was seeded.
func (o *Orchestrator) preprocess(state *thread.State, input string) thread.Delta {
	var delta thread.Delta

	prompt := systemPrompt(o.knowledgeBase())
	if len(state.Messages) == 0 {
		delta.Append = append(delta.Append, thread.NewMessage(thread.RoleSystem, prompt))
	} else if first := state.Messages[0]; first.Role == thread.RoleSystem && first.Text != prompt {
		delta.Redact = map[string]string{first.ID: prompt}
	}

	if input != "" {
		delta.Append = append(delta.Append, thread.NewMessage(thread.RoleUser, input))
	}

	command := ""
	normalized := strings.ToLower(strings.TrimSpace(input))
	if strings.Contains(normalized, "generate kb") || strings.Contains(normalized, "generate knowledge base") {
		command = commandStartExploration
	}
	delta.SetCommand = &command

	return delta
}

// startExploration enters knowledge-base-building mode with the round
// counter back at zero.
func (o *Orchestrator) startExploration(state *thread.State) thread.Delta {
	exploring := true

	logging.Info("starting knowledge base exploration", "round_budget", o.cfg.Explorer.RoundBudget)

	return thread.Delta{
		Append:       []thread.Message{thread.NewMessage(thread.RoleUser, explorationInstruction(o.cfg.Explorer.FilesPerRound))},
		AddRounds:    -state.ExplorationRounds,
		SetExploring: &exploring,
	}
}

// routeAfterAgent decides where to go once the model has answered.
// Tool-call presence always wins; exploration forces another agent
// turn; long histories compact; otherwise the turn ends.
func (o *Orchestrator) routeAfterAgent(state *thread.State) stage {
	if len(state.PendingToolCalls()) > 0 {
		return stageTools
	}
	if state.Exploring {
		return stageAgent
	}
	if len(state.Messages) > o.cfg.Explorer.CompactAfter {
		return stageCompact
	}
	return stageDone
}

// agent invokes the model with the full history plus tool schemas and
// folds the streamed response into one assistant message. The trailing
// open_files tool contents consumed by this call are redacted in the
// same delta, after their one-time visibility.
func (o *Orchestrator) agent(ctx context.Context, state *thread.State) (thread.Delta, error) {
	if sys := firstSystemText(state); sys != "" {
		o.client.SetSystemInstruction(sys)
	}
	o.client.SetTools([]*genai.Tool{{FunctionDeclarations: o.registry.Declarations()}})

	toolTail := trailingToolMessages(state)

	var stream *client.StreamingResponse
	var err error

	if len(toolTail) > 0 {
		history := o.buildHistory(state.Messages[:len(state.Messages)-len(toolTail)], state.RunningSummary)
		stream, err = o.client.SendFunctionResponse(ctx, history, functionResponses(toolTail))
	} else {
		messages := state.Messages
		text := ""
		if last := state.LastMessage(); last != nil && last.Role == thread.RoleUser {
			text = last.Text
			messages = messages[:len(messages)-1]
		}
		if text == "" {
			text = "Continue."
		}
		history := o.buildHistory(messages, state.RunningSummary)
		stream, err = o.client.SendMessageWithHistory(ctx, history, text)
	}
	if err != nil {
		return thread.Delta{}, fmt.Errorf("model call failed: %w", err)
	}

	resp, err := o.collect(stream)
	if err != nil {
		return thread.Delta{}, fmt.Errorf("model response failed: %w", err)
	}

	assistant := thread.NewMessage(thread.RoleAssistant, resp.Text)
	for _, fc := range resp.FunctionCalls {
		id := fc.ID
		if id == "" {
			id = uuid.NewString()
		}
		assistant.ToolCalls = append(assistant.ToolCalls, thread.ToolCall{
			ID:   id,
			Name: fc.Name,
			Args: fc.Args,
		})
	}

	delta := thread.Delta{Append: []thread.Message{assistant}}

	// The model has now seen the file contents once; collapse them.
	for _, m := range toolTail {
		if m.Meta != nil && m.Meta.Tool == "open_files" && m.Text != redactedPlaceholder {
			if delta.Redact == nil {
				delta.Redact = make(map[string]string)
			}
			delta.Redact[m.ID] = redactedPlaceholder
		}
	}

	if len(assistant.ToolCalls) == 0 && state.Exploring {
		delta.Append = append(delta.Append, thread.NewMessage(thread.RoleUser, "Continue"))
	}

	return delta, nil
}

// synthesize generates the knowledge base document in one model call
// without tool schemas, persists it and exits exploration mode. A
// failed save is logged and the in-memory copy stays authoritative.
func (o *Orchestrator) synthesize(ctx context.Context, state *thread.State) (thread.Delta, error) {
	o.client.SetTools(nil)

	unique := uniqueCount(state.AllFilesOpened)
	prompt := synthesisPrompt(unique, state.ExplorationRounds, state.KnowledgeBase)

	history := o.buildHistory(state.Messages, state.RunningSummary)
	stream, err := o.client.SendMessageWithHistory(ctx, history, prompt)
	if err != nil {
		return thread.Delta{}, fmt.Errorf("knowledge base synthesis failed: %w", err)
	}

	// Tool calls in the response are tolerated and ignored.
	resp, err := o.collect(stream)
	if err != nil {
		return thread.Delta{}, fmt.Errorf("knowledge base synthesis failed: %w", err)
	}

	document := resp.Text
	if err := o.kbStore.Save(document); err != nil {
		logging.Error("failed to persist knowledge base", "error", err)
	}
	o.RefreshKnowledgeBase(document)

	exploring := false
	command := ""
	confirmation := fmt.Sprintf("Knowledge base generated after %d rounds of exploration (%d files examined).",
		state.ExplorationRounds, unique)

	logging.Info("knowledge base synthesized", "rounds", state.ExplorationRounds, "unique_files", unique, "bytes", len(document))

	return thread.Delta{
		Append:           []thread.Message{thread.NewMessage(thread.RoleAssistant, confirmation)},
		SetExploring:     &exploring,
		SetKnowledgeBase: &document,
		SetCommand:       &command,
	}, nil
}

// compact folds all but the most recent keep-count messages into the
// running summary and tombstones them. A leading system message is
// never folded.
func (o *Orchestrator) compact(ctx context.Context, state *thread.State) (thread.Delta, error) {
	keep := o.cfg.Explorer.KeepRecent
	if len(state.Messages) <= keep {
		return thread.Delta{}, nil
	}

	fold := state.Messages[:len(state.Messages)-keep]
	if len(fold) > 0 && fold[0].Role == thread.RoleSystem {
		fold = fold[1:]
	}
	if len(fold) == 0 {
		return thread.Delta{}, nil
	}

	transcript := formatMessages(fold)
	if state.RunningSummary != "" {
		transcript = summaryContext(state.RunningSummary) + "\n\n" + transcript
	}

	o.client.SetTools(nil)
	stream, err := o.client.SendMessageWithHistory(ctx, nil, fmt.Sprintf(summarizationPrompt, transcript))
	if err != nil {
		return thread.Delta{}, fmt.Errorf("summarization request failed: %w", err)
	}

	resp, err := o.collect(stream)
	if err != nil {
		return thread.Delta{}, fmt.Errorf("summarization response failed: %w", err)
	}

	remove := make([]string, 0, len(fold))
	for _, m := range fold {
		remove = append(remove, m.ID)
	}

	summary := resp.Text
	logging.Info("conversation compacted", "folded", len(remove), "kept", keep)

	return thread.Delta{
		Remove:     remove,
		SetSummary: &summary,
	}, nil
}

// collect folds the stream into a single response, forwarding interim
// text chunks to the display callback.
func (o *Orchestrator) collect(sr *client.StreamingResponse) (*client.Response, error) {
	resp := &client.Response{}

	for chunk := range sr.Chunks {
		if chunk.Error != nil {
			return nil, chunk.Error
		}
		if chunk.Text != "" && o.onText != nil {
			o.onText(chunk.Text)
		}
		resp.Text += chunk.Text
		resp.FunctionCalls = append(resp.FunctionCalls, chunk.FunctionCalls...)
		if chunk.Done {
			resp.FinishReason = chunk.FinishReason
		}
	}

	return resp, nil
}

// buildHistory converts messages to wire contents, injecting the
// running summary as a leading context message when present.
func (o *Orchestrator) buildHistory(messages []thread.Message, runningSummary string) []*genai.Content {
	contents := thread.ToContents(messages)
	if runningSummary == "" {
		return contents
	}

	injected := make([]*genai.Content, 0, len(contents)+1)
	injected = append(injected, genai.NewContentFromText(summaryContext(runningSummary), genai.RoleUser))
	return append(injected, contents...)
}

// firstSystemText returns the seeded system message text, if any.
func firstSystemText(state *thread.State) string {
	for _, m := range state.Messages {
		if m.Role == thread.RoleSystem {
			return m.Text
		}
	}
	return ""
}

// trailingToolMessages returns the unbroken run of tool messages at the
// end of the history.
func trailingToolMessages(state *thread.State) []thread.Message {
	msgs := state.Messages
	i := len(msgs)
	for i > 0 && msgs[i-1].Role == thread.RoleTool {
		i--
	}
	return msgs[i:]
}

// functionResponses converts tool messages to wire function responses.
func functionResponses(toolMsgs []thread.Message) []*genai.FunctionResponse {
	results := make([]*genai.FunctionResponse, 0, len(toolMsgs))
	for _, m := range toolMsgs {
		name := ""
		if m.Meta != nil {
			name = m.Meta.Tool
		}
		results = append(results, &genai.FunctionResponse{
			ID:   m.CallID,
			Name: name,
			Response: map[string]any{
				"content": m.Text,
			},
		})
	}
	return results
}

func uniqueCount(paths []string) int {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		seen[p] = true
	}
	return len(seen)
}
