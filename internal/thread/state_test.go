package thread

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestApplyAppend(t *testing.T) {
	s := NewState()
	m1 := NewMessage(RoleUser, "hello")
	m2 := NewMessage(RoleAssistant, "hi")

	s.Apply(Delta{Append: []Message{m1}})
	s.Apply(Delta{Append: []Message{m2}})

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "hello", s.Messages[0].Text)
	assert.Equal(t, "hi", s.Messages[1].Text)
}

func TestApplyRemoveTombstonesById(t *testing.T) {
	s := NewState()
	m1 := NewMessage(RoleUser, "one")
	m2 := NewMessage(RoleAssistant, "two")
	m3 := NewMessage(RoleUser, "three")
	s.Apply(Delta{Append: []Message{m1, m2, m3}})

	s.Apply(Delta{Remove: []string{m1.ID, m3.ID}})

	require.Len(t, s.Messages, 1)
	assert.Equal(t, m2.ID, s.Messages[0].ID)
}

func TestApplyRedactReplacesTextInPlace(t *testing.T) {
	s := NewState()
	m := NewToolMessage("call_1", "big file contents", &ToolMeta{Tool: "open_files"})
	s.Apply(Delta{Append: []Message{m}})

	s.Apply(Delta{Redact: map[string]string{m.ID: "..."}})

	require.Len(t, s.Messages, 1)
	assert.Equal(t, "...", s.Messages[0].Text)
	assert.Equal(t, "call_1", s.Messages[0].CallID)
}

func TestApplyRemovalsBeforeAppends(t *testing.T) {
	s := NewState()
	old := NewMessage(RoleUser, "old")
	s.Apply(Delta{Append: []Message{old}})

	fresh := NewMessage(RoleUser, "fresh")
	s.Apply(Delta{Remove: []string{old.ID}, Append: []Message{fresh}})

	require.Len(t, s.Messages, 1)
	assert.Equal(t, "fresh", s.Messages[0].Text)
}

func TestAllFilesOpenedKeepsOrderAndDuplicates(t *testing.T) {
	s := NewState()
	s.Apply(Delta{FilesOpened: []string{"a.go", "b.go"}})
	s.Apply(Delta{FilesOpened: []string{"a.go"}})

	assert.Equal(t, []string{"a.go", "b.go", "a.go"}, s.AllFilesOpened)
}

func TestApplyScalarSetters(t *testing.T) {
	s := NewState()

	exploring := true
	kb := "# Knowledge Base"
	summary := "we talked"
	cmd := "generate_kb"
	s.Apply(Delta{
		AddRounds:        2,
		SetExploring:     &exploring,
		SetKnowledgeBase: &kb,
		SetSummary:       &summary,
		SetCommand:       &cmd,
	})

	assert.Equal(t, 2, s.ExplorationRounds)
	assert.True(t, s.Exploring)
	assert.Equal(t, kb, s.KnowledgeBase)
	assert.Equal(t, summary, s.RunningSummary)
	assert.Equal(t, cmd, s.Command)

	off := false
	s.Apply(Delta{SetExploring: &off})
	assert.False(t, s.Exploring)
}

func TestDeltaEmpty(t *testing.T) {
	assert.True(t, Delta{}.Empty())

	exploring := true
	assert.False(t, Delta{SetExploring: &exploring}.Empty())
	assert.False(t, Delta{AddRounds: 1}.Empty())
	assert.False(t, Delta{Append: []Message{NewMessage(RoleUser, "hi")}}.Empty())
}

func TestCloneIsolatesMutation(t *testing.T) {
	s := NewState()
	m := NewMessage(RoleAssistant, "orig")
	m.ToolCalls = []ToolCall{{ID: "c1", Name: "open_files", Args: map[string]any{"k": "v"}}}
	s.Apply(Delta{Append: []Message{m}, FilesOpened: []string{"a.go"}})

	clone := s.Clone()
	clone.Messages[0].Text = "mutated"
	clone.Messages[0].ToolCalls[0].Args["k"] = "changed"
	clone.AllFilesOpened[0] = "z.go"

	assert.Equal(t, "orig", s.Messages[0].Text)
	assert.Equal(t, "v", s.Messages[0].ToolCalls[0].Args["k"])
	assert.Equal(t, "a.go", s.AllFilesOpened[0])
}

func TestCommandNotSerialized(t *testing.T) {
	s := NewState()
	s.Command = "generate_kb"

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "generate_kb")

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Empty(t, back.Command)
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := NewState()
	m := NewMessage(RoleAssistant, "calling")
	m.ToolCalls = []ToolCall{{ID: "c1", Name: "open_files", Args: map[string]any{"file_paths": []any{"a.go"}}}}
	tool := NewToolMessage("c1", "a.go:\ncontents", &ToolMeta{Tool: "open_files", Files: []string{"a.go"}})
	s.Apply(Delta{
		Append:      []Message{NewMessage(RoleUser, "hi"), m, tool},
		FilesOpened: []string{"a.go"},
		AddRounds:   1,
	})
	s.KnowledgeBase = "kb"

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, s.ExplorationRounds, back.ExplorationRounds)
	assert.Equal(t, s.AllFilesOpened, back.AllFilesOpened)
	require.Len(t, back.Messages, 3)
	assert.Equal(t, "open_files", back.Messages[1].ToolCalls[0].Name)
	assert.Equal(t, "c1", back.Messages[2].CallID)
	assert.Equal(t, []string{"a.go"}, back.Messages[2].Meta.Files)
}

func TestPendingToolCalls(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.PendingToolCalls())

	m := NewMessage(RoleAssistant, "")
	m.ToolCalls = []ToolCall{{ID: "c1", Name: "get_file_structure"}}
	s.Apply(Delta{Append: []Message{m}})
	require.Len(t, s.PendingToolCalls(), 1)

	s.Apply(Delta{Append: []Message{NewToolMessage("c1", "out", nil)}})
	assert.Nil(t, s.PendingToolCalls())
}

func TestToContents(t *testing.T) {
	sys := NewMessage(RoleSystem, "instructions")
	user := NewMessage(RoleUser, "hello")
	asst := NewMessage(RoleAssistant, "let me look")
	asst.ToolCalls = []ToolCall{{ID: "c1", Name: "open_files", Args: map[string]any{"file_paths": []any{"a.go"}}}}
	tool := NewToolMessage("c1", "a.go:\ncontents", &ToolMeta{Tool: "open_files", Files: []string{"a.go"}})

	contents := ToContents([]Message{sys, user, asst, tool})
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "hello", contents[0].Parts[0].Text)

	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "let me look", contents[1].Parts[0].Text)
	require.NotNil(t, contents[1].Parts[1].FunctionCall)
	assert.Equal(t, "open_files", contents[1].Parts[1].FunctionCall.Name)

	assert.Equal(t, genai.RoleUser, contents[2].Role)
	fr := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "open_files", fr.Name)
	assert.Equal(t, "c1", fr.ID)
	assert.Equal(t, "a.go:\ncontents", fr.Response["content"])
}
