package thread

import (
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the assistant.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolMeta carries display metadata for a tool result message.
type ToolMeta struct {
	Tool  string   `json:"tool"`
	Files []string `json:"files,omitempty"`
	Lines int      `json:"lines,omitempty"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text,omitempty"`

	// ToolCalls is set on assistant messages that request tool use.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// CallID links a tool message back to the call it answers.
	CallID string `json:"call_id,omitempty"`

	// Meta is set on tool messages.
	Meta *ToolMeta `json:"meta,omitempty"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
	}
}

// NewToolMessage creates a tool result message answering the given call.
func NewToolMessage(callID, text string, meta *ToolMeta) Message {
	return Message{
		ID:     uuid.NewString(),
		Role:   RoleTool,
		Text:   text,
		CallID: callID,
		Meta:   meta,
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc
			if tc.Args != nil {
				args := make(map[string]any, len(tc.Args))
				for k, v := range tc.Args {
					args[k] = v
				}
				out.ToolCalls[i].Args = args
			}
		}
	}
	if m.Meta != nil {
		meta := *m.Meta
		meta.Files = append([]string(nil), m.Meta.Files...)
		out.Meta = &meta
	}
	return out
}

// ToContents converts messages to the wire shape expected by the client.
// System messages are skipped; they travel via the system instruction
// parameter instead. Tool messages become user contents carrying a
// function response part.
func ToContents(messages []Message) []*genai.Content {
	var contents []*genai.Content

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			continue

		case RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))

		case RoleAssistant:
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: tc.Args,
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(" "))
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: parts,
			})

		case RoleTool:
			name := ""
			if m.Meta != nil {
				name = m.Meta.Tool
			}
			part := genai.NewPartFromFunctionResponse(name, map[string]any{
				"content": m.Text,
			})
			part.FunctionResponse.ID = m.CallID
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{part},
			})
		}
	}

	return contents
}
