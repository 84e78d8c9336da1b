package thread

// State is the durable conversation state of one thread. All mutation
// goes through Apply so that every change is expressible as a Delta.
type State struct {
	Messages          []Message `json:"messages"`
	AllFilesOpened    []string  `json:"all_files_opened"`
	ExplorationRounds int       `json:"exploration_rounds"`
	Exploring         bool      `json:"exploring"`
	KnowledgeBase     string    `json:"knowledge_base"`
	RunningSummary    string    `json:"running_summary"`

	// Command is the recognized command of the current turn. It is
	// consumed within a single step and never persisted.
	Command string `json:"-"`
}

// NewState returns an empty conversation state.
func NewState() *State {
	return &State{}
}

// Delta is a batch of state changes produced by one stage.
type Delta struct {
	// Append adds messages at the end of the history.
	Append []Message

	// Remove tombstones messages by id.
	Remove []string

	// Redact replaces message text by id, keeping the message in place.
	Redact map[string]string

	// FilesOpened extends the append-only opened-files log.
	FilesOpened []string

	// AddRounds increments the exploration round counter.
	AddRounds int

	SetExploring     *bool
	SetKnowledgeBase *string
	SetSummary       *string
	SetCommand       *string
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.Append) == 0 && len(d.Remove) == 0 && len(d.Redact) == 0 &&
		len(d.FilesOpened) == 0 && d.AddRounds == 0 &&
		d.SetExploring == nil && d.SetKnowledgeBase == nil &&
		d.SetSummary == nil && d.SetCommand == nil
}

// Apply folds a delta into the state. Removals and redactions are
// applied before appends so a delta cannot affect its own messages.
func (s *State) Apply(d Delta) {
	if len(d.Remove) > 0 {
		removed := make(map[string]bool, len(d.Remove))
		for _, id := range d.Remove {
			removed[id] = true
		}
		kept := s.Messages[:0]
		for _, m := range s.Messages {
			if !removed[m.ID] {
				kept = append(kept, m)
			}
		}
		s.Messages = kept
	}

	if len(d.Redact) > 0 {
		for i := range s.Messages {
			if text, ok := d.Redact[s.Messages[i].ID]; ok {
				s.Messages[i].Text = text
			}
		}
	}

	s.Messages = append(s.Messages, d.Append...)
	s.AllFilesOpened = append(s.AllFilesOpened, d.FilesOpened...)
	s.ExplorationRounds += d.AddRounds

	if d.SetExploring != nil {
		s.Exploring = *d.SetExploring
	}
	if d.SetKnowledgeBase != nil {
		s.KnowledgeBase = *d.SetKnowledgeBase
	}
	if d.SetSummary != nil {
		s.RunningSummary = *d.SetSummary
	}
	if d.SetCommand != nil {
		s.Command = *d.SetCommand
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := &State{
		AllFilesOpened:    append([]string(nil), s.AllFilesOpened...),
		ExplorationRounds: s.ExplorationRounds,
		Exploring:         s.Exploring,
		KnowledgeBase:     s.KnowledgeBase,
		RunningSummary:    s.RunningSummary,
		Command:           s.Command,
	}
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// LastMessage returns the most recent message, or nil when empty.
func (s *State) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// PendingToolCalls returns the tool calls of the trailing assistant
// message that have not been answered yet.
func (s *State) PendingToolCalls() []ToolCall {
	last := s.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return nil
	}
	return last.ToolCalls
}
