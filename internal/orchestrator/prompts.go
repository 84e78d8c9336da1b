package orchestrator

import (
	"fmt"
	"strings"

	"codescout/internal/thread"
)

const systemPromptTemplate = `You are a technical assistant specialized in analyzing and explaining codebases through EVIDENCE-BASED exploration. Your expertise lies in navigating, understanding, and explaining code through direct observation rather than speculation.

## CORE PRINCIPLES
1. EVIDENCE-BASED ANALYSIS: Never speculate about code that you haven't seen. Base all explanations on actual code you've examined.
2. CLEAR COMMUNICATION: Provide explanations that match the user's technical level.
3. ACTIONABLE INSIGHTS: Focus on explaining how things work, potential issues, and relationships between components.

## TOOL USAGE GUIDELINES

### Primary Tools:
- get_file_structure: ALWAYS use this FIRST to map the available files.
- open_files: Read file contents.

### Effective Tool Usage:
1. Start EVERY exploration with get_file_structure to understand available files
2. When opening multiple files, prioritize by relevance to the user's query
3. For large codebases, explore systematically:
   - Main entry points first (app.py, index.js, main.*, etc.)
   - Then configuration files (package.json, requirements.txt, etc.)
   - Then follow the execution flow

### File Selection Strategy:
- ONLY reference files confirmed to exist in the file structure output
- When uncertain which files to examine, explain your thought process to the user

## Current Knowledge Base:
Here is the knowledge base generated last time.
%s

Remember to be conversational while maintaining technical precision. Adapt your explanation depth to match the user's apparent technical expertise.`

// systemPrompt builds the seeded system message, embedding the loaded
// knowledge base.
func systemPrompt(knowledgeBase string) string {
	if strings.TrimSpace(knowledgeBase) == "" {
		knowledgeBase = "None"
	}
	return fmt.Sprintf(systemPromptTemplate, knowledgeBase)
}

const explorationInstructionTemplate = `I need you to perform iterative rounds of code exploration to build a comprehensive knowledge base.
For each round:
1. Choose important files to explore based on what you've learned so far
2. Use the open_files tool to examine their content (up to %d files per round)
3. Summarize what you've learned against the existing knowledge base and name what to explore next

Don't stop early. Keep exploring round after round until you are told to generate the knowledge base.`

func explorationInstruction(filesPerRound int) string {
	return fmt.Sprintf(explorationInstructionTemplate, filesPerRound)
}

const synthesisPromptTemplate = `Based on your exploration of %d files across %d rounds, generate a comprehensive knowledge base document covering:

1. Exploration summary: what was examined and how thoroughly
2. Overall architecture and component relationships
3. Main workflows and control flows
4. Core business logic and key responsibilities
5. Data model: important types, structures and their meaning
6. Important APIs and integration points
7. Knowledge gaps: areas not yet explored or understood

Structure your response as a well-organized technical document with clear sections.

%s`

// synthesisPrompt builds the one-shot knowledge base generation request.
// The previous document, when present, is embedded so the model refines
// rather than restarts.
func synthesisPrompt(uniqueFiles, rounds int, previousKB string) string {
	var prior string
	if strings.TrimSpace(previousKB) != "" {
		prior = "Here is the previous knowledge base document. Refine and extend it with what you learned:\n\n" + previousKB
	}
	return strings.TrimSpace(fmt.Sprintf(synthesisPromptTemplate, uniqueFiles, rounds, prior))
}

const summarizationPrompt = `Summarize this codebase exploration conversation for context preservation.

PRIORITIES (highest to lowest):
1. Specific file paths examined and what they contain
2. Architectural findings and component relationships
3. Dependencies discovered between components
4. User questions asked and the answers given
5. Unresolved issues or next steps

DO NOT include:
- Verbose tool output or raw file contents
- UI confirmations or acknowledgments
- Repeated reads of the same content

Format: Use bullet points grouped by topic. Start each group with the relevant file path.

CONVERSATION TO SUMMARIZE:
%s

SUMMARY:`

// summaryContext wraps a running summary for injection into model input.
func summaryContext(summary string) string {
	return fmt.Sprintf("[Previous conversation summary]\n%s\n[End of summary]", summary)
}

// formatMessages renders messages as a plain transcript for the
// summarization prompt. Long entries keep their head and tail.
func formatMessages(messages []thread.Message) string {
	const maxEntry = 2000

	var b strings.Builder
	for _, m := range messages {
		text := m.Text
		if len(text) > maxEntry {
			text = text[:maxEntry/2] + "\n[...truncated...]\n" + text[len(text)-maxEntry/2:]
		}

		switch m.Role {
		case thread.RoleUser:
			fmt.Fprintf(&b, "User: %s\n\n", text)
		case thread.RoleAssistant:
			if len(m.ToolCalls) > 0 {
				var names []string
				for _, tc := range m.ToolCalls {
					names = append(names, tc.Name)
				}
				fmt.Fprintf(&b, "Assistant: %s [called: %s]\n\n", text, strings.Join(names, ", "))
			} else {
				fmt.Fprintf(&b, "Assistant: %s\n\n", text)
			}
		case thread.RoleTool:
			name := "tool"
			if m.Meta != nil && m.Meta.Tool != "" {
				name = m.Meta.Tool
			}
			fmt.Fprintf(&b, "Tool (%s): %s\n\n", name, text)
		}
	}
	return strings.TrimSpace(b.String())
}
