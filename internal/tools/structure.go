package tools

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"codescout/internal/codebase"
)

// StructureTool returns the grouped file listing of the codebase.
type StructureTool struct {
	view *codebase.View
}

// NewStructureTool creates a new StructureTool over the given view.
func NewStructureTool(view *codebase.View) *StructureTool {
	return &StructureTool{view: view}
}

func (t *StructureTool) Name() string {
	return "get_file_structure"
}

func (t *StructureTool) Description() string {
	return "Returns the file structure of the codebase, grouped by directory with file counts and total size. Test files are omitted."
}

func (t *StructureTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		},
	}
}

func (t *StructureTool) Validate(args map[string]any) error {
	return nil
}

func (t *StructureTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	structure := t.view.Structure()

	result := NewSuccessResult(structure)
	result.Lines = strings.Count(structure, "\n") + 1
	return result, nil
}
