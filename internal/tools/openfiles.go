package tools

import (
	"context"

	"google.golang.org/genai"

	"codescout/internal/codebase"
)

// OpenFilesTool reads selected codebase files with a per-file character
// budget.
type OpenFilesTool struct {
	view     *codebase.View
	maxChars int
}

// NewOpenFilesTool creates a new OpenFilesTool over the given view.
func NewOpenFilesTool(view *codebase.View, maxChars int) *OpenFilesTool {
	return &OpenFilesTool{view: view, maxChars: maxChars}
}

func (t *OpenFilesTool) Name() string {
	return "open_files"
}

func (t *OpenFilesTool) Description() string {
	return "Reads the contents of the given files, relative to the codebase root. Long files are truncated."
}

func (t *OpenFilesTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_paths": {
					Type:        genai.TypeArray,
					Description: "File paths to read, relative to the codebase root",
					Items: &genai.Schema{
						Type: genai.TypeString,
					},
				},
			},
			Required: []string{"file_paths"},
		},
	}
}

func (t *OpenFilesTool) Validate(args map[string]any) error {
	raw, ok := args["file_paths"]
	if !ok {
		return NewValidationError("file_paths", "is required")
	}
	if _, ok := codebase.ParsePathList(raw); !ok {
		return NewValidationError("file_paths", "must be a list of file paths")
	}
	return nil
}

func (t *OpenFilesTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	paths, _ := codebase.ParsePathList(args["file_paths"])

	content, read := t.view.ReadFiles(paths, t.maxChars)

	result := NewSuccessResult(content)
	result.Files = read
	return result, nil
}
