package kb

import (
	"fmt"
	"os"
	"path/filepath"

	"codescout/internal/logging"
)

// FileName is the knowledge base file kept at the codebase root.
const FileName = "knowledge_base.md"

// Store persists the knowledge base document next to the codebase it
// describes.
type Store struct {
	path string
}

// NewStore creates a store writing to <codebaseRoot>/knowledge_base.md.
func NewStore(codebaseRoot string) *Store {
	return &Store{
		path: filepath.Join(codebaseRoot, FileName),
	}
}

// Path returns the absolute knowledge base file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the knowledge base. A missing file is not an error; it
// returns an empty document.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read knowledge base: %w", err)
	}
	return string(data), nil
}

// Save writes the knowledge base atomically.
func (s *Store) Save(text string) error {
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}

	logging.Info("knowledge base saved", "path", s.path, "bytes", len(text))
	return nil
}
