package thread

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists conversation state snapshots keyed by thread id.
type Store interface {
	// Get returns the state for a thread, or a fresh empty state when
	// the thread has no checkpoint yet.
	Get(threadID string) (*State, error)

	// Put replaces the checkpoint for a thread.
	Put(threadID string, state *State) error
}

// MemoryStore is an in-memory checkpoint store. Snapshots are deep
// copied on both get and put so callers can never mutate a committed
// checkpoint.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
	}
}

func (s *MemoryStore) Get(threadID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[threadID]
	if !ok {
		return NewState(), nil
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Put(threadID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[threadID] = state.Clone()
	return nil
}

// FileStore keeps one JSON file per thread under a base directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create thread directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultThreadDir returns $XDG_DATA_HOME/codescout/threads with the
// usual home fallback.
func DefaultThreadDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "codescout", "threads"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "codescout", "threads"), nil
}

func (s *FileStore) path(threadID string) string {
	// Thread ids come from callers; keep file names flat.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, threadID)
	return filepath.Join(s.dir, safe+".json")
}

func (s *FileStore) Get(threadID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("failed to read thread %s: %w", threadID, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse thread %s: %w", threadID, err)
	}
	return &state, nil
}

func (s *FileStore) Put(threadID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thread %s: %w", threadID, err)
	}

	path := s.path(threadID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write thread %s: %w", threadID, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write thread %s: %w", threadID, err)
	}
	return nil
}
