package config

import "time"

// Config represents the main application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Model    ModelConfig    `yaml:"model"`
	Explorer ExplorerConfig `yaml:"explorer"`
	Logging  LoggingConfig  `yaml:"logging"`
	UI       UIConfig       `yaml:"ui"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	// Gemini API key (also read from GEMINI_API_KEY)
	GeminiKey string `yaml:"gemini_key,omitempty"`

	// Ollama server URL (default: http://localhost:11434)
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`

	// Optional key for remote Ollama servers with auth
	OllamaKey string `yaml:"ollama_key,omitempty"`

	// Active provider: gemini or ollama (default: gemini)
	Provider string `yaml:"provider"`

	// Retry configuration for API calls
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig holds retry settings for model calls.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ModelConfig holds model generation settings.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// ExplorerConfig holds the knowledge-base exploration tunables.
// The round budget and keep-count vary across deployments, so they are
// configuration rather than constants.
type ExplorerConfig struct {
	// RoundBudget is the number of tool-use rounds allowed while building
	// the knowledge base before synthesis is forced.
	RoundBudget int `yaml:"round_budget"`

	// FilesPerRound is the suggested number of files the model should
	// request per exploration round.
	FilesPerRound int `yaml:"files_per_round"`

	// MaxFileChars is the per-file character budget for open_files.
	MaxFileChars int `yaml:"max_file_chars"`

	// CompactAfter is the message-history length that triggers compaction
	// at the end of a non-exploration turn.
	CompactAfter int `yaml:"compact_after"`

	// KeepRecent is the number of most recent messages preserved verbatim
	// by compaction.
	KeepRecent int `yaml:"keep_recent"`

	// MaxTransitions bounds the stage transitions of a single step.
	MaxTransitions int `yaml:"max_transitions"`

	// IncludePatterns optionally narrows the files the structure listing
	// enumerates (doublestar globs relative to the codebase root).
	IncludePatterns []string `yaml:"include_patterns,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File enables logging to codescout.log in the config directory.
	File bool `yaml:"file"`
}

// UIConfig holds TUI settings.
type UIConfig struct {
	Theme       string `yaml:"theme"`
	ShowSidebar bool   `yaml:"show_sidebar"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider:      "gemini",
			OllamaBaseURL: "http://localhost:11434",
			Retry: RetryConfig{
				MaxRetries: 3,
				RetryDelay: time.Second,
			},
		},
		Model: ModelConfig{
			Name:            "gemini-2.5-flash",
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
		Explorer: ExplorerConfig{
			RoundBudget:    8,
			FilesPerRound:  5,
			MaxFileChars:   30000,
			CompactAfter:   15,
			KeepRecent:     1,
			MaxTransitions: 64,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:       "dark",
			ShowSidebar: true,
		},
	}
}
