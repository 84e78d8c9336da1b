package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codescout/internal/app"
	"codescout/internal/config"
	"codescout/internal/logging"
)

var (
	version      = "0.1.0"
	modelFlag    string
	providerFlag string
	codebaseFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codescout",
		Short: "Conversational codebase exploration assistant",
		Long: `Codescout is a chat interface for exploring a codebase. The assistant
reads files through read-only tools and iteratively builds a persisted
knowledge base document describing the architecture. Type "generate kb"
in the chat to run a full exploration.`,
		RunE: runApp,
	}

	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model to use (default is gemini-2.5-flash)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "model provider: gemini or ollama")
	rootCmd.PersistentFlags().StringVarP(&codebaseFlag, "codebase", "c", ".", "path to the codebase to explore")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codescout version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	if modelFlag != "" {
		cfg.Model.Name = modelFlag
	}
	if providerFlag != "" {
		cfg.API.Provider = providerFlag
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	codebasePath := codebaseFlag
	if len(args) > 0 {
		codebasePath = args[0]
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, codebasePath)
	if err != nil {
		return err
	}
	defer logging.Close()

	return application.Run(ctx)
}
