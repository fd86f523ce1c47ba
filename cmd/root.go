package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tome/internal/config"
	"tome/internal/logger"
)

var (
	flagData      string
	flagOllama    string
	flagEmbed     string
	flagChatModel string
	flagVerbose   bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tome",
	Short: "Local document Q&A powered by RAG",
	Long: `tome ingests documents into named collections, builds vector
indexes over their contents with a local Ollama instance, and answers
questions grounded in the retrieved passages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(flagVerbose)

		var err error
		cfg, err = config.Load(dataDir())
		if err != nil {
			return err
		}
		// Flags the user set explicitly override the config file.
		pf := cmd.Root().PersistentFlags()
		if pf.Changed("ollama") {
			cfg.OllamaURL = flagOllama
		}
		if pf.Changed("embedding-model") {
			cfg.EmbeddingModel = flagEmbed
		}
		if pf.Changed("chat-model") {
			cfg.ChatModel = flagChatModel
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dataDir resolves the data directory: --data flag, TOME_DATA env, or
// ~/.tome.
func dataDir() string {
	if flagData != "" {
		return flagData
	}
	if env := os.Getenv("TOME_DATA"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tome"
	}
	return filepath.Join(home, ".tome")
}

func indexDir() string   { return filepath.Join(dataDir(), "indexes") }
func storageDir() string { return filepath.Join(dataDir(), "storage") }

func ensureDataDir() error {
	if err := os.MkdirAll(dataDir(), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "data directory (default $TOME_DATA or ~/.tome)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "http://localhost:11434", "ollama base URL")
	rootCmd.PersistentFlags().StringVar(&flagEmbed, "embedding-model", "nomic-embed-text", "embedding model")
	rootCmd.PersistentFlags().StringVar(&flagChatModel, "chat-model", "mistral", "generative model for questions")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
}
