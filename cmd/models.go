package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tome/internal/llm"
	"tome/internal/metrics"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed in the local Ollama instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := llm.ListModels(cfg.OllamaURL)
		if err != nil {
			return fmt.Errorf("ollama not reachable at %s: %w", cfg.OllamaURL, err)
		}
		if len(models) == 0 {
			fmt.Println("No models installed. Pull one with 'ollama pull <model>'.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Model", "Size", "Role"})
		for _, m := range models {
			table.Append([]string{m.Name, metrics.FormatBytes(uint64(m.Size)), modelRole(m.Name)})
		}
		table.Render()
		return nil
	},
}

// modelRole marks the models currently selected in the config.
func modelRole(name string) string {
	switch name {
	case cfg.ChatModel:
		return "chat"
	case cfg.EmbeddingModel:
		return "embedding"
	}
	return ""
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
