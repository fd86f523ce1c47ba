package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tome/internal/docstore"
	"tome/internal/llm"
	"tome/internal/loader"
	"tome/internal/metrics"
	"tome/internal/repository"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show repository, index, and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}
		ds, err := docstore.Open(dataDir())
		if err != nil {
			return err
		}

		stats := repo.Stats()
		fmt.Println(headerStyle.Render("Repository"))
		fmt.Printf("  Collections:  %d\n", stats.TotalCollections)
		fmt.Printf("  Documents:    %d\n", stats.TotalDocuments)
		fmt.Printf("  Total size:   %s\n", metrics.FormatBytes(uint64(stats.TotalSizeBytes)))
		if !stats.LastUpdated.IsZero() {
			fmt.Printf("  Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  Uploads:      %d\n", len(ds.ListAll()))
		if err := repo.Validate(); err != nil {
			fmt.Printf("  %s %v\n", badStyle.Render("inconsistent:"), err)
		}
		fmt.Println()

		fmt.Println(headerStyle.Render("Indexes"))
		printIndexes()
		fmt.Println()

		fmt.Println(headerStyle.Render("Ollama"))
		if llm.Reachable(cfg.OllamaURL) {
			fmt.Printf("  %s %s\n", okStyle.Render("reachable"), dimStyle.Render(cfg.OllamaURL))
		} else {
			fmt.Printf("  %s %s\n", badStyle.Render("unreachable"), dimStyle.Render(cfg.OllamaURL))
		}
		fmt.Printf("  Chat model:      %s\n", cfg.ChatModel)
		fmt.Printf("  Embedding model: %s\n", cfg.EmbeddingModel)
		fmt.Println()

		fmt.Println(headerStyle.Render("System"))
		snap, err := metrics.Collect()
		if err != nil {
			fmt.Printf("  %s\n", dimStyle.Render("metrics unavailable"))
			return nil
		}
		fmt.Printf("  Process memory: %s\n", metrics.FormatBytes(snap.ProcessRSS))
		fmt.Printf("  Host memory:    %s / %s (%.1f%%)\n",
			metrics.FormatBytes(snap.UsedMemory), metrics.FormatBytes(snap.TotalMemory), snap.MemoryPct)
		fmt.Printf("  CPU:            %.1f%%\n", snap.CPUPct)
		return nil
	},
}

// printIndexes lists the on-disk index files with their sizes. Each file
// covers one (collection, embedding model) pair.
func printIndexes() {
	entries, err := os.ReadDir(indexDir())
	if err != nil {
		fmt.Printf("  %s\n", dimStyle.Render("none"))
		return
	}

	found := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".db") {
			continue
		}
		info, err := os.Stat(filepath.Join(indexDir(), name))
		if err != nil {
			continue
		}
		fmt.Printf("  %s (%s)\n", strings.TrimSuffix(name, ".db"), metrics.FormatBytes(uint64(info.Size())))
		found++
	}
	if found == 0 {
		fmt.Printf("  %s\n", dimStyle.Render("none"))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
