package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"tome/internal/embedder"
	"tome/internal/llm"
	"tome/internal/rag"
	"tome/internal/vecindex"
)

var flagK int

var askCmd = &cobra.Command{
	Use:   "ask <collection>",
	Short: "Ask questions about a collection's documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := args[0]

		emb := embedder.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
		builder := vecindex.NewBuilder(indexDir(), emb)

		h, err := builder.Load(collection)
		switch {
		case errors.Is(err, vecindex.ErrIndexNotFound):
			return fmt.Errorf("no index for collection %q with model %s\nRun 'tome index %s' first", collection, cfg.EmbeddingModel, collection)
		case errors.Is(err, vecindex.ErrNotReady):
			return fmt.Errorf("index for %q was interrupted mid-update\nRun 'tome index %s' to rebuild it", collection, collection)
		case err != nil:
			return err
		}
		defer h.Close()

		chat := llm.NewChat(cfg.OllamaURL, cfg.ChatModel)
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("init renderer: %w", err)
		}

		var history []llm.Message
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Printf("tome ask — collection %q, model %s (type /help for commands, /exit to quit)\n\n", collection, cfg.ChatModel)

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Println("Goodbye.")
				return nil
			case "/clear":
				history = nil
				fmt.Println("Conversation cleared.")
				continue
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /clear  - clear conversation history")
				fmt.Println("  /exit   - quit")
				fmt.Println("  /help   - show this help")
				continue
			}

			fmt.Println("[Searching...]")

			k := flagK
			if k <= 0 {
				k = cfg.RetrieveK
			}
			answer, results, err := rag.Answer(cmd.Context(), h, chat, history, question, k)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}

			rendered, err := renderer.Render(answer)
			if err != nil {
				rendered = answer
			}
			fmt.Println(rendered)

			if len(results) > 0 {
				fmt.Print("Sources: ")
				fmt.Println(strings.Join(sourceNames(results), ", "))
				fmt.Println()
			}

			// Keep the last 10 turns of history.
			history = append(history, llm.Message{Role: "user", Content: question})
			history = append(history, llm.Message{Role: "assistant", Content: answer})
			if len(history) > 20 {
				history = history[len(history)-20:]
			}
		}

		return scanner.Err()
	},
}

// sourceNames deduplicates result filenames, preserving retrieval order.
func sourceNames(results []vecindex.Result) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range results {
		name := r.Chunk.Metadata.Filename
		if r.Chunk.Metadata.Page > 0 {
			name = fmt.Sprintf("%s p.%d", name, r.Chunk.Metadata.Page)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func init() {
	askCmd.Flags().IntVar(&flagK, "k", 0, "chunks to retrieve per question (default from config)")
	rootCmd.AddCommand(askCmd)
}
