package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tome/internal/chunker"
	"tome/internal/embedder"
	"tome/internal/loader"
	"tome/internal/normalize"
	"tome/internal/repository"
	"tome/internal/vecindex"
)

var flagUpdate bool

var indexCmd = &cobra.Command{
	Use:   "index <collection>",
	Short: "Build or update the vector index for a collection",
	Long: `Build the vector index for a collection with the configured
embedding model. Indexes are per (collection, model) pair; switching
models builds a separate index rather than overwriting the old one.

A full build embeds every document and atomically replaces any
existing index. With --update, new chunks are appended to the existing
index instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := args[0]

		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}
		if !repo.HasCollection(collection) {
			return fmt.Errorf("collection %q not found", collection)
		}

		if flagUpdate {
			return updateCollectionIndex(cmd, repo, collection)
		}
		return buildCollectionIndex(cmd, repo, collection)
	},
}

// chunkCollection parses every document in the collection, normalizes
// the text, and splits it with the settings for the embedding model.
func chunkCollection(repo *repository.Repository, collection string) ([]chunker.Chunk, error) {
	docs := repo.LoadCollectionDocuments(collection)

	for i := range docs {
		docs[i].Content = normalize.Text(docs[i].Content)
	}

	settings := cfg.ChunkSettings(cfg.EmbeddingModel)
	chunks := chunker.Split(docs, settings)
	fmt.Printf("Chunked %d document(s) into %d chunk(s) (size %d, overlap %d)\n",
		len(docs), len(chunks), settings.Size, settings.Overlap)
	return chunks, nil
}

func updateCollectionIndex(cmd *cobra.Command, repo *repository.Repository, collection string) error {
	emb := embedder.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
	builder := vecindex.NewBuilder(indexDir(), emb)

	h, err := builder.Load(collection)
	if errors.Is(err, vecindex.ErrIndexNotFound) {
		fmt.Println("No existing index, building from scratch.")
		return buildCollectionIndex(cmd, repo, collection)
	}
	if err != nil {
		return err
	}
	defer h.Close()

	chunks, err := chunkCollection(repo, collection)
	if err != nil {
		return err
	}
	if err := builder.Update(cmd.Context(), h, chunks); err != nil {
		return fmt.Errorf("update index for %q: %w", collection, err)
	}

	n, err := h.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Index updated: %d chunks (%s)\n", n, cfg.EmbeddingModel)
	return nil
}

func init() {
	indexCmd.Flags().BoolVar(&flagUpdate, "update", false, "append to the existing index instead of rebuilding")
	rootCmd.AddCommand(indexCmd)
}
