package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tome/internal/docstore"
	"tome/internal/embedder"
	"tome/internal/loader"
	"tome/internal/logger"
	"tome/internal/metrics"
	"tome/internal/repository"
	"tome/internal/vecindex"
)

var (
	flagCollection string
	flagReindex    bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add documents to a collection",
	Long: `Add one or more files or directories to a collection. Directories
are walked recursively; only supported formats (.txt, .md, .csv, .pdf,
.docx, .pptx) are picked up. Files are stored under the data directory
and content-addressed, so adding the same bytes twice is a no-op in
storage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureDataDir(); err != nil {
			return err
		}

		reg := loader.DefaultRegistry()
		repo, err := repository.Open(storageDir(), reg)
		if err != nil {
			return err
		}
		ds, err := docstore.Open(dataDir())
		if err != nil {
			return err
		}

		paths, err := collectPaths(args, reg)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no supported documents found")
		}

		tm := metrics.Start("add documents")
		added := 0
		for _, p := range paths {
			content, err := os.ReadFile(p)
			if err != nil {
				logger.Warn("skipping %s: %v", p, err)
				continue
			}

			hash, err := ds.Add(content, filepath.Base(p), cfg.EmbeddingModel)
			if err != nil {
				return fmt.Errorf("store %s: %w", p, err)
			}
			entry, err := repo.AddDocument(content, filepath.Base(p), flagCollection)
			if err != nil {
				return fmt.Errorf("add %s: %w", p, err)
			}

			logger.Debug("added %s as %s (sha256 %s)", p, entry.ID, hash[:12])
			fmt.Printf("  + %s -> %s\n", entry.Filename, entry.Collection)
			added++
		}
		tm.Stop()

		fmt.Printf("\nAdded %d document(s) to collection %q\n", added, collectionName())

		if flagReindex && added > 0 {
			fmt.Println("Updating index...")
			return buildCollectionIndex(cmd, repo, collectionName())
		}
		return nil
	},
}

func collectionName() string {
	if flagCollection == "" {
		return "default"
	}
	return flagCollection
}

// collectPaths expands the arguments into a flat list of supported files.
func collectPaths(args []string, reg *loader.Registry) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			found, err := loader.WalkSupported(arg, reg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
			continue
		}
		if !reg.Supported(arg) {
			logger.Warn("skipping %s: unsupported format", arg)
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}

// buildCollectionIndex chunks a collection's documents and builds (or
// rebuilds) its vector index for the configured embedding model.
func buildCollectionIndex(cmd *cobra.Command, repo *repository.Repository, collection string) error {
	emb := embedder.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
	builder := vecindex.NewBuilder(indexDir(), emb)

	chunks, err := chunkCollection(repo, collection)
	if err != nil {
		return err
	}

	tm := metrics.Start("build index")
	h, err := builder.Build(cmd.Context(), collection, chunks)
	if err != nil {
		return fmt.Errorf("build index for %q: %w", collection, err)
	}
	defer h.Close()
	tm.Stop()

	n, err := h.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Index ready: %d chunks (%s)\n", n, cfg.EmbeddingModel)
	return nil
}

func init() {
	addCmd.Flags().StringVarP(&flagCollection, "collection", "c", "default", "target collection")
	addCmd.Flags().BoolVar(&flagReindex, "index", false, "rebuild the collection index after adding")
	rootCmd.AddCommand(addCmd)
}
