package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"tome/internal/embedder"
	"tome/internal/loader"
	"tome/internal/metrics"
	"tome/internal/rag"
	"tome/internal/repository"
	"tome/internal/vecindex"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing document search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
	if err != nil {
		return err
	}

	emb := embedder.NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
	builder := vecindex.NewBuilder(indexDir(), emb)

	s := mcpserver.NewMCPServer("tome", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchDocumentsTool(), makeSearchHandler(builder))
	s.AddTool(listCollectionsTool(), makeListCollectionsHandler(repo))
	s.AddTool(listDocumentsTool(), makeListDocumentsHandler(repo))
	s.AddTool(repositoryStatsTool(), makeStatsHandler(repo))

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Semantically search a document collection's vector index. Returns the most relevant passages with source filenames and page numbers."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Required(),
			mcp.Description("Name of the collection to search"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of passages to return (default 4)"),
		),
	)
}

func listCollectionsTool() mcp.Tool {
	return mcp.NewTool("list_collections",
		mcp.WithDescription("List all document collections with their document counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents in a collection with id, filename, type, and size."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("collection",
			mcp.Required(),
			mcp.Description("Name of the collection"),
		),
	)
}

func repositoryStatsTool() mcp.Tool {
	return mcp.NewTool("repository_stats",
		mcp.WithDescription("Get overall repository statistics: collection count, document count, and total stored bytes."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

func makeSearchHandler(builder *vecindex.Builder) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", "")
		if collection == "" {
			return mcp.NewToolResultError("collection is required"), nil
		}
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", cfg.RetrieveK)
		if k <= 0 {
			k = cfg.RetrieveK
		}

		h, err := builder.Load(collection)
		if errors.Is(err, vecindex.ErrIndexNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no index for collection %q — build one with 'tome index %s'", collection, collection)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("open index: %v", err)), nil
		}
		defer h.Close()

		// Same normalization path as ask: the query text is cleaned before
		// embedding so it matches what was indexed.
		results, err := rag.Retrieve(ctx, h, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeListCollectionsHandler(repo *repository.Repository) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names := repo.ListCollections()
		if len(names) == 0 {
			return mcp.NewToolResultText("No collections yet."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "## Collections (%d)\n\n", len(names))
		for _, name := range names {
			fmt.Fprintf(&sb, "- **%s** (%d documents)\n", name, len(repo.ListCollectionDocuments(name)))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeListDocumentsHandler(repo *repository.Repository) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		collection := req.GetString("collection", "")
		if collection == "" {
			return mcp.NewToolResultError("collection is required"), nil
		}
		if !repo.HasCollection(collection) {
			return mcp.NewToolResultError(fmt.Sprintf("collection %q not found — call list_collections to see available names", collection)), nil
		}

		entries := repo.ListCollectionDocuments(collection)
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Documents in %q (%d)\n\n", collection, len(entries))
		for _, e := range entries {
			fmt.Fprintf(&sb, "- **%s** (`%s`, %s, %s)\n",
				e.Filename, e.ID, e.FileType, metrics.FormatBytes(uint64(e.FileSize)))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeStatsHandler(repo *repository.Repository) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats := repo.Stats()
		text := fmt.Sprintf("Collections: %d\nDocuments: %d\nTotal size: %s\nLast updated: %s",
			stats.TotalCollections, stats.TotalDocuments,
			metrics.FormatBytes(uint64(stats.TotalSizeBytes)),
			stats.LastUpdated.Format("2006-01-02 15:04:05"))
		return mcp.NewToolResultText(text), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, results []vecindex.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d passages)\n\n", query, len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "### Result %d: `%s`", i+1, r.Chunk.Metadata.Filename)
		if r.Chunk.Metadata.Page > 0 {
			fmt.Fprintf(&sb, " (page %d)", r.Chunk.Metadata.Page)
		}
		fmt.Fprintf(&sb, "\n\n**Distance:** %.4f\n\n", r.Distance)
		fmt.Fprintf(&sb, "%s\n\n", r.Chunk.Text)
	}

	return sb.String()
}
