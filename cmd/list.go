package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tome/internal/loader"
	"tome/internal/metrics"
	"tome/internal/repository"
)

var listCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List collections, or the documents in one collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return listCollections(repo)
		}
		return listDocuments(repo, args[0])
	},
}

func listCollections(repo *repository.Repository) error {
	names := repo.ListCollections()
	if len(names) == 0 {
		fmt.Println("No collections yet. Add documents with 'tome add <path>'.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Collection", "Documents"})
	for _, name := range names {
		docs := repo.ListCollectionDocuments(name)
		table.Append([]string{name, strconv.Itoa(len(docs))})
	}
	table.Render()
	return nil
}

func listDocuments(repo *repository.Repository, collection string) error {
	if !repo.HasCollection(collection) {
		return fmt.Errorf("collection %q not found", collection)
	}

	entries := repo.ListCollectionDocuments(collection)
	if len(entries) == 0 {
		fmt.Printf("Collection %q is empty.\n", collection)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Filename", "Type", "Size", "Added"})
	for _, e := range entries {
		table.Append([]string{
			e.ID,
			e.Filename,
			e.FileType,
			metrics.FormatBytes(uint64(e.FileSize)),
			e.AddedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find documents by filename substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}

		matches := repo.SearchByFilename(args[0])
		if len(matches) == 0 {
			fmt.Printf("No documents matching %q.\n", args[0])
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Filename", "Collection"})
		for _, e := range matches {
			table.Append([]string{e.ID, e.Filename, e.Collection})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
}
