package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tome/internal/docstore"
	"tome/internal/metrics"
)

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List raw uploads in content-addressed storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := docstore.Open(dataDir())
		if err != nil {
			return err
		}

		records := ds.ListAll()
		if len(records) == 0 {
			fmt.Println("No uploads yet.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Hash", "Filename", "Size", "Model", "Uploaded"})
		for _, r := range records {
			table.Append([]string{
				shortHash(r),
				r.Filename,
				metrics.FormatBytes(uint64(r.FileSize)),
				r.EmbeddingModel,
				r.UploadTime.Format("2006-01-02 15:04"),
			})
		}
		table.Render()
		return nil
	},
}

var uploadsRemoveCmd = &cobra.Command{
	Use:   "remove <hash>",
	Short: "Remove an upload and its stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := docstore.Open(dataDir())
		if err != nil {
			return err
		}

		hash, err := resolveHash(ds, args[0])
		if err != nil {
			return err
		}
		removed, err := ds.Remove(hash)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("upload %q not found", args[0])
		}
		fmt.Printf("Removed upload %s\n", hash[:12])
		return nil
	},
}

func shortHash(r docstore.Record) string {
	if len(r.Hash) >= 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

// resolveHash accepts a full hash or an unambiguous prefix.
func resolveHash(ds *docstore.Store, prefix string) (string, error) {
	if _, ok := ds.Get(prefix); ok {
		return prefix, nil
	}

	var match string
	for _, r := range ds.ListAll() {
		if len(r.Hash) >= len(prefix) && r.Hash[:len(prefix)] == prefix {
			if match != "" {
				return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
			}
			match = r.Hash
		}
	}
	if match == "" {
		return "", fmt.Errorf("upload %q not found", prefix)
	}
	return match, nil
}

func init() {
	uploadsCmd.AddCommand(uploadsRemoveCmd)
	rootCmd.AddCommand(uploadsCmd)
}
