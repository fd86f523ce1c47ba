package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tome/internal/loader"
	"tome/internal/repository"
)

var flagYes bool

var removeCmd = &cobra.Command{
	Use:   "remove <document-id>",
	Short: "Remove a document from its collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}

		removed, err := repo.RemoveDocument(args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("document %q not found", args[0])
		}
		fmt.Printf("Removed %s\n", args[0])
		fmt.Println("Note: run 'tome index <collection>' to rebuild the index without it.")
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <collection>",
	Short: "Remove every document from a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		collection := args[0]

		repo, err := repository.Open(storageDir(), loader.DefaultRegistry())
		if err != nil {
			return err
		}
		if !repo.HasCollection(collection) {
			return fmt.Errorf("collection %q not found", collection)
		}

		if !flagYes {
			n := len(repo.ListCollectionDocuments(collection))
			fmt.Printf("This removes all %d document(s) from %q. Continue? [y/N] ", n, collection)
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				return nil
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		cleared, err := repo.ClearCollection(collection)
		if err != nil {
			return err
		}
		if !cleared {
			return fmt.Errorf("collection %q not found", collection)
		}
		fmt.Printf("Cleared collection %q\n", collection)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
}
