package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"
)

var flagSave bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration in effect after merging the config file,
environment, and flags. With --save, write it back to the config file
so the current flag values become the defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Printf("# %s\n%s", dataDir(), data)

		if flagSave {
			if err := cfg.Save(dataDir()); err != nil {
				return err
			}
			fmt.Println("\nSaved.")
		}
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&flagSave, "save", false, "persist the effective configuration")
	rootCmd.AddCommand(configCmd)
}
