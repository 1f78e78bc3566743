package main

import (
	"github.com/spf13/cobra"
)

var langsCmd = &cobra.Command{
	Use:   "langs",
	Short: "List the languages the editor offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		printLanguages(cat, cat.Default().Value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(langsCmd)
}
