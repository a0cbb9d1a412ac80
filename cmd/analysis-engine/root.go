package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "analysis-engine",
	Short: "Hybrid evaluation analysis job engine",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
