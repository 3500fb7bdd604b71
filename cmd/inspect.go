package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"logdex/internal/index"
)

var flagInspectKeys int

var inspectCmd = &cobra.Command{
	Use:   "inspect <index.json>",
	Short: "Validate an index document and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		snap, err := index.Validate(raw)
		if err != nil {
			return err
		}

		fmt.Printf("Schema:   %s\n", snap.SchemaVersion)
		fmt.Printf("Created:  %s\n", snap.CreatedAt)
		fmt.Printf("Chunks:   %d\n", snap.TotalChunks)
		fmt.Printf("Errors:   %d (%d distinct keys)\n", snap.TotalErrors, len(snap.ErrorIndex))
		fmt.Printf("Stats:    %d files processed, %d failed, %.2fs\n",
			snap.Stats.FilesProcessed, snap.Stats.FilesFailed, snap.Stats.ElapsedSeconds)

		if flagInspectKeys > 0 {
			fmt.Println("\nSample keys:")
			for i, key := range snap.SortedKeys() {
				if i >= flagInspectKeys {
					break
				}
				fmt.Printf("  %-60s %d entries\n", key, len(snap.ErrorIndex[key]))
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&flagInspectKeys, "keys", 0, "print up to N index keys")
	rootCmd.AddCommand(inspectCmd)
}
