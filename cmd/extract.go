package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"logdex/internal/extract"
	"logdex/internal/index"
	"logdex/internal/tui"
	"logdex/internal/walker"
)

var (
	flagExtractRoot  string
	flagExtractOut   string
	flagIncludeExts  []string
	flagExcludeDirs  []string
	flagMaxFileBytes int64
	flagWorkers      int
	flagProgress     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Scan a firmware source tree and write an index document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(flagExtractRoot)
		if err != nil {
			return err
		}

		rules := walker.Rules{
			IncludeExts:  flagIncludeExts,
			MaxFileBytes: flagMaxFileBytes,
		}
		if len(flagExcludeDirs) > 0 {
			rules.ExcludeDirs = append(append([]string{}, walker.DefaultExcludeDirs...), flagExcludeDirs...)
		}
		opts := extract.Options{Rules: rules, Workers: flagWorkers}

		var result *extract.Result
		if flagProgress {
			result, err = tui.RunExtract(root, func(onProgress extract.ProgressFunc) (*extract.Result, error) {
				opts.OnProgress = onProgress
				return extract.Run(root, opts)
			})
		} else {
			fmt.Printf("Extracting from %s...\n", root)
			result, err = extract.Run(root, opts)
		}
		if err != nil {
			return err
		}

		snap := index.Build(result.Chunks, result.Stats)
		raw, err := index.Marshal(snap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagExtractOut, raw, 0o644); err != nil {
			return fmt.Errorf("writing index: %w", err)
		}

		if !flagProgress {
			fmt.Printf("\nDone in %s\n", time.Duration(result.Stats.ElapsedSeconds*float64(time.Second)).Round(time.Millisecond))
			fmt.Printf("  Files:     %d processed, %d skipped\n", result.Stats.FilesProcessed, result.Stats.FilesFailed)
			fmt.Printf("  Functions: %d\n", result.Stats.FunctionsFound)
			fmt.Printf("  Errors:    %d\n", result.Stats.ErrorsFound)
		}
		for _, skip := range result.Skips {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", skip.Path, skip.Reason)
		}
		fmt.Printf("Wrote %s (%d chunks, %d error messages)\n", flagExtractOut, snap.TotalChunks, snap.TotalErrors)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&flagExtractRoot, "root", "/opt/memjet", "source tree to scan")
	extractCmd.Flags().StringVar(&flagExtractOut, "out", "/index.json", "output index path")
	extractCmd.Flags().StringSliceVar(&flagIncludeExts, "include-ext", nil, "file extensions to include (default .py)")
	extractCmd.Flags().StringSliceVar(&flagExcludeDirs, "exclude-dir", nil, "directory names to skip (adds to the defaults)")
	extractCmd.Flags().Int64Var(&flagMaxFileBytes, "max-file-bytes", 0, "skip files larger than this (default 10 MiB)")
	extractCmd.Flags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "parallel workers")
	extractCmd.Flags().BoolVar(&flagProgress, "progress", false, "show interactive progress")
	rootCmd.AddCommand(extractCmd)
}
