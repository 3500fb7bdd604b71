package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"logdex/internal/logline"
)

var (
	flagQueryLogLine bool
	flagQueryJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <machine-id> <text>",
	Short: "Search a machine's active index for an error message",
	Long: `Search a machine's active index for an error message.

With --log-line the argument is treated as raw pasted log output: the most
relevant line is selected, parsed, and its message used as the query. Pass
"-" to read the pasted text from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID := args[0]
		query := args[1]
		if query == "-" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			query = string(raw)
		}

		if flagQueryLogLine {
			analysis := logline.AnalyzePasted(query, false)
			if analysis.KeyExact == "" {
				return fmt.Errorf("no usable log line in input")
			}
			query = analysis.KeyExact
			fmt.Fprintf(os.Stderr, "query: %s\n", query)
		}

		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := svc.Search(cmd.Context(), machineID, query)
		if err != nil {
			return err
		}

		if flagQueryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if len(res.Matches) == 0 {
			fmt.Printf("No matches in version %s\n", res.VersionID)
			return nil
		}
		for _, m := range res.Matches {
			fmt.Printf("%s match (%.2f): %s\n", m.MatchType, m.Score, m.Key)
			for _, c := range m.Chunks {
				name := c.FunctionName
				if c.ClassName != "" {
					name = c.ClassName + "." + name
				}
				fmt.Printf("    %s:%d  %s\n", c.FilePath, c.LineStart, name)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&flagQueryLogLine, "log-line", false, "treat the argument as raw pasted log output")
	queryCmd.Flags().BoolVar(&flagQueryJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(queryCmd)
}
