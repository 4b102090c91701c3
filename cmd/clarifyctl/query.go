package main

import (
	"strings"

	"github.com/spf13/cobra"

	"clarifyai/internal/service"
)

var (
	queryTopK        int
	queryShowContext bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the ingested documents",
	Long: `Retrieves the chunks closest to the question and asks the configured
language model providers, in order, to answer from them only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withServices(runQuery),
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (0 uses RETRIEVAL_TOP_K)")
	queryCmd.Flags().BoolVar(&queryShowContext, "context", false, "print the retrieved chunks")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	resp, err := queryService.Ask(cmd.Context(), service.QueryRequest{
		Username: username,
		Query:    strings.Join(args, " "),
		TopK:     queryTopK,
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd, resp)
	}

	cmd.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources: %s\n", strings.Join(uniqueSources(resp.Sources), ", "))
	}
	if queryShowContext {
		for i, c := range resp.ContextUsed {
			cmd.Printf("\n[%d] %s\n", i+1, c)
		}
	}
	return nil
}

func uniqueSources(sources []string) []string {
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
