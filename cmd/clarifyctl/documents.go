package main

import (
	"github.com/spf13/cobra"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  withServices(runList),
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents and their indexed chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withServices(runDelete),
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [doc-id]",
	Short: "Summarize an ingested document",
	Args:  cobra.ExactArgs(1),
	RunE:  withServices(runSummarize),
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "list documents of every user")
	rootCmd.AddCommand(listCmd, deleteCmd, summarizeCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	owner := username
	if listAll {
		owner = ""
	}
	docs, err := documentService.List(cmd.Context(), owner)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("%s  %-30s  %-10s  %4d chunks  %6d tokens  %s\n",
			d.ID, d.Filename, d.Username, d.ChunkCount, d.TokenCount, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		if err := documentService.Delete(cmd.Context(), id); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	summary, err := documentService.Summarize(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd, map[string]string{"doc_id": args[0], "summary": summary})
	}
	cmd.Println(summary)
	return nil
}
