package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clarifyai/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or directories",
	Long: `Extracts, chunks, embeds and indexes each file. Directories are walked
recursively; hidden entries and unsupported extensions are skipped.
A file whose text was already ingested by the same user is reported
as a duplicate and not indexed again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withServices(runIngest),
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

type ingestOutput struct {
	Path   string                `json:"path"`
	Result *service.UploadResult `json:"result,omitempty"`
	Import *service.ImportResult `json:"import,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var outputs []ingestOutput
	failed := 0

	for _, path := range args {
		out := ingestOutput{Path: path}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			out.Error = err.Error()
		case info.IsDir():
			res, err := documentService.ImportDirectory(ctx, path, username)
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Import = &res
			}
		default:
			res, err := documentService.Upload(ctx, service.UploadRequest{
				Username: username,
				Filename: filepath.Base(path),
				Path:     path,
			})
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Result = &res
			}
		}
		if out.Error != "" || (out.Import != nil && out.Import.Failed > 0) {
			failed++
		}
		outputs = append(outputs, out)
	}

	if jsonOut {
		if err := printJSON(cmd, outputs); err != nil {
			return err
		}
	} else {
		for _, out := range outputs {
			printIngest(cmd, out)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d paths failed", failed, len(args))
	}
	return nil
}

func printIngest(cmd *cobra.Command, out ingestOutput) {
	switch {
	case out.Error != "":
		cmd.Printf("%s: error: %s\n", out.Path, out.Error)
	case out.Import != nil:
		cmd.Printf("%s: imported %d, skipped %d, failed %d\n", out.Path, out.Import.Imported, out.Import.Skipped, out.Import.Failed)
		for _, e := range out.Import.Errors {
			cmd.Printf("    %s\n", e)
		}
	case out.Result.Duplicate:
		cmd.Printf("%s: already ingested as %s\n", out.Path, out.Result.Document.ID)
	default:
		doc := out.Result.Document
		cmd.Printf("%s: %s (%d chunks, %d tokens)\n", out.Path, doc.ID, doc.ChunkCount, doc.TokenCount)
	}
}
