package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"clarifyai/internal/extract"
	"clarifyai/internal/indexer"
	"clarifyai/internal/tokenizer"
)

var (
	chunkSize     int
	chunkOverlap  int
	chunkEncoding string
	chunkVerbose  bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Show how a file would be chunked",
	Long: `Extracts and chunks a file without embedding or indexing it, and
reports the chunk count and token statistics.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkSize, "size", indexer.DefaultChunkSize, "target tokens per chunk")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", indexer.DefaultOverlap, "tokens shared by consecutive chunks")
	chunkCmd.Flags().StringVar(&chunkEncoding, "encoding", tokenizer.DefaultEncoding, "tokenizer encoding, or \"heuristic\"")
	chunkCmd.Flags().BoolVarP(&chunkVerbose, "verbose", "v", false, "print every chunk")
	rootCmd.AddCommand(chunkCmd)
}

type chunkReport struct {
	File       string                  `json:"file"`
	Tokenizer  string                  `json:"tokenizer"`
	Chunks     int                     `json:"chunks"`
	TokenStats indexer.ChunkTokenStats `json:"token_stats"`
	Detail     []indexer.Chunk         `json:"detail,omitempty"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	extractor := extract.New()
	text, err := extractor.Extract(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	chunker := indexer.NewTokenChunker(tokenizer.New(chunkEncoding))
	pipeline := indexer.NewPipeline(chunker, nil, nil, indexer.PipelineOptions{
		ChunkSize: chunkSize,
		Overlap:   chunkOverlap,
	})
	chunks, stats := pipeline.Preview(text)

	report := chunkReport{
		File:       filepath.Base(args[0]),
		Tokenizer:  chunker.Estimator().Name(),
		Chunks:     len(chunks),
		TokenStats: stats,
	}
	if chunkVerbose {
		report.Detail = chunks
	}
	if jsonOut {
		return printJSON(cmd, report)
	}

	cmd.Printf("%s: %d chunks (tokenizer %s)\n", report.File, report.Chunks, report.Tokenizer)
	cmd.Printf("tokens per chunk: min %d, max %d, mean %.1f, p95 %d\n", stats.Min, stats.Max, stats.Mean, stats.P95)
	for _, c := range report.Detail {
		cmd.Printf("\n--- chunk %d (%d tokens)\n%s\n", c.Index, c.TokenCount, c.Text)
	}
	return nil
}
