package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"clarifyai/internal/app"
	"clarifyai/internal/config"
	"clarifyai/internal/service"
)

var (
	username string
	jsonOut  bool

	documentService service.DocumentService
	queryService    service.QueryService

	// connect wires the services from configuration. Tests replace it.
	connect = connectApp
)

var rootCmd = &cobra.Command{
	Use:   "clarifyctl",
	Short: "Manage and query the ClarifyAI document index",
	Long: `clarifyctl ingests PDF, DOCX, Markdown and text files into the
ClarifyAI index and answers questions from them. It reads the same
environment variables and .env file as the API server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "cli", "owner of ingested documents and asked questions")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output results as JSON")
}

func connectApp(ctx context.Context) (func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	documentService, queryService = a.Documents, a.Queries
	return func() {
		_ = a.Close()
	}, nil
}

// withServices connects before run and releases the services after it.
func withServices(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cleanup, err := connect(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialise: %w", err)
		}
		defer cleanup()
		return run(cmd, args)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
