package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/sync"
)

// newBatchCommand builds a subcommand that reads one JSON records file and
// runs it as a single batch. The summary is printed as JSON; a rejected
// batch still prints the summary (with its per-record errors) and exits
// non-zero.
func newBatchCommand[T any](use, short string, run func(*sync.Engine, context.Context, []T) (*sync.Summary, error)) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			records, err := sync.DecodeRecords[T](data)
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", file, err)
			}

			return withEngine(cmd.Context(), func(e *sync.Engine, _ *zap.Logger) error {
				summary, err := run(e, cmd.Context(), records)
				if err != nil {
					var batch *sync.BatchErrors
					if errors.As(err, &batch) {
						printSummary(cmd, summary)
					}
					return err
				}
				printSummary(cmd, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the JSON records file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newAllCommand builds the folder mode: every stage present in the folder
// runs in dependency order, stopping at the first rejected batch.
func newAllCommand() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every sync stage found in a workspace folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *sync.Engine, _ *zap.Logger) error {
				summaries, err := e.SyncFolder(cmd.Context(), folder)
				for _, s := range summaries {
					printSummary(cmd, s)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "path to the workspace folder")
	_ = cmd.MarkFlagRequired("folder")
	return cmd
}

func printSummary(cmd *cobra.Command, summary *sync.Summary) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
}
