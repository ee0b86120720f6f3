package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/waleedsbi/atm-master/client"
)

func newRestoreCmd() *cobra.Command {
	var (
		mode   string
		tables []string
	)

	cmd := &cobra.Command{
		Use:   "restore FILE",
		Short: "Restore a JSON snapshot into the database",
		Long: `Load a snapshot produced by 'atm backup'.

Modes:
  merge    insert rows whose primary key is absent, skip the rest (default)
  replace  clear each selected table first, then insert every row
  upsert   insert new rows and update rows whose primary key matches

A table that fails does not stop the others. The command exits non-zero when
any table failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := parseMode(mode)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening backup file: %w", err)
			}
			defer f.Close()

			resp, err := apiClient.Database.Restore(cmd.Context(), f, filepath.Base(args[0]),
				client.RestoreOptions{Mode: policy, Tables: tables})
			if err != nil {
				return err
			}

			output(resp, resp.Message, func() { printRestore(resp) })

			if resp.FailedTables > 0 {
				return fmt.Errorf("%d of %d tables failed", resp.FailedTables, resp.TotalTables)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "merge", "Conflict mode: merge|replace|upsert")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "Comma-separated tables to restore (default: all in the file)")

	return cmd
}

func parseMode(s string) (client.ConflictPolicy, error) {
	switch p := client.ConflictPolicy(s); p {
	case client.ModeMerge, client.ModeReplace, client.ModeUpsert:
		return p, nil
	default:
		return "", fmt.Errorf("invalid --mode %q: must be merge, replace or upsert", s)
	}
}

func printRestore(resp *client.RestoreResponse) {
	rows := make([][]string, 0, len(resp.Tables))
	for _, t := range resp.Tables {
		status := "ok"
		if t.Failure != "" {
			status = t.Failure
		} else if !t.Succeeded() {
			status = "failed"
		}

		rows = append(rows, []string{
			t.Table,
			strconv.Itoa(t.TotalRows),
			strconv.Itoa(t.Inserted),
			strconv.Itoa(t.Skipped),
			strconv.Itoa(t.Errors),
			status,
		})
	}

	formatTable([]string{"TABLE", "ROWS", "INSERTED", "SKIPPED", "ERRORS", "STATUS"}, rows)
	fmt.Println()
	fmt.Println(resp.Message)

	for _, e := range resp.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
}
