package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var (
		outputPath string
		tables     []string
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Download a JSON snapshot of the database",
		Long: `Export every table (or only --tables) to a portable JSON snapshot.
Tables that cannot be read are kept in the file with their error.
Use 'atm restore' to load it back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if outputPath == "-" {
				_, err := apiClient.Database.BackupTo(ctx, tables, os.Stdout)
				return err
			}

			var buf bytes.Buffer
			suggested, err := apiClient.Database.BackupTo(ctx, tables, &buf)
			if err != nil {
				return err
			}

			path := backupOutputPath(outputPath, suggested, time.Now())
			if err := writeFile(path, &buf); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Backup written to %s (%d bytes)\n", path, buf.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: name suggested by the server, use - for stdout)")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "Comma-separated tables to export (default: all)")

	return cmd
}

// backupOutputPath picks the file to write: the flag, else the server's
// suggestion without any directory part, else a timestamped name.
func backupOutputPath(flag, suggested string, now time.Time) string {
	if flag != "" {
		return flag
	}

	if i := strings.LastIndexAny(suggested, `/\`); i >= 0 {
		suggested = suggested[i+1:]
	}
	if suggested != "" && suggested != "." && suggested != ".." {
		return suggested
	}

	return fmt.Sprintf("atm-backup-%s.json", now.UTC().Format("20060102T150405Z"))
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing backup file: %w", err)
	}

	return f.Close()
}
