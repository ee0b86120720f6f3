package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/waleedsbi/atm-master/client"
)

func newAuditCmd() *cobra.Command {
	var (
		opts  client.AuditQueryOptions
		since string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent backup and restore operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				opts.Since = &t
			}

			entries, hasMore, err := apiClient.Audit.Query(cmd.Context(), &opts)
			if err != nil {
				return err
			}

			output(entries, strconv.Itoa(len(entries)), func() {
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					result := "ok"
					if !e.Success {
						result = "FAILED"
					}
					rows = append(rows, []string{
						e.CreatedAt.Local().Format(time.DateTime),
						e.Action,
						e.Actor,
						result,
						e.Summary,
					})
				}
				formatTable([]string{"TIME", "ACTION", "ACTOR", "RESULT", "SUMMARY"}, rows)
				if hasMore {
					fmt.Println("(more entries available, use --offset)")
				}
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "Filter by action (database.backup, database.restore)")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "Filter by username")
	cmd.Flags().StringVar(&since, "since", "", "Only entries after this time (RFC3339 or a duration such as 24h)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Maximum entries to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Entries to skip")

	return cmd
}

// parseSince accepts an RFC3339 timestamp or a duration counted back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid --since %q: use RFC3339 or a duration like 24h", s)
	}

	return now.Add(-d), nil
}
