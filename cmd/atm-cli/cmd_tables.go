package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [NAME]",
		Short: "List tables, or describe one table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 1 {
				ts, err := apiClient.Database.DescribeTable(ctx, args[0])
				if err != nil {
					return err
				}

				output(ts, ts.Name, func() {
					rows := make([][]string, 0, len(ts.Columns))
					for _, c := range ts.Columns {
						var flags string
						if ts.IsPrimaryKey(c.Name) {
							flags += "PK "
						}
						if c.Identity {
							flags += "IDENTITY "
						}
						if c.Computed {
							flags += "COMPUTED "
						}
						rows = append(rows, []string{c.Name, c.DeclaredType, strconv.FormatBool(c.Nullable), flags})
					}
					formatTable([]string{"COLUMN", "TYPE", "NULLABLE", "FLAGS"}, rows)
				})
				return nil
			}

			infos, err := apiClient.Database.Tables(ctx)
			if err != nil {
				return err
			}

			output(infos, strconv.Itoa(len(infos)), func() {
				rows := make([][]string, 0, len(infos))
				for _, t := range infos {
					rows = append(rows, []string{t.Name, strconv.FormatInt(t.RowCount, 10)})
				}
				formatTable([]string{"TABLE", "ROWS"}, rows)
			})
			return nil
		},
	}
}
