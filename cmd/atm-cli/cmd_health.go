package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server and its database are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apiClient.Health(cmd.Context())
			if err != nil {
				return err
			}

			output(h, h.Status, func() {
				uptime := (time.Duration(h.UptimeSeconds) * time.Second).String()
				formatTable([]string{"SERVER", "VERSION", "DATABASE", "STATE", "UPTIME"},
					[][]string{{flagURL, h.Version, h.DatabaseName, h.Database, uptime}})
			})

			if h.Database != "connected" {
				return fmt.Errorf("database is %s", h.Database)
			}
			return nil
		},
	}
}
