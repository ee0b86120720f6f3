package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/store"
)

var knownPermissions = []string{
	models.PermDatabaseRead,
	models.PermDatabaseBackup,
	models.PermDatabaseRestore,
	models.PermAuditRead,
}

// rolePermissions are granted when --permissions is not given.
var rolePermissions = map[string][]string{
	models.RoleAdmin: nil,
	"operator":       {models.PermDatabaseRead, models.PermDatabaseBackup, models.PermDatabaseRestore},
	"viewer":         {models.PermDatabaseRead},
	"auditor":        {models.PermDatabaseRead, models.PermAuditRead},
}

func newCreateUserCmd() *cobra.Command {
	var (
		username string
		role     string
		perms    []string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an API user and print its key",
		Long: `Create an API user. The API key is printed once and only its hash is
stored; keep it somewhere safe.

Roles: admin (every permission), operator, viewer, auditor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			granted, err := resolvePermissions(role, perms)
			if err != nil {
				return err
			}
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("--username is required")
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := store.NewUserStore(store.Base{Pool: pool, Log: log, Schema: cfg.Schema})

			u, key, err := users.CreateUser(cmd.Context(), username, role, granted)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created user %s (id %d, role %s)\n", u.Username, u.ID, u.Role)
			fmt.Fprintf(out, "API key: %s\n", key)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Unique user name")
	cmd.Flags().StringVar(&role, "role", "viewer", "Role: admin|operator|viewer|auditor")
	cmd.Flags().StringSliceVar(&perms, "permissions", nil, "Explicit permissions, overriding the role defaults")

	return cmd
}

// resolvePermissions validates the role and returns the permissions to store.
func resolvePermissions(role string, perms []string) ([]string, error) {
	defaults, ok := rolePermissions[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	if len(perms) == 0 {
		return defaults, nil
	}

	for _, p := range perms {
		if !slices.Contains(knownPermissions, p) {
			return nil, fmt.Errorf("unknown permission %q (known: %s)", p, strings.Join(knownPermissions, ", "))
		}
	}

	return perms, nil
}
