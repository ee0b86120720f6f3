package store

import "strings"

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

// splitPermissions parses the comma-separated permission column.
func splitPermissions(s string) []string {
	perms := []string{}

	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	return perms
}
