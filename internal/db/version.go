package db

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/waleedsbi/atm-master/internal/dbpool"
)

// SchemaVersion returns the number of migrations from fsys that goose has
// recorded as applied. It is stamped into every snapshot.
func SchemaVersion(ctx context.Context, pool *dbpool.Pool, fsys fs.FS) (int, error) {
	provider, err := goose.NewProvider(goose.DialectMSSQL, pool.DB(), fsys)
	if err != nil {
		return 0, fmt.Errorf("creating goose provider: %w", err)
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading migration status: %w", err)
	}

	return appliedCount(statuses), nil
}

func appliedCount(statuses []*goose.MigrationStatus) int {
	n := 0

	for _, s := range statuses {
		if s.State == goose.StateApplied {
			n++
		}
	}

	return n
}
