package store

import (
	"context"
	"fmt"

	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

const (
	tableLookupQuery = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 AND TABLE_TYPE = 'BASE TABLE'`

	listTablesQuery = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	columnsQuery = `
		SELECT c.name, COALESCE(TYPE_NAME(c.system_type_id), t.name),
		       c.is_nullable, c.is_identity, c.is_computed
		FROM sys.columns c
		JOIN sys.types t ON t.user_type_id = c.user_type_id
		WHERE c.object_id = OBJECT_ID(QUOTENAME(@p1) + '.' + QUOTENAME(@p2))
		ORDER BY c.column_id`

	primaryKeyQuery = `
		SELECT c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.is_primary_key = 1
		  AND i.object_id = OBJECT_ID(QUOTENAME(@p1) + '.' + QUOTENAME(@p2))
		ORDER BY ic.key_ordinal`

	tableInfoQuery = `
		SELECT t.name, COALESCE(SUM(p.rows), 0)
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		WHERE s.name = @p1
		GROUP BY t.name
		ORDER BY t.name`
)

// SchemaStore reads table metadata from the SQL Server catalog.
type SchemaStore struct {
	Base
}

// NewSchemaStore creates a SchemaStore.
func NewSchemaStore(base Base) *SchemaStore {
	return &SchemaStore{Base: base}
}

// DescribeTable returns the schema of a base table in the configured schema.
func (s *SchemaStore) DescribeTable(ctx context.Context, table string) (*models.TableSchema, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return describeTable(ctx, s.Pool, s.schemaName(), table)
}

// ListTables returns the base tables of the configured schema ordered by name.
func (s *SchemaStore) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.QueryContext(ctx, listTablesQuery, s.schemaName())
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	return names, nil
}

// TableInfos returns every table of the configured schema with its row
// count as reported by the partition metadata.
func (s *SchemaStore) TableInfos(ctx context.Context) ([]models.TableInfo, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.QueryContext(ctx, tableInfoQuery, s.schemaName())
	if err != nil {
		return nil, fmt.Errorf("querying table row counts: %w", err)
	}
	defer rows.Close()

	infos := []models.TableInfo{}

	for rows.Next() {
		var info models.TableInfo
		if err := rows.Scan(&info.Name, &info.RowCount); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}

		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table infos: %w", err)
	}

	return infos, nil
}

// CountRows returns the exact row count of one table.
func (s *SchemaStore) CountRows(ctx context.Context, ts *models.TableSchema) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int64
	if err := s.Pool.QueryRowContext(ctx, sqlgen.Count(s.qualified(ts.Name))).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", ts.Name, err)
	}

	return n, nil
}

// describeTable resolves a table by exact name. The catalog collation may be
// case-insensitive, so the returned name is compared again here.
func describeTable(ctx context.Context, q querier, schema, table string) (*models.TableSchema, error) {
	found, err := tableExists(ctx, q, schema, table)
	if err != nil {
		return nil, &models.IntrospectionError{Table: table, Err: err}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", models.ErrTableNotFound, table)
	}

	ts := &models.TableSchema{Schema: schema, Name: table}

	if ts.Columns, err = readColumns(ctx, q, schema, table); err != nil {
		return nil, &models.IntrospectionError{Table: table, Err: err}
	}

	if ts.PrimaryKey, err = readPrimaryKey(ctx, q, schema, table); err != nil {
		return nil, &models.IntrospectionError{Table: table, Err: err}
	}

	for _, c := range ts.Columns {
		if c.Identity {
			ts.IdentityColumn = c.Name
			break
		}
	}

	return ts, nil
}

func tableExists(ctx context.Context, q querier, schema, table string) (bool, error) {
	rows, err := q.QueryContext(ctx, tableLookupQuery, schema, table)
	if err != nil {
		return false, fmt.Errorf("looking up table: %w", err)
	}
	defer rows.Close()

	found := false

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scanning table name: %w", err)
		}

		if name == table {
			found = true
		}
	}

	return found, rows.Err()
}

func readColumns(ctx context.Context, q querier, schema, table string) ([]models.Column, error) {
	rows, err := q.QueryContext(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var cols []models.Column

	for rows.Next() {
		var c models.Column
		if err := rows.Scan(&c.Name, &c.DeclaredType, &c.Nullable, &c.Identity, &c.Computed); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}

		cols = append(cols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}

	return cols, nil
}

func readPrimaryKey(ctx context.Context, q querier, schema, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx, primaryKeyQuery, schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying primary key: %w", err)
	}
	defer rows.Close()

	var keys []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning primary key column: %w", err)
		}

		keys = append(keys, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating primary key: %w", err)
	}

	return keys, nil
}
