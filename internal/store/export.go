package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/shopspring/decimal"

	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

// ExportStore reads table contents for backups.
type ExportStore struct {
	Base
}

// NewExportStore creates a new ExportStore.
func NewExportStore(base Base) *ExportStore {
	return &ExportStore{Base: base}
}

// ReadRows reads every row of a table as portable values. Rows are ordered
// by primary key when the table has one. The read is unbounded and carries
// no statement timeout of its own.
func (s *ExportStore) ReadRows(ctx context.Context, ts *models.TableSchema) ([]models.Row, error) {
	cols := ts.ColumnNames()
	if len(cols) == 0 {
		return []models.Row{}, nil
	}

	rows, err := s.Pool.QueryContext(ctx, sqlgen.Select(s.qualified(ts.Name), cols, ts.PrimaryKey))
	if err != nil {
		return nil, fmt.Errorf("querying %s for export: %w", ts.Name, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types of %s: %w", ts.Name, err)
	}

	dbTypes := make([]string, len(types))
	for i, t := range types {
		dbTypes[i] = strings.ToUpper(t.DatabaseTypeName())
	}

	out := []models.Row{}
	vals := make([]any, len(cols))
	dest := make([]any, len(cols))

	for i := range vals {
		dest[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", ts.Name, err)
		}

		row := make(models.Row, len(cols))
		for i, c := range cols {
			row[c] = exportValue(dbTypes[i], vals[i])
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", ts.Name, err)
	}

	return out, nil
}

// exportValue converts a driver value into a JSON-portable one. Exact
// numerics stay exact, identifiers use their canonical text form and
// zone-less temporal types keep their civil representation.
func exportValue(dbType string, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return exportBytes(dbType, x)
	case time.Time:
		return exportTime(dbType, x)
	}

	return v
}

func exportBytes(dbType string, b []byte) any {
	switch dbType {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		d, err := decimal.NewFromString(string(b))
		if err != nil {
			return string(b)
		}

		return json.Number(d.String())
	case "UNIQUEIDENTIFIER":
		var u mssql.UniqueIdentifier
		if err := u.Scan(b); err != nil {
			return base64.StdEncoding.EncodeToString(b)
		}

		return u.String()
	}

	return base64.StdEncoding.EncodeToString(b)
}

func exportTime(dbType string, t time.Time) string {
	switch dbType {
	case "DATE":
		return civil.DateOf(t).String()
	case "TIME":
		return civil.TimeOf(t).String()
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return civil.DateTimeOf(t).String()
	}

	return t.Format(time.RFC3339Nano)
}
