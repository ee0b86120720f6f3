// Package models defines data types shared by the backup and restore subsystem.
package models

import "strings"

// Column describes a single column discovered through the catalog.
type Column struct {
	Name         string `json:"name"`
	DeclaredType string `json:"declared_type"`
	Nullable     bool   `json:"nullable"`
	Identity     bool   `json:"identity,omitempty"`
	Computed     bool   `json:"computed,omitempty"`
}

// Writable reports whether values may be supplied for the column in an
// INSERT or UPDATE. Computed and rowversion columns are server-generated.
func (c Column) Writable() bool {
	if c.Computed {
		return false
	}

	switch strings.ToLower(c.DeclaredType) {
	case "timestamp", "rowversion":
		return false
	}

	return true
}

// TableSchema is the runtime description of a table. It is derived on every
// call and never cached.
type TableSchema struct {
	Schema         string   `json:"schema"`
	Name           string   `json:"name"`
	Columns        []Column `json:"columns"`
	PrimaryKey     []string `json:"primary_key_columns"`
	IdentityColumn string   `json:"identity_column,omitempty"`
}

// Column returns the named column. Lookup is exact, matching the catalog.
func (t *TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

// IsPrimaryKey reports whether name is one of the primary-key columns.
func (t *TableSchema) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}

	return false
}

// ValidColumns returns the writable table columns present as keys of row,
// in table ordinal order. Row keys unknown to the table are dropped.
func (t *TableSchema) ValidColumns(row Row) []string {
	cols := make([]string, 0, len(row))

	for _, c := range t.Columns {
		if !c.Writable() {
			continue
		}

		if _, ok := row[c.Name]; ok {
			cols = append(cols, c.Name)
		}
	}

	return cols
}

// KeyColumns returns the primary-key columns contained in cols, in key order.
func (t *TableSchema) KeyColumns(cols []string) []string {
	present := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		present[c] = struct{}{}
	}

	var keys []string

	for _, pk := range t.PrimaryKey {
		if _, ok := present[pk]; ok {
			keys = append(keys, pk)
		}
	}

	return keys
}

// HasIdentity reports whether cols include the table's identity column.
func (t *TableSchema) HasIdentity(cols []string) bool {
	if t.IdentityColumn == "" {
		return false
	}

	for _, c := range cols {
		if c == t.IdentityColumn {
			return true
		}
	}

	return false
}

// DeclaredTypes returns the declared type of each named column, or "" for a
// name the table does not have.
func (t *TableSchema) DeclaredTypes(cols []string) []string {
	types := make([]string, len(cols))
	for i, name := range cols {
		if c, ok := t.Column(name); ok {
			types[i] = c.DeclaredType
		}
	}

	return types
}

// ColumnNames returns all column names in ordinal order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}

// TableInfo is a table browser entry.
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}
