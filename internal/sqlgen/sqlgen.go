// Package sqlgen builds the dynamic T-SQL statements used by backup and
// restore. Identifiers are bracket-quoted names taken from the catalog and
// every value is sent as a statement parameter.
package sqlgen

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// QuoteIdent bracket-quotes a SQL Server identifier, doubling any closing
// bracket inside the name.
func QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QualifiedName returns [schema].[table].
func QualifiedName(schema, table string) string {
	if schema == "" {
		return QuoteIdent(table)
	}

	return QuoteIdent(schema) + "." + QuoteIdent(table)
}

// Param returns the driver placeholder for the 1-based parameter n.
func Param(n int) string {
	return "@p" + strconv.Itoa(n)
}

// Value converts a snapshot value into a bound parameter for a column of
// the given declared type. It is the only conversion applied on restore,
// whatever the conflict policy:
//
//	nil, ""                 -> NULL
//	integral json.Number    -> int64
//	other json.Number       -> exact decimal
//	bool                    -> 1 / 0
//	string                  -> unchanged
//	anything else           -> its JSON text
//
// Binary columns take base64 text and bind []byte, NULL included, so the
// parameter is declared varbinary.
func Value(declaredType string, v any) any {
	if IsBinaryType(declaredType) {
		return binaryValue(v)
	}

	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}

		return x
	case json.Number:
		return numberValue(x)
	case bool:
		if x {
			return int64(1)
		}

		return int64(0)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}

		return decimal.NewFromFloat(x)
	case decimal.Decimal:
		return x
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}

// IsBinaryType reports whether a declared type carries raw bytes. CLR types
// convert implicitly from varbinary and are treated the same way.
func IsBinaryType(declaredType string) bool {
	switch strings.ToLower(declaredType) {
	case "binary", "varbinary", "image", "geography", "geometry", "hierarchyid":
		return true
	}

	return false
}

// IsNull reports whether a bound value is SQL NULL.
func IsNull(bound any) bool {
	switch x := bound.(type) {
	case nil:
		return true
	case []byte:
		return x == nil
	}

	return false
}

func binaryValue(v any) any {
	switch x := v.(type) {
	case nil:
		return []byte(nil)
	case []byte:
		return x
	case string:
		if x == "" {
			return []byte(nil)
		}

		b, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			// Left as text; the server rejects it for this row only.
			return x
		}

		return b
	}

	return Value("", v)
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}

	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return n.String()
	}

	return d
}

// Values applies Value to the given columns of row, in column order.
// types holds the declared type of each column.
func Values(row map[string]any, cols, types []string) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = Value(types[i], row[c])
	}

	return args
}

func quoteList(cols []string, prefix string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = prefix + QuoteIdent(c)
	}

	return strings.Join(parts, ", ")
}

func paramList(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = Param(start + i)
	}

	return strings.Join(parts, ", ")
}

// Select reads every listed column of a table, ordered by orderBy when given.
func Select(table string, cols, orderBy []string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(quoteList(cols, ""))
	b.WriteString(" FROM ")
	b.WriteString(table)

	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(quoteList(orderBy, ""))
	}

	return b.String()
}

// Count returns SELECT COUNT_BIG(*) for a table.
func Count(table string) string {
	return "SELECT COUNT_BIG(*) FROM " + table
}

// Insert builds a single-row INSERT binding cols as @p1..@pN.
func Insert(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, quoteList(cols, ""), paramList(1, len(cols)))
}

// Exists builds a COUNT probe matching every key column by equality. Keys
// are bound as @p1..@pN in the given order.
func Exists(table string, keys []string) string {
	conds := make([]string, len(keys))
	for i, k := range keys {
		conds[i] = QuoteIdent(k) + " = " + Param(i+1)
	}

	return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE %s", table, strings.Join(conds, " AND "))
}

// Merge builds a single-statement upsert keyed on keys. cols are bound as
// @p1..@pN; matched rows update every column that is neither a key nor the
// identity column. When nothing is left to update, matched rows are left
// as they are.
func Merge(table string, cols, keys []string, identity string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	src := make([]string, len(cols))
	for i, c := range cols {
		src[i] = Param(i+1) + " AS " + QuoteIdent(c)
	}

	on := make([]string, len(keys))
	for i, k := range keys {
		on[i] = "target." + QuoteIdent(k) + " = source." + QuoteIdent(k)
	}

	var set []string

	for _, c := range cols {
		if isKey[c] || c == identity {
			continue
		}

		set = append(set, "target."+QuoteIdent(c)+" = source."+QuoteIdent(c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s WITH (HOLDLOCK) AS target ", table)
	fmt.Fprintf(&b, "USING (SELECT %s) AS source ", strings.Join(src, ", "))
	fmt.Fprintf(&b, "ON %s ", strings.Join(on, " AND "))

	if len(set) > 0 {
		fmt.Fprintf(&b, "WHEN MATCHED THEN UPDATE SET %s ", strings.Join(set, ", "))
	}

	fmt.Fprintf(&b, "WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		quoteList(cols, ""), quoteList(cols, "source."))

	return b.String()
}

// IdentityInsert toggles explicit identity values for a table. The setting
// is scoped to the session that issues it.
func IdentityInsert(table string, on bool) string {
	state := "OFF"
	if on {
		state = "ON"
	}

	return fmt.Sprintf("SET IDENTITY_INSERT %s %s", table, state)
}

// DisableConstraints suspends foreign-key and check constraints on a table.
func DisableConstraints(table string) string {
	return "ALTER TABLE " + table + " NOCHECK CONSTRAINT ALL"
}

// EnableConstraints re-enables constraints suspended by DisableConstraints.
func EnableConstraints(table string) string {
	return "ALTER TABLE " + table + " CHECK CONSTRAINT ALL"
}

// Truncate empties a table. SQL Server rejects it for tables referenced by a
// foreign key; callers fall back to DeleteAll.
func Truncate(table string) string {
	return "TRUNCATE TABLE " + table
}

// DeleteAll removes every row of a table.
func DeleteAll(table string) string {
	return "DELETE FROM " + table
}
