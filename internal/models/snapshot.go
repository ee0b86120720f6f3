package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Row is one exported row: column name to value. Rows have no fixed shape
// and column presence varies from table to table.
type Row map[string]any

// SnapshotDocument is the portable backup format produced by an export and
// consumed by a restore.
type SnapshotDocument struct {
	Timestamp     time.Time      `json:"timestamp"`
	Database      string         `json:"database"`
	SchemaVersion int            `json:"schemaVersion,omitempty"`
	AppVersion    string         `json:"appVersion,omitempty"`
	Tables        SnapshotTables `json:"tables"`
}

// DecodeSnapshot parses a snapshot document. Numbers are kept as json.Number
// so integers and decimals survive without float rounding. Only top-level
// problems are errors; malformed table entries are reported per table by
// TableSnapshot.Problem.
func DecodeSnapshot(r io.Reader) (*SnapshotDocument, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc SnapshotDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if !doc.Tables.present {
		return nil, fmt.Errorf("%w: missing tables object", ErrInvalidSnapshot)
	}

	return &doc, nil
}

// TableSnapshot is one table entry of a snapshot. Exactly one of Data and
// Error is meaningful.
type TableSnapshot struct {
	RowCount int
	Data     []Row
	Error    string

	problem string
}

// Problem returns why the entry cannot be restored, or "" when it holds rows.
func (t TableSnapshot) Problem() string {
	switch {
	case t.Error != "":
		return "export failed: " + t.Error
	case t.problem != "":
		return t.problem
	case t.Data == nil:
		return "missing data"
	}

	return ""
}

type tableSnapshotData struct {
	RowCount int   `json:"rowCount"`
	Data     []Row `json:"data"`
}

type tableSnapshotError struct {
	Error string `json:"error"`
}

// MarshalJSON writes either {"rowCount","data"} or {"error"}.
func (t TableSnapshot) MarshalJSON() ([]byte, error) {
	if t.Error != "" {
		return json.Marshal(tableSnapshotError{Error: t.Error})
	}

	data := t.Data
	if data == nil {
		data = []Row{}
	}

	return json.Marshal(tableSnapshotData{RowCount: len(data), Data: data})
}

// UnmarshalJSON never fails: a malformed entry is recorded and surfaces
// through Problem so that one bad table cannot reject the whole document.
func (t *TableSnapshot) UnmarshalJSON(b []byte) error {
	*t = TableSnapshot{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		t.problem = "table entry is not an object"
		return nil
	}

	if raw, ok := fields["error"]; ok && !isJSONNull(raw) {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = string(raw)
		}

		if msg == "" {
			msg = "unknown error"
		}

		t.Error = msg
	}

	if raw, ok := fields["rowCount"]; ok {
		_ = json.Unmarshal(raw, &t.RowCount) //nolint:errcheck // informational only.
	}

	raw, ok := fields["data"]
	if !ok || isJSONNull(raw) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		t.problem = "data is not a list of rows"
		return nil
	}

	rows := make([]Row, 0, len(items))

	for i, item := range items {
		row, err := decodeRow(item)
		if err != nil {
			t.problem = fmt.Sprintf("row %d is not an object", i+1)
			return nil
		}

		rows = append(rows, row)
	}

	t.Data = rows

	return nil
}

func decodeRow(b []byte) (Row, error) {
	if isJSONNull(b) {
		return nil, fmt.Errorf("null row")
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var row Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}

	return row, nil
}

func isJSONNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// SnapshotTables is a JSON object of table entries that keeps key order on
// both encode and decode.
type SnapshotTables struct {
	names   []string
	entries map[string]TableSnapshot
	present bool
}

// Set adds or replaces an entry. A new name is appended to the order.
func (s *SnapshotTables) Set(name string, t TableSnapshot) {
	if s.entries == nil {
		s.entries = make(map[string]TableSnapshot)
	}

	if _, exists := s.entries[name]; !exists {
		s.names = append(s.names, name)
	}

	s.entries[name] = t
	s.present = true
}

// Get returns the entry for name.
func (s SnapshotTables) Get(name string) (TableSnapshot, bool) {
	t, ok := s.entries[name]
	return t, ok
}

// Names returns the table names in document order.
func (s SnapshotTables) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)

	return out
}

// Len returns the number of entries.
func (s SnapshotTables) Len() int { return len(s.names) }

// MarshalJSON writes entries in insertion order.
func (s SnapshotTables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(s.entries[name])
		if err != nil {
			return nil, fmt.Errorf("encoding table %s: %w", name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (s *SnapshotTables) UnmarshalJSON(b []byte) error {
	*s = SnapshotTables{}

	if isJSONNull(b) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tables must be an object")
	}

	s.present = true

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in tables", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}

		var entry TableSnapshot
		_ = entry.UnmarshalJSON(raw) //nolint:errcheck // never fails, problems are recorded on the entry.

		s.Set(name, entry)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}
