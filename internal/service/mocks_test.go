package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/waleedsbi/atm-master/internal/domain"
	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/sqlgen"
)

// mockAuditor records audit calls.
type mockAuditor struct {
	mu    sync.Mutex
	calls []models.AuditEntry

	err error
}

func (m *mockAuditor) RecordAudit(_ context.Context, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, entry)
	return m.err
}

func (m *mockAuditor) getCalls() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.AuditEntry, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// mockNotifier records published progress events.
type mockNotifier struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotifier) Notify(eventType string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

// fakeTable is one in-memory table. Stored rows hold bound values, i.e. the
// output of sqlgen.Value.
type fakeTable struct {
	schema *models.TableSchema
	rows   []map[string]any
	nextID int64
}

// fakeDB is an in-memory database shared by the catalog, the row reader and
// restore sessions. It enforces the rules the restore engine relies on:
// explicit identity values need the session override, only one table may
// hold the override, primary keys are unique and int columns reject text.
type fakeDB struct {
	mu     sync.Mutex
	tables map[string]*fakeTable

	describeErr map[string]error
	readErr     map[string]error
	clearErr    error
	openErr     error
	insertErr   func(table string, row models.Row) error

	identityCalls []string
	sessions      []*fakeSession
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tables:      map[string]*fakeTable{},
		describeErr: map[string]error{},
		readErr:     map[string]error{},
	}
}

func (f *fakeDB) addTable(ts *models.TableSchema, rows ...map[string]any) {
	t := &fakeTable{schema: ts, nextID: 1}
	for _, r := range rows {
		t.rows = append(t.rows, boundRow(r))
		if ts.IdentityColumn != "" {
			if id, ok := r[ts.IdentityColumn].(int64); ok && id >= t.nextID {
				t.nextID = id + 1
			}
		}
	}

	f.tables[ts.Name] = t
}

func (f *fakeDB) rowsOf(name string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.tables[name].rows
}

func boundRow(r map[string]any) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = sqlgen.Value("", v)
	}

	return out
}

func (f *fakeDB) ListTables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for n := range f.tables {
		names = append(names, n)
	}

	return names, nil
}

func (f *fakeDB) DescribeTable(_ context.Context, name string) (*models.TableSchema, error) {
	if err := f.describeErr[name]; err != nil {
		return nil, err
	}

	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTableNotFound, name)
	}

	return t.schema, nil
}

func (f *fakeDB) ReadRows(_ context.Context, ts *models.TableSchema) ([]models.Row, error) {
	if err := f.readErr[ts.Name]; err != nil {
		return nil, err
	}

	out := []models.Row{}
	for _, r := range f.tables[ts.Name].rows {
		row := models.Row{}
		for k, v := range r {
			row[k] = v
		}
		out = append(out, row)
	}

	return out, nil
}

func (f *fakeDB) OpenSession(_ context.Context) (domain.RestoreSession, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}

	s := &fakeSession{db: f}
	f.sessions = append(f.sessions, s)

	return s, nil
}

// fakeSession implements domain.RestoreSession against fakeDB.
type fakeSession struct {
	db       *fakeDB
	identity string
	closed   bool
}

func (s *fakeSession) DescribeTable(ctx context.Context, name string) (*models.TableSchema, error) {
	return s.db.DescribeTable(ctx, name)
}

func (s *fakeSession) ClearTable(_ context.Context, ts *models.TableSchema) error {
	if s.db.clearErr != nil {
		return s.db.clearErr
	}

	s.db.tables[ts.Name].rows = nil

	return nil
}

func (s *fakeSession) SetIdentityInsert(_ context.Context, ts *models.TableSchema, on bool) error {
	state := "off"
	if on {
		state = "on"
	}

	s.db.identityCalls = append(s.db.identityCalls, ts.Name+":"+state)

	if on {
		if s.identity != "" && s.identity != ts.Name {
			return fmt.Errorf("IDENTITY_INSERT is already ON for table %s", s.identity)
		}

		s.identity = ts.Name

		return nil
	}

	s.identity = ""

	return nil
}

func keyOf(keys []string, row map[string]any) string {
	k := ""
	for _, c := range keys {
		k += fmt.Sprint(row[c]) + "|"
	}

	return k
}

func (s *fakeSession) find(t *fakeTable, keys []string, row map[string]any) int {
	want := keyOf(keys, row)
	for i, r := range t.rows {
		if keyOf(keys, r) == want {
			return i
		}
	}

	return -1
}

func (s *fakeSession) RowExists(_ context.Context, ts *models.TableSchema, keys []string, row models.Row) (bool, error) {
	t := s.db.tables[ts.Name]
	return s.find(t, keys, boundRow(row)) >= 0, nil
}

func (s *fakeSession) bind(ts *models.TableSchema, cols []string, row models.Row) (map[string]any, error) {
	out := map[string]any{}

	for _, c := range cols {
		col, _ := ts.Column(c)
		v := sqlgen.Value(col.DeclaredType, row[c])

		if col.DeclaredType == "int" {
			if str, ok := v.(string); ok {
				if _, err := strconv.ParseInt(str, 10, 64); err != nil {
					return nil, fmt.Errorf("conversion failed when converting %q to data type int", str)
				}
			}
		}

		if sqlgen.IsNull(v) && !col.Nullable {
			return nil, fmt.Errorf("cannot insert NULL into column %s", c)
		}

		out[c] = v
	}

	return out, nil
}

func (s *fakeSession) InsertRow(_ context.Context, ts *models.TableSchema, cols []string, row models.Row) error {
	if s.db.insertErr != nil {
		if err := s.db.insertErr(ts.Name, row); err != nil {
			return err
		}
	}

	t := s.db.tables[ts.Name]

	if ts.HasIdentity(cols) && s.identity != ts.Name {
		return errors.New("cannot insert explicit value for identity column when IDENTITY_INSERT is OFF")
	}

	bound, err := s.bind(ts, cols, row)
	if err != nil {
		return err
	}

	if ts.IdentityColumn != "" && !ts.HasIdentity(cols) {
		bound[ts.IdentityColumn] = t.nextID
		t.nextID++
	}

	if len(ts.PrimaryKey) > 0 && s.find(t, ts.PrimaryKey, bound) >= 0 {
		return errors.New("violation of PRIMARY KEY constraint")
	}

	t.rows = append(t.rows, bound)

	return nil
}

func (s *fakeSession) UpsertRow(ctx context.Context, ts *models.TableSchema, cols, keys []string, row models.Row) error {
	t := s.db.tables[ts.Name]

	bound, err := s.bind(ts, cols, row)
	if err != nil {
		return err
	}

	if i := s.find(t, keys, bound); i >= 0 {
		for _, c := range cols {
			if !ts.IsPrimaryKey(c) && c != ts.IdentityColumn {
				t.rows[i][c] = bound[c]
			}
		}

		return nil
	}

	return s.InsertRow(ctx, ts, cols, row)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func banksTable() *models.TableSchema {
	return &models.TableSchema{
		Schema: "dbo",
		Name:   "Banks",
		Columns: []models.Column{
			{Name: "Id", DeclaredType: "int", Identity: true},
			{Name: "Name", DeclaredType: "nvarchar", Nullable: true},
			{Name: "Active", DeclaredType: "bit", Nullable: true},
			{Name: "Branches", DeclaredType: "int", Nullable: true},
		},
		PrimaryKey:     []string{"Id"},
		IdentityColumn: "Id",
	}
}

func logsTable() *models.TableSchema {
	return &models.TableSchema{
		Schema: "dbo",
		Name:   "Logs",
		Columns: []models.Column{
			{Name: "Message", DeclaredType: "nvarchar", Nullable: true},
		},
	}
}
