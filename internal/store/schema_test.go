package store_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/waleedsbi/atm-master/internal/models"
	"github.com/waleedsbi/atm-master/internal/store"
)

func TestDescribeTable(t *testing.T) {
	base := setupTestBase(t)
	ss := store.NewSchemaStore(base)
	ctx := context.Background()

	name := createTable(t, base, banksColumns)

	ts, err := ss.DescribeTable(ctx, name)
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}

	want := []string{"Id", "Name", "Balance", "Ref", "Opened", "Label"}
	if got := ts.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}

	if !reflect.DeepEqual(ts.PrimaryKey, []string{"Id"}) {
		t.Errorf("PrimaryKey = %v", ts.PrimaryKey)
	}

	if ts.IdentityColumn != "Id" {
		t.Errorf("IdentityColumn = %q", ts.IdentityColumn)
	}

	label, _ := ts.Column("Label")
	if !label.Computed || label.Writable() {
		t.Errorf("Label should be computed and read-only: %+v", label)
	}
}

func TestDescribeTable_CompositeKeyOrder(t *testing.T) {
	base := setupTestBase(t)
	ss := store.NewSchemaStore(base)

	name := createTable(t, base, `
		LineNo INT NOT NULL,
		OrderId INT NOT NULL,
		Qty INT NULL,
		CONSTRAINT Lines_Key PRIMARY KEY (OrderId, LineNo)`)

	ts, err := ss.DescribeTable(context.Background(), name)
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}

	// Constraint names need not follow any convention.
	if !reflect.DeepEqual(ts.PrimaryKey, []string{"OrderId", "LineNo"}) {
		t.Errorf("PrimaryKey = %v", ts.PrimaryKey)
	}
}

func TestDescribeTable_NotFound(t *testing.T) {
	base := setupTestBase(t)
	ss := store.NewSchemaStore(base)

	_, err := ss.DescribeTable(context.Background(), "NoSuchTable_x")
	if !errors.Is(err, models.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}

	var ie *models.IntrospectionError
	if errors.As(err, &ie) {
		t.Error("not-found must not be reported as an introspection failure")
	}
}

func TestListTablesAndInfos(t *testing.T) {
	base := setupTestBase(t)
	ss := store.NewSchemaStore(base)
	ctx := context.Background()

	name := createTable(t, base, banksColumns)

	names, err := ss.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}

	if !slices.Contains(names, name) {
		t.Errorf("ListTables missing %s", name)
	}

	if !slices.IsSorted(names) {
		t.Error("ListTables not ordered by name")
	}

	infos, err := ss.TableInfos(ctx)
	if err != nil {
		t.Fatalf("TableInfos: %v", err)
	}

	found := false

	for _, info := range infos {
		if info.Name == name {
			found = true
		}
	}

	if !found {
		t.Errorf("TableInfos missing %s", name)
	}
}

func TestDescribeTable_CLRTypedColumns(t *testing.T) {
	base := setupTestBase(t)
	ss := store.NewSchemaStore(base)

	name := createTable(t, base, `
		Id INT NOT NULL PRIMARY KEY,
		Loc GEOGRAPHY NULL,
		Shape GEOMETRY NULL,
		Node HIERARCHYID NULL`)

	ts, err := ss.DescribeTable(context.Background(), name)
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}

	want := []string{"Id", "Loc", "Shape", "Node"}
	if got := ts.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}

	loc, _ := ts.Column("Loc")
	if loc.DeclaredType != "geography" || !loc.Writable() {
		t.Errorf("Loc = %+v", loc)
	}
}
