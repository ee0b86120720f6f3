package sqlgen

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Banks", "[Banks]"},
		{"Work Plans", "[Work Plans]"},
		{"odd]name", "[odd]]name]"},
		{"x]]; DROP TABLE y; --", "[x]]]]; DROP TABLE y; --]"},
	}

	for _, tc := range tests {
		if got := QuoteIdent(tc.in); got != tc.want {
			t.Errorf("QuoteIdent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if got := QualifiedName("dbo", "Banks"); got != "[dbo].[Banks]" {
		t.Errorf("QualifiedName = %q", got)
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"apostrophe kept verbatim", "O'Brien", "O'Brien"},
		{"integer number", json.Number("42"), int64(42)},
		{"negative integer", json.Number("-7"), int64(-7)},
		{"true", true, int64(1)},
		{"false", false, int64(0)},
		{"int", 3, int64(3)},
		{"integral float", float64(12), int64(12)},
		{"object", map[string]any{"a": 1}, `{"a":1}`},
		{"list", []any{"x", 2}, `["x",2]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Value("nvarchar", tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Value(%#v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValue_DecimalsAreExact(t *testing.T) {
	got, ok := Value("decimal", json.Number("12345678901234567890.125")).(decimal.Decimal)
	if !ok {
		t.Fatalf("expected decimal.Decimal, got %T", got)
	}

	if got.String() != "12345678901234567890.125" {
		t.Errorf("decimal = %s", got.String())
	}

	money, ok := Value("money", json.Number("0.10")).(decimal.Decimal)
	if !ok || !money.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("money = %v", money)
	}
}

func TestValues_FollowColumnOrder(t *testing.T) {
	row := map[string]any{"B": "", "A": json.Number("1"), "C": true}

	got := Values(row, []string{"C", "A", "B"}, []string{"bit", "int", "nvarchar"})
	want := []any{int64(1), int64(1), nil}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %#v, want %#v", got, want)
	}
}

func TestValue_BinaryColumns(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		in       any
		want     any
	}{
		{"base64 text", "varbinary", "AQID", []byte{1, 2, 3}},
		{"binary", "BINARY", "/w==", []byte{0xFF}},
		{"image", "image", "AQID", []byte{1, 2, 3}},
		{"geography", "geography", "5hA=", []byte{0xE6, 0x10}},
		{"null", "varbinary", nil, []byte(nil)},
		{"empty", "varbinary", "", []byte(nil)},
		{"not base64", "varbinary", "zz!", "zz!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Value(tc.declared, tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Value(%s, %#v) = %#v, want %#v", tc.declared, tc.in, got, tc.want)
			}
		})
	}

	// Same text, different target: non-binary columns keep it as text.
	if got := Value("nvarchar", "AQID"); got != "AQID" {
		t.Errorf("nvarchar value = %#v", got)
	}
}

func TestIsNull(t *testing.T) {
	for _, v := range []any{nil, []byte(nil)} {
		if !IsNull(v) {
			t.Errorf("IsNull(%#v) = false", v)
		}
	}

	for _, v := range []any{[]byte{}, "", int64(0)} {
		if IsNull(v) {
			t.Errorf("IsNull(%#v) = true", v)
		}
	}
}

func TestInsert(t *testing.T) {
	got := Insert("[dbo].[Banks]", []string{"Id", "Name"})
	want := "INSERT INTO [dbo].[Banks] ([Id], [Name]) VALUES (@p1, @p2)"

	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestExists(t *testing.T) {
	got := Exists("[dbo].[Lines]", []string{"OrderId", "LineNo"})
	want := "SELECT COUNT(1) FROM [dbo].[Lines] WHERE [OrderId] = @p1 AND [LineNo] = @p2"

	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestMerge(t *testing.T) {
	got := Merge("[dbo].[Banks]", []string{"Id", "Name", "Code"}, []string{"Id"}, "Id")

	for _, part := range []string{
		"MERGE INTO [dbo].[Banks] WITH (HOLDLOCK) AS target",
		"USING (SELECT @p1 AS [Id], @p2 AS [Name], @p3 AS [Code]) AS source",
		"ON target.[Id] = source.[Id]",
		"WHEN MATCHED THEN UPDATE SET target.[Name] = source.[Name], target.[Code] = source.[Code]",
		"WHEN NOT MATCHED THEN INSERT ([Id], [Name], [Code]) VALUES (source.[Id], source.[Name], source.[Code]);",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("merge statement missing %q:\n%s", part, got)
		}
	}
}

func TestMerge_KeyOnlyRowsSkipUpdate(t *testing.T) {
	got := Merge("[dbo].[Tags]", []string{"Id"}, []string{"Id"}, "")

	if strings.Contains(got, "WHEN MATCHED") {
		t.Errorf("unexpected update clause:\n%s", got)
	}

	if !strings.HasSuffix(got, ";") {
		t.Errorf("merge must end with a terminator:\n%s", got)
	}
}

func TestMerge_IdentityIsNeverUpdated(t *testing.T) {
	got := Merge("[dbo].[Atms]", []string{"Id", "Serial", "Name"}, []string{"Serial"}, "Id")

	if strings.Contains(got, "target.[Id] = source.[Id]") {
		t.Errorf("identity column must not be updated:\n%s", got)
	}

	if !strings.Contains(got, "UPDATE SET target.[Name] = source.[Name]") {
		t.Errorf("expected Name update:\n%s", got)
	}
}

func TestSelectAndMaintenance(t *testing.T) {
	table := QualifiedName("dbo", "Banks")

	cases := map[string]string{
		Select(table, []string{"Id", "Name"}, []string{"Id"}): "SELECT [Id], [Name] FROM [dbo].[Banks] ORDER BY [Id]",
		Select(table, []string{"Name"}, nil):                   "SELECT [Name] FROM [dbo].[Banks]",
		Count(table):                                           "SELECT COUNT_BIG(*) FROM [dbo].[Banks]",
		IdentityInsert(table, true):                            "SET IDENTITY_INSERT [dbo].[Banks] ON",
		IdentityInsert(table, false):                           "SET IDENTITY_INSERT [dbo].[Banks] OFF",
		DisableConstraints(table):                              "ALTER TABLE [dbo].[Banks] NOCHECK CONSTRAINT ALL",
		EnableConstraints(table):                               "ALTER TABLE [dbo].[Banks] CHECK CONSTRAINT ALL",
		Truncate(table):                                        "TRUNCATE TABLE [dbo].[Banks]",
		DeleteAll(table):                                       "DELETE FROM [dbo].[Banks]",
	}

	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
