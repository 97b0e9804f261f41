package schema

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/schemaforge/schemaforge/internal/sqltype"
)

const sampleDoc = `
version: "2"
tables:
  users:
    columns:
      - name: id
        type: integer
        nullable: false
        auto_increment: true
      - name: email
        type: varchar(255)
        nullable: false
      - name: status
        type: enum(user_status)
        nullable: false
        default: active
      - name: bio
        type: text
    primary_key: [id]
    indexes:
      - name: idx_users_email
        columns: [email]
        unique: true
  posts:
    columns:
      - name: id
        type: integer
        nullable: false
      - name: user_id
        type: integer
        nullable: false
      - name: body
        type: text
    primary_key: [id]
    constraints:
      - name: fk_posts_user
        type: foreign_key
        columns: [user_id]
        referenced_table: users
        referenced_columns: [id]
enums:
  user_status: [active, suspended, deleted]
`

func TestParseDocument(t *testing.T) {
	s, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if s.Version != "2" {
		t.Errorf("Version = %q, want %q", s.Version, "2")
	}
	if len(s.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(s.Tables))
	}
	if s.Tables[0].Name != "users" || s.Tables[1].Name != "posts" {
		t.Errorf("table order = %q, %q; want users, posts", s.Tables[0].Name, s.Tables[1].Name)
	}

	users := s.Table("users")
	if users == nil {
		t.Fatal("users table not found")
	}
	if len(users.Columns) != 4 {
		t.Fatalf("users columns = %d, want 4", len(users.Columns))
	}

	id := users.Column("id")
	if id == nil || !id.AutoIncrement || id.Nullable {
		t.Errorf("id column = %+v, want non-nullable auto-increment", id)
	}
	if _, ok := id.Type.(sqltype.Integer); !ok {
		t.Errorf("id type = %#v, want Integer", id.Type)
	}

	bio := users.Column("bio")
	if bio == nil || !bio.Nullable {
		t.Error("bio should default to nullable")
	}

	status := users.Column("status")
	if e, ok := status.Type.(sqltype.Enum); !ok || e.Name != "user_status" {
		t.Errorf("status type = %#v, want enum user_status", status.Type)
	}
	if status.Default == nil || *status.Default != "active" {
		t.Errorf("status default = %v, want active", status.Default)
	}

	pk := users.PrimaryKey()
	if pk == nil || len(pk.Columns) != 1 || pk.Columns[0] != "id" {
		t.Errorf("users primary key = %+v, want [id]", pk)
	}

	posts := s.Table("posts")
	var fk *ForeignKey
	for _, c := range posts.Constraints {
		if f, ok := c.(ForeignKey); ok {
			fk = &f
		}
	}
	if fk == nil {
		t.Fatal("posts foreign key not found")
	}
	if fk.ReferencedTable != "users" || fk.ReferencedColumns[0] != "id" {
		t.Errorf("fk = %+v, want reference to users(id)", fk)
	}

	if len(s.Enums) != 1 || s.Enums[0].Name != "user_status" {
		t.Fatalf("enums = %+v, want user_status", s.Enums)
	}
	want := []string{"active", "suspended", "deleted"}
	for i, v := range want {
		if s.Enums[0].Values[i] != v {
			t.Errorf("enum value[%d] = %q, want %q", i, s.Enums[0].Values[i], v)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			"duplicate table",
			"tables:\n  a:\n    columns:\n      - {name: x, type: text}\n  a:\n    columns:\n      - {name: x, type: text}\n",
			"duplicate table",
		},
		{
			"duplicate column",
			"tables:\n  a:\n    columns:\n      - {name: x, type: text}\n      - {name: x, type: text}\n",
			"duplicate column",
		},
		{
			"no columns",
			"tables:\n  a: {}\n",
			"no columns",
		},
		{
			"bad type",
			"tables:\n  a:\n    columns:\n      - {name: x, type: 'varchar()'}\n",
			"invalid parameters",
		},
		{
			"pk in constraints",
			"tables:\n  a:\n    columns:\n      - {name: x, type: text}\n    constraints:\n      - {type: primary_key, columns: [x]}\n",
			"primary_key field",
		},
		{
			"unknown constraint",
			"tables:\n  a:\n    columns:\n      - {name: x, type: text}\n    constraints:\n      - {type: exclusion, columns: [x]}\n",
			"unknown constraint",
		},
		{
			"not yaml",
			"tables: [a: b:\n",
			"invalid YAML",
		},
	}

	for _, c := range cases {
		_, err := Parse([]byte(c.doc))
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: error %q does not mention %q", c.name, err, c.want)
		}
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	original, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}

	if !SchemasEqual(original, reparsed) {
		t.Errorf("round trip changed the schema\noriginal: %+v\nreparsed: %+v", original, reparsed)
	}
}

func TestRoundTripPreservesRenameHint(t *testing.T) {
	doc := `
tables:
  users:
    columns:
      - name: user_name
        type: varchar(50)
        nullable: false
        renamed_from: name
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := s.Tables[0].Columns[0].RenamedFrom; got != "name" {
		t.Fatalf("RenamedFrom = %q, want name", got)
	}

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got := reparsed.Tables[0].Columns[0].RenamedFrom; got != "name" {
		t.Errorf("RenamedFrom after round trip = %q, want name", got)
	}
}

func TestWriteAndLoadFile(t *testing.T) {
	s, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := WriteFile(s, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !SchemasEqual(s, loaded) {
		t.Error("file round trip changed the schema")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := LoadFile("/nonexistent/schema.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestDialectSpecificPassThrough(t *testing.T) {
	doc := `
tables:
  places:
    columns:
      - name: location
        type: geometry(point,4326)
        nullable: true
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ds, ok := s.Tables[0].Columns[0].Type.(sqltype.DialectSpecific)
	if !ok {
		t.Fatalf("type = %#v, want DialectSpecific", s.Tables[0].Columns[0].Type)
	}
	if ds.Kind != "geometry" || len(ds.Params) != 2 {
		t.Errorf("pass-through = %+v", ds)
	}

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !SchemasEqual(s, reparsed) {
		t.Error("dialect-specific type did not survive the round trip")
	}
}
