package generator

import (
	"reflect"
	"strings"
	"testing"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

func TestSQLiteCreateTableRowidPK(t *testing.T) {
	g := &SQLiteGenerator{}
	s := &schema.Schema{
		Tables: []schema.Table{{
			Name: "users",
			Columns: []schema.Column{
				{Name: "id", Type: sqltype.Integer{}, AutoIncrement: true},
				{Name: "status", Type: sqltype.Enum{Name: "user_status"}},
			},
			Constraints: []schema.Constraint{schema.PrimaryKey{Columns: []string{"id"}}},
		}},
		Enums: []schema.EnumDefinition{{Name: "user_status", Values: []string{"active", "banned"}}},
	}

	got := g.CreateTable(s, &s.Tables[0])
	want := []string{`CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    status TEXT NOT NULL CHECK (status IN ('active', 'banned'))
);`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CreateTable:\ngot  %q\nwant %q", got, want)
	}
}

func TestSQLitePureRenameStaysNative(t *testing.T) {
	g := &SQLiteGenerator{}
	oldCol := schema.Column{Name: "name", Type: sqltype.Text{}}
	newCol := schema.Column{Name: "full_name", Type: sqltype.Text{}, RenamedFrom: "name"}
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{oldCol}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{newCol}}}}
	td := diff.TableDiff{
		Table: "users",
		RenamedColumns: []diff.RenamedColumn{{
			OldName: "name",
			Old:     oldCol,
			New:     newCol,
			Changes: []diff.Change{diff.Renamed{OldName: "name", NewName: "full_name"}},
		}},
	}

	up, err := g.AlterTable(old, new, &td, Up)
	if err != nil {
		t.Fatalf("AlterTable: %v", err)
	}
	if up.Recreated {
		t.Error("pure rename must not recreate the table")
	}
	if len(up.Statements) != 1 || up.Statements[0] != "ALTER TABLE users RENAME COLUMN name TO full_name;" {
		t.Errorf("up = %q", up.Statements)
	}

	down, err := g.AlterTable(old, new, &td, Down)
	if err != nil {
		t.Fatalf("AlterTable down: %v", err)
	}
	if len(down.Statements) != 1 || down.Statements[0] != "ALTER TABLE users RENAME COLUMN full_name TO name;" {
		t.Errorf("down = %q", down.Statements)
	}
}

func TestSQLiteTypeChangeRecreatesTable(t *testing.T) {
	g := &SQLiteGenerator{}
	oldCol := schema.Column{Name: "score", Type: sqltype.Varchar{Length: 20}}
	newCol := schema.Column{Name: "score", Type: sqltype.Integer{}}
	old := &schema.Schema{Tables: []schema.Table{{
		Name:    "games",
		Columns: []schema.Column{{Name: "id", Type: sqltype.Integer{}}, oldCol},
		Indexes: []schema.Index{{Name: "idx_games_score", Columns: []string{"score"}}},
	}}}
	new := &schema.Schema{Tables: []schema.Table{{
		Name:    "games",
		Columns: []schema.Column{{Name: "id", Type: sqltype.Integer{}}, newCol},
		Indexes: []schema.Index{{Name: "idx_games_score", Columns: []string{"score"}}},
	}}}
	td := diff.TableDiff{
		Table: "games",
		ModifiedColumns: []diff.ColumnDiff{{
			Old:     oldCol,
			New:     newCol,
			Changes: []diff.Change{diff.TypeChanged{Old: oldCol.Type, New: newCol.Type}},
		}},
	}

	up, err := g.AlterTable(old, new, &td, Up)
	if err != nil {
		t.Fatalf("AlterTable: %v", err)
	}
	if !up.Recreated {
		t.Error("type change must go through recreation")
	}
	want := []string{
		"PRAGMA foreign_keys=OFF;",
		"BEGIN TRANSACTION;",
		"CREATE TABLE games_new (\n    id INTEGER NOT NULL,\n    score INTEGER NOT NULL\n);",
		"INSERT INTO games_new (id, score) SELECT id, score FROM games;",
		"DROP TABLE games;",
		"ALTER TABLE games_new RENAME TO games;",
		"CREATE INDEX idx_games_score ON games (score);",
		"COMMIT;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA foreign_key_check;",
	}
	if !reflect.DeepEqual(up.Statements, want) {
		t.Errorf("up:\ngot  %q\nwant %q", up.Statements, want)
	}
}

func TestSQLiteRecreationFoldsAllChanges(t *testing.T) {
	g := &SQLiteGenerator{}
	old := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "name", Type: sqltype.Text{}},
			{Name: "legacy", Type: sqltype.Text{}, Nullable: true},
		},
	}}}
	new := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "full_name", Type: sqltype.Varchar{Length: 200}, RenamedFrom: "name"},
			{Name: "bio", Type: sqltype.Text{}, Nullable: true},
		},
	}}}
	td := diff.TableDiff{
		Table:          "users",
		AddedColumns:   []string{"bio"},
		RemovedColumns: []string{"legacy"},
		RenamedColumns: []diff.RenamedColumn{{
			OldName: "name",
			Old:     old.Tables[0].Columns[1],
			New:     new.Tables[0].Columns[1],
			Changes: []diff.Change{
				diff.Renamed{OldName: "name", NewName: "full_name"},
				diff.TypeChanged{Old: sqltype.Text{}, New: sqltype.Varchar{Length: 200}},
			},
		}},
	}

	up, err := g.AlterTable(old, new, &td, Up)
	if err != nil {
		t.Fatalf("AlterTable: %v", err)
	}
	joined := strings.Join(up.Statements, "\n")
	if strings.Count(joined, "CREATE TABLE") != 1 {
		t.Errorf("all changes must fold into one recreation:\n%s", joined)
	}
	// Renamed column keeps its data; dropped column is not copied.
	wantInsert := "INSERT INTO users_new (id, full_name) SELECT id, name FROM users;"
	if !strings.Contains(joined, wantInsert) {
		t.Errorf("missing %q in:\n%s", wantInsert, joined)
	}

	down, err := g.AlterTable(old, new, &td, Down)
	if err != nil {
		t.Fatalf("AlterTable down: %v", err)
	}
	joinedDown := strings.Join(down.Statements, "\n")
	// legacy was dropped going up; there is no data to restore for it.
	wantDownInsert := "INSERT INTO users_new (id, name) SELECT id, full_name FROM users;"
	if !strings.Contains(joinedDown, wantDownInsert) {
		t.Errorf("missing %q in:\n%s", wantDownInsert, joinedDown)
	}
}

func TestSQLiteAddColumnNative(t *testing.T) {
	g := &SQLiteGenerator{}
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
		{Name: "note", Type: sqltype.Text{}, Nullable: true},
	}}}}
	td := diff.TableDiff{Table: "users", AddedColumns: []string{"note"}}

	up, err := g.AlterTable(old, new, &td, Up)
	if err != nil {
		t.Fatalf("AlterTable: %v", err)
	}
	if up.Recreated {
		t.Error("plain add must not recreate")
	}
	if len(up.Statements) != 1 || up.Statements[0] != "ALTER TABLE users ADD COLUMN note TEXT;" {
		t.Errorf("up = %q", up.Statements)
	}
}

func TestSQLiteRejectsNotNullAddWithoutDefault(t *testing.T) {
	g := &SQLiteGenerator{}
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
		{Name: "score", Type: sqltype.Varchar{Length: 20}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
		{Name: "score", Type: sqltype.Integer{}},
		{Name: "email", Type: sqltype.Text{}},
	}}}}
	td := diff.TableDiff{
		Table:        "users",
		AddedColumns: []string{"email"},
		ModifiedColumns: []diff.ColumnDiff{{
			Old:     old.Tables[0].Columns[1],
			New:     new.Tables[0].Columns[1],
			Changes: []diff.Change{diff.TypeChanged{Old: sqltype.Varchar{Length: 20}, New: sqltype.Integer{}}},
		}},
	}

	up, err := g.AlterTable(old, new, &td, Up)
	if err == nil {
		t.Fatalf("expected error, got statements %q", up.Statements)
	}
	if !strings.Contains(err.Error(), "email") {
		t.Errorf("error should name the column: %v", err)
	}
	if len(up.Statements) != 0 {
		t.Errorf("no SQL may be emitted on failure: %q", up.Statements)
	}
}

func TestSQLiteEnumAlterRecreatesUsingTables(t *testing.T) {
	g := &SQLiteGenerator{}
	s := &schema.Schema{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{
				{Name: "status", Type: sqltype.Enum{Name: "user_status"}},
			}},
			{Name: "posts", Columns: []schema.Column{
				{Name: "title", Type: sqltype.Text{}},
			}},
		},
		Enums: []schema.EnumDefinition{{Name: "user_status", Values: []string{"active", "pending"}}},
	}
	ed := diff.EnumDiff{
		Name:        "user_status",
		Kind:        diff.EnumAddValues,
		OldValues:   []string{"active"},
		NewValues:   []string{"active", "pending"},
		AddedValues: []string{"pending"},
	}

	got, err := g.EnumAlter(s, ed, false)
	if err != nil {
		t.Fatalf("EnumAlter: %v", err)
	}
	joined := strings.Join(got, "\n")
	if !strings.Contains(joined, "CREATE TABLE users_new") {
		t.Errorf("users must be recreated:\n%s", joined)
	}
	if strings.Contains(joined, "posts") {
		t.Errorf("posts does not use the enum and must be untouched:\n%s", joined)
	}
	if !strings.Contains(joined, "CHECK (status IN ('active', 'pending'))") {
		t.Errorf("new value list must land in the CHECK clause:\n%s", joined)
	}
}
