package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
)

func mustPipeline(t *testing.T, d sqltype.Dialect, allowDestructive bool) *Pipeline {
	t.Helper()
	p, err := New(d, allowDestructive)
	if err != nil {
		t.Fatalf("New(%s): %v", d, err)
	}
	return p
}

func detect(t *testing.T, old, new *schema.Schema) *diff.SchemaDiff {
	t.Helper()
	d, _ := diff.Detect(old, new)
	return &d
}

func TestPipelineRenamePostgres(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "name", Type: sqltype.Varchar{Length: 100}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "user_name", Type: sqltype.Varchar{Length: 100}, RenamedFrom: "name"},
	}}}}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if up != "ALTER TABLE users RENAME COLUMN name TO user_name;" {
		t.Errorf("up = %q", up)
	}

	down, _, err := p.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}
	if down != "ALTER TABLE users RENAME COLUMN user_name TO name;" {
		t.Errorf("down = %q", down)
	}
}

func TestPipelineMySQLRenameUsesChangeColumn(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "name", Type: sqltype.Varchar{Length: 100}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "user_name", Type: sqltype.Varchar{Length: 100}, RenamedFrom: "name"},
	}}}}
	p := mustPipeline(t, sqltype.MySQL, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if up != "ALTER TABLE users CHANGE COLUMN name user_name VARCHAR(100) NOT NULL;" {
		t.Errorf("up = %q", up)
	}

	down, _, err := p.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}
	if down != "ALTER TABLE users CHANGE COLUMN user_name name VARCHAR(100) NOT NULL;" {
		t.Errorf("down = %q", down)
	}
}

func TestPipelineStageOrdering(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{
		{Name: "users", Columns: []schema.Column{{Name: "id", Type: sqltype.Integer{}}}},
		{Name: "logs", Columns: []schema.Column{{Name: "id", Type: sqltype.Integer{}}}},
	}}
	new := &schema.Schema{
		Tables: []schema.Table{
			{Name: "users", Columns: []schema.Column{{Name: "id", Type: sqltype.Integer{}}}},
			{
				Name: "posts",
				Columns: []schema.Column{
					{Name: "id", Type: sqltype.Integer{}},
					{Name: "author_id", Type: sqltype.Integer{}},
					{Name: "state", Type: sqltype.Enum{Name: "post_state"}},
				},
				Indexes: []schema.Index{{Name: "idx_posts_author", Columns: []string{"author_id"}}},
				Constraints: []schema.Constraint{
					schema.ForeignKey{Name: "fk_posts_author", Columns: []string{"author_id"},
						ReferencedTable: "users", ReferencedColumns: []string{"id"}},
				},
			},
		},
		Enums: []schema.EnumDefinition{{Name: "post_state", Values: []string{"draft", "published"}}},
	}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}

	createType := strings.Index(up, "CREATE TYPE post_state")
	createTable := strings.Index(up, "CREATE TABLE posts")
	createIndex := strings.Index(up, "CREATE INDEX idx_posts_author")
	dropTable := strings.Index(up, "DROP TABLE logs")
	for name, pos := range map[string]int{
		"CREATE TYPE": createType, "CREATE TABLE": createTable,
		"CREATE INDEX": createIndex, "DROP TABLE": dropTable,
	} {
		if pos < 0 {
			t.Fatalf("missing %s in:\n%s", name, up)
		}
	}
	if !(createType < createTable && createTable < createIndex && createIndex < dropTable) {
		t.Errorf("stage order wrong:\n%s", up)
	}

	down, _, err := p.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}
	// Down restores the dropped table first and removes the enum last.
	restore := strings.Index(down, "CREATE TABLE logs")
	dropPosts := strings.Index(down, "DROP TABLE posts")
	dropType := strings.Index(down, "DROP TYPE post_state")
	if restore < 0 || dropPosts < 0 || dropType < 0 {
		t.Fatalf("missing statements in down:\n%s", down)
	}
	if !(restore < dropPosts && dropPosts < dropType) {
		t.Errorf("down stage order wrong:\n%s", down)
	}
}

func TestPipelineIncompatibleTypeChangeAborts(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{Name: "events", Columns: []schema.Column{
		{Name: "at", Type: sqltype.Timestamp{}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "events", Columns: []schema.Column{
		{Name: "at", Type: sqltype.Integer{}},
	}}}}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err == nil {
		t.Fatalf("expected error, got SQL:\n%s", up)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StagePrepare {
		t.Errorf("error = %v, want stage %s", err, StagePrepare)
	}
	if up != "" {
		t.Errorf("no partial SQL may be returned: %q", up)
	}
}

func TestPipelineSQLiteNotNullAddAborts(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
		{Name: "score", Type: sqltype.Varchar{Length: 20}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
		{Name: "score", Type: sqltype.Integer{}},
		{Name: "email", Type: sqltype.Text{}},
	}}}}
	p := mustPipeline(t, sqltype.SQLite, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err == nil {
		t.Fatalf("expected error, got SQL:\n%s", up)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Stage != StageTables {
		t.Errorf("error = %v, want stage %s", err, StageTables)
	}
	if up != "" {
		t.Errorf("no partial SQL may be returned: %q", up)
	}
}

func TestPipelineSurfacesShrinkWarning(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "email", Type: sqltype.Varchar{Length: 255}},
	}}}}
	new := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "email", Type: sqltype.Varchar{Length: 100}},
	}}}}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	up, result, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if up == "" {
		t.Fatal("shrink must still generate SQL")
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0].Message, "shrink") {
		t.Errorf("Warnings = %+v, want one shrink warning", result.Warnings)
	}
}

func TestPipelineEnumAddValuePostgres(t *testing.T) {
	old := &schema.Schema{
		Enums: []schema.EnumDefinition{{Name: "status", Values: []string{"active", "banned"}}},
	}
	new := &schema.Schema{
		Enums: []schema.EnumDefinition{{Name: "status", Values: []string{"active", "pending", "banned"}}},
	}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if up != "ALTER TYPE status ADD VALUE 'pending' BEFORE 'banned';" {
		t.Errorf("up = %q", up)
	}

	// Rolling the addition back needs a recreation, gated on the
	// destructive flag.
	if _, _, err := p.GenerateDownSQL(d, old, new); err == nil {
		t.Error("down without allowDestructive should fail")
	}
	pd := mustPipeline(t, sqltype.Postgres, true)
	down, _, err := pd.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}
	if !strings.Contains(down, "CREATE TYPE status AS ENUM ('active', 'banned');") {
		t.Errorf("down must restore the old value list:\n%s", down)
	}
}

func TestPipelineEmptyDiffProducesNoSQL(t *testing.T) {
	s := &schema.Schema{Tables: []schema.Table{{Name: "users", Columns: []schema.Column{
		{Name: "id", Type: sqltype.Integer{}},
	}}}}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, s, s)

	up, _, err := p.GenerateUpSQL(d, s, s)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if up != "" {
		t.Errorf("empty diff must produce no SQL, got %q", up)
	}
}

func TestPipelineDownRestoresColumnBeforeItsIndex(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "age", Type: sqltype.Integer{}},
		},
		Indexes: []schema.Index{{Name: "idx_users_age", Columns: []string{"age"}}},
		Constraints: []schema.Constraint{
			schema.Unique{Name: "uq_users_age", Columns: []string{"age"}},
		},
	}}}
	new := &schema.Schema{Tables: []schema.Table{{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
		},
	}}}
	p := mustPipeline(t, sqltype.Postgres, false)
	d := detect(t, old, new)

	down, _, err := p.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}

	addColumn := strings.Index(down, "ADD COLUMN age")
	createIndex := strings.Index(down, "CREATE INDEX idx_users_age")
	addConstraint := strings.Index(down, "uq_users_age")
	if addColumn < 0 || createIndex < 0 || addConstraint < 0 {
		t.Fatalf("missing statements in down:\n%s", down)
	}
	// The column must exist again before anything references it.
	if createIndex < addColumn {
		t.Errorf("index restored before its column:\n%s", down)
	}
	if addConstraint < addColumn {
		t.Errorf("constraint restored before its column:\n%s", down)
	}
}

func TestPipelineSQLiteRecreationSkipsIndexRestoreGoingDown(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{
		Name: "games",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "score", Type: sqltype.Varchar{Length: 20}},
		},
		Indexes: []schema.Index{{Name: "idx_games_score", Columns: []string{"score"}}},
	}}}
	new := &schema.Schema{Tables: []schema.Table{{
		Name: "games",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "score", Type: sqltype.Integer{}},
		},
	}}}
	p := mustPipeline(t, sqltype.SQLite, false)
	d := detect(t, old, new)

	down, _, err := p.GenerateDownSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateDownSQL: %v", err)
	}
	if got := strings.Count(down, "CREATE INDEX idx_games_score"); got != 1 {
		t.Errorf("index must be created exactly once during recreation, got %d:\n%s", got, down)
	}
}

func TestPipelineSQLiteRecreationSkipsIndexStage(t *testing.T) {
	old := &schema.Schema{Tables: []schema.Table{{
		Name: "games",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "score", Type: sqltype.Varchar{Length: 20}},
		},
	}}}
	new := &schema.Schema{Tables: []schema.Table{{
		Name: "games",
		Columns: []schema.Column{
			{Name: "id", Type: sqltype.Integer{}},
			{Name: "score", Type: sqltype.Integer{}},
		},
		Indexes: []schema.Index{{Name: "idx_games_score", Columns: []string{"score"}}},
	}}}
	p := mustPipeline(t, sqltype.SQLite, false)
	d := detect(t, old, new)

	up, _, err := p.GenerateUpSQL(d, old, new)
	if err != nil {
		t.Fatalf("GenerateUpSQL: %v", err)
	}
	if got := strings.Count(up, "CREATE INDEX idx_games_score"); got != 1 {
		t.Errorf("index must be created exactly once during recreation, got %d:\n%s", got, up)
	}
}
