package db

import (
	"reflect"
	"testing"
	"time"

	"github.com/schemaforge/schemaforge/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "appdb",
		Username: "svc",
		Password: "hunter2",
	}
	got := PostgresDSN(cfg)
	want := "host=db.internal port=5432 dbname=appdb user=svc password=hunter2 default_query_exec_mode=simple_protocol sslmode=disable"
	if got != want {
		t.Errorf("PostgresDSN = %q, want %q", got, want)
	}

	cfg.SSL = true
	if got := PostgresDSN(cfg); got != want[:len(want)-len("disable")]+"require" {
		t.Errorf("PostgresDSN with SSL = %q", got)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		Database: "appdb",
		Username: "svc",
		Password: "hunter2",
	}
	got := MySQLDSN(cfg)
	want := "svc:hunter2@tcp(localhost:3306)/appdb?parseTime=true&multiStatements=true"
	if got != want {
		t.Errorf("MySQLDSN = %q, want %q", got, want)
	}

	cfg.SSL = true
	if got := MySQLDSN(cfg); got != want+"&tls=true" {
		t.Errorf("MySQLDSN with SSL = %q", got)
	}
}

func TestParseEnumValues(t *testing.T) {
	tests := []struct {
		columnType string
		want       []string
	}{
		{"enum('active','banned')", []string{"active", "banned"}},
		{"enum('a')", []string{"a"}},
		{"enum('it''s','plain')", []string{"it's", "plain"}},
		{"varchar(100)", nil},
		{"enum()", nil},
	}
	for _, tt := range tests {
		got := parseEnumValues(tt.columnType)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseEnumValues(%q) = %v, want %v", tt.columnType, got, tt.want)
		}
	}
}

func TestNormalizePostgresDefault(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		in   *string
		want *string
	}{
		{nil, nil},
		{str("'active'::character varying"), str("active")},
		{str("'it''s'::text"), str("it's")},
		{str("0"), str("0")},
		{str("now()"), str("now()")},
	}
	for _, tt := range tests {
		got := normalizePostgresDefault(tt.in)
		switch {
		case got == nil && tt.want == nil:
		case got == nil || tt.want == nil || *got != *tt.want:
			t.Errorf("normalizePostgresDefault(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsSequenceDefault(t *testing.T) {
	seq := "nextval('users_id_seq'::regclass)"
	if !isSequenceDefault(&seq) {
		t.Error("nextval default not recognized as sequence")
	}
	plain := "0"
	if isSequenceDefault(&plain) {
		t.Error("plain default misread as sequence")
	}
	if isSequenceDefault(nil) {
		t.Error("nil default misread as sequence")
	}
}

func TestEnumChecksFromSQL(t *testing.T) {
	sql := `CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'banned')),
	name TEXT
);`
	got := enumChecksFromSQL(sql)
	want := map[string][]string{"status": {"active", "banned"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("enumChecksFromSQL = %v, want %v", got, want)
	}

	if got := enumChecksFromSQL("CREATE TABLE t (id INTEGER)"); got != nil {
		t.Errorf("table without checks produced %v", got)
	}
}

func TestUnquoteSQLiteDefault(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"'active'", "active"},
		{"'it''s'", "it's"},
		{"0", "0"},
		{"CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP"},
	}
	for _, tt := range tests {
		if got := unquoteSQLiteDefault(tt.in); *got != tt.want {
			t.Errorf("unquoteSQLiteDefault(%q) = %q, want %q", tt.in, *got, tt.want)
		}
	}
}

func TestAppliedSet(t *testing.T) {
	rows := []AppliedMigration{
		{Version: "20240101120000_init", AppliedAt: time.Now()},
		{Version: "20240201120000_add_users", AppliedAt: time.Now()},
	}
	set := AppliedSet(rows)
	if len(set) != 2 || !set["20240101120000_init"] || !set["20240201120000_add_users"] {
		t.Errorf("AppliedSet = %v", set)
	}
}
