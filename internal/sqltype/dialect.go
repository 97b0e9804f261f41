package sqltype

import (
	"fmt"
	"strings"
)

// ToSQL renders a column type in the target dialect's native syntax.
// Total over every type: unknown DialectSpecific kinds are passed through
// as-is. Enum columns render as the bare type name on PostgreSQL; the other
// dialects emulate enums in the generator (inline ENUM(...) on MySQL, TEXT
// plus CHECK on SQLite), so here they fall back to TEXT.
func ToSQL(t Type, d Dialect) string {
	switch v := t.(type) {
	case Integer:
		if d == MySQL && v.Precision > 0 {
			return fmt.Sprintf("INT(%d)", v.Precision)
		}
		if d == MySQL {
			return "INT"
		}
		return "INTEGER"
	case Varchar:
		if d == SQLite {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", v.Length)
	case Char:
		if d == SQLite {
			return "TEXT"
		}
		return fmt.Sprintf("CHAR(%d)", v.Length)
	case Text:
		return "TEXT"
	case Boolean:
		switch d {
		case MySQL:
			return "TINYINT(1)"
		case SQLite:
			return "INTEGER"
		}
		return "BOOLEAN"
	case Timestamp:
		if d == Postgres && v.WithTimeZone {
			return "TIMESTAMP WITH TIME ZONE"
		}
		return "TIMESTAMP"
	case Date:
		return "DATE"
	case Time:
		if d == Postgres && v.WithTimeZone {
			return "TIME WITH TIME ZONE"
		}
		return "TIME"
	case Decimal:
		switch d {
		case Postgres:
			return fmt.Sprintf("NUMERIC(%d,%d)", v.Precision, v.Scale)
		case MySQL:
			return fmt.Sprintf("DECIMAL(%d,%d)", v.Precision, v.Scale)
		}
		// SQLite would store DECIMAL with floating-point affinity; TEXT
		// preserves exact digits.
		return "TEXT"
	case Float:
		switch d {
		case MySQL:
			return "FLOAT"
		case SQLite:
			return "REAL"
		}
		return "REAL"
	case Double:
		switch d {
		case Postgres:
			return "DOUBLE PRECISION"
		case MySQL:
			return "DOUBLE"
		}
		return "REAL"
	case JSON:
		if d == SQLite {
			return "TEXT"
		}
		return "JSON"
	case JSONB:
		switch d {
		case Postgres:
			return "JSONB"
		case MySQL:
			return "JSON"
		}
		return "TEXT"
	case Blob:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	case UUID:
		switch d {
		case Postgres:
			return "UUID"
		case MySQL:
			return "CHAR(36)"
		}
		return "TEXT"
	case Enum:
		if d == Postgres {
			return quoteIdent(v.Name)
		}
		return "TEXT"
	case DialectSpecific:
		if len(v.Params) == 0 {
			return v.Kind
		}
		parts := make([]string, len(v.Params))
		for i, p := range v.Params {
			if p.Quoted {
				parts[i] = "'" + strings.ReplaceAll(p.Value, "'", "''") + "'"
			} else {
				parts[i] = p.Value
			}
		}
		return v.Kind + "(" + strings.Join(parts, ",") + ")"
	}
	return "TEXT"
}

// FallbackNote reports how a mapping loses fidelity on the given dialect.
// Empty when the mapping is faithful. The schema validator turns non-empty
// notes into warnings.
func FallbackNote(t Type, d Dialect) string {
	switch v := t.(type) {
	case Decimal:
		if d == SQLite {
			return fmt.Sprintf("DECIMAL(%d,%d) is stored as TEXT on SQLite; precision is not enforced by the engine", v.Precision, v.Scale)
		}
	case UUID:
		switch d {
		case MySQL:
			return "UUID is stored as CHAR(36) on MySQL; uniqueness of format is not enforced"
		case SQLite:
			return "UUID is stored as TEXT on SQLite"
		}
	case JSONB:
		switch d {
		case MySQL:
			return "JSONB falls back to JSON on MySQL; binary storage semantics are lost"
		case SQLite:
			return "JSONB is stored as TEXT on SQLite; no JSON validation is performed"
		}
	case JSON:
		if d == SQLite {
			return "JSON is stored as TEXT on SQLite; no JSON validation is performed"
		}
	case Time:
		if v.WithTimeZone && d != Postgres {
			return "TIME WITH TIME ZONE is only supported on PostgreSQL; the time zone flag is ignored"
		}
	case Timestamp:
		if v.WithTimeZone && d != Postgres {
			return "TIMESTAMP WITH TIME ZONE is only supported on PostgreSQL; the time zone flag is ignored"
		}
	case Boolean:
		if d == SQLite {
			return "BOOLEAN is stored as INTEGER on SQLite"
		}
	case Varchar:
		if d == SQLite {
			return fmt.Sprintf("VARCHAR(%d) is stored as TEXT on SQLite; the length bound is not enforced", v.Length)
		}
	case Char:
		if d == SQLite {
			return fmt.Sprintf("CHAR(%d) is stored as TEXT on SQLite; the length is not enforced", v.Length)
		}
	}
	return ""
}

// quoteIdent double-quotes an identifier for PostgreSQL when it needs it.
func quoteIdent(name string) string {
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}
