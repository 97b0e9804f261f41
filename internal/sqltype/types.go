package sqltype

// Dialect identifies a supported SQL engine.
type Dialect string

const (
	Postgres Dialect = "postgresql"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// ParseDialect normalizes a user-supplied dialect name.
func ParseDialect(s string) (Dialect, bool) {
	switch s {
	case "postgresql", "postgres", "pg":
		return Postgres, true
	case "mysql", "mariadb":
		return MySQL, true
	case "sqlite", "sqlite3":
		return SQLite, true
	}
	return "", false
}

// Category is a coarse classification of column types used to judge
// type-change safety independent of the exact type.
type Category int

const (
	CategoryNumeric Category = iota
	CategoryString
	CategoryDateTime
	CategoryBinary
	CategoryJSON
	CategoryBoolean
	CategoryUUID
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryNumeric:
		return "numeric"
	case CategoryString:
		return "string"
	case CategoryDateTime:
		return "datetime"
	case CategoryBinary:
		return "binary"
	case CategoryJSON:
		return "json"
	case CategoryBoolean:
		return "boolean"
	case CategoryUUID:
		return "uuid"
	}
	return "other"
}

// Type is a column type. The set of implementations is closed: every
// consumer switches exhaustively over the concrete types below.
type Type interface {
	isType()
}

// Integer is a whole-number type. Precision is a display width hint
// (MySQL only); zero means the dialect default.
type Integer struct {
	Precision int `yaml:"precision,omitempty"`
}

// Varchar is a bounded variable-length string.
type Varchar struct {
	Length int `yaml:"length"`
}

// Char is a fixed-length string.
type Char struct {
	Length int `yaml:"length"`
}

// Text is an unbounded string.
type Text struct{}

// Boolean is a true/false type.
type Boolean struct{}

// Timestamp is a date-and-time type.
type Timestamp struct {
	WithTimeZone bool `yaml:"with_time_zone,omitempty"`
}

// Date is a calendar date without a time component.
type Date struct{}

// Time is a time-of-day type. WithTimeZone is honored by PostgreSQL only.
type Time struct {
	WithTimeZone bool `yaml:"with_time_zone,omitempty"`
}

// Decimal is an exact numeric with fixed precision and scale.
type Decimal struct {
	Precision int `yaml:"precision"`
	Scale     int `yaml:"scale"`
}

// Float is a single-precision floating point number.
type Float struct{}

// Double is a double-precision floating point number.
type Double struct{}

// JSON is a JSON document type.
type JSON struct{}

// JSONB is PostgreSQL's binary JSON type; other dialects fall back to JSON or TEXT.
type JSONB struct{}

// Blob is a raw byte string.
type Blob struct{}

// UUID is a universally unique identifier.
type UUID struct{}

// Enum references a named EnumDefinition in the schema.
type Enum struct {
	Name string `yaml:"name"`
}

// Param is one parameter of a DialectSpecific type. Quoted parameters are
// rendered inside single quotes, unquoted ones verbatim.
type Param struct {
	Value  string `yaml:"value"`
	Quoted bool   `yaml:"quoted,omitempty"`
}

// DialectSpecific is a pass-through type the engine does not interpret.
// It is emitted verbatim and validated only by the target database.
type DialectSpecific struct {
	Kind   string  `yaml:"kind"`
	Params []Param `yaml:"params,omitempty"`
}

func (Integer) isType()         {}
func (Varchar) isType()         {}
func (Char) isType()            {}
func (Text) isType()            {}
func (Boolean) isType()         {}
func (Timestamp) isType()       {}
func (Date) isType()            {}
func (Time) isType()            {}
func (Decimal) isType()         {}
func (Float) isType()           {}
func (Double) isType()          {}
func (JSON) isType()            {}
func (JSONB) isType()           {}
func (Blob) isType()            {}
func (UUID) isType()            {}
func (Enum) isType()            {}
func (DialectSpecific) isType() {}

// CategoryOf classifies a column type. Total over every Type.
func CategoryOf(t Type) Category {
	switch t.(type) {
	case Integer, Decimal, Float, Double:
		return CategoryNumeric
	case Varchar, Char, Text:
		return CategoryString
	case Timestamp, Date, Time:
		return CategoryDateTime
	case Blob:
		return CategoryBinary
	case JSON, JSONB:
		return CategoryJSON
	case Boolean:
		return CategoryBoolean
	case UUID:
		return CategoryUUID
	case Enum:
		// Enum values are strings on every dialect's wire format.
		return CategoryString
	}
	return CategoryOther
}

// Equal reports structural equality of two column types.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	da, aOK := a.(DialectSpecific)
	db, bOK := b.(DialectSpecific)
	if aOK != bOK {
		return false
	}
	if aOK {
		if da.Kind != db.Kind || len(da.Params) != len(db.Params) {
			return false
		}
		for i := range da.Params {
			if da.Params[i] != db.Params[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
