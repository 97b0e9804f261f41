package sqltype

import "testing"

func TestFormatParseRoundTrip(t *testing.T) {
	types := []Type{
		Integer{},
		Integer{Precision: 11},
		Varchar{Length: 255},
		Char{Length: 2},
		Text{},
		Boolean{},
		Timestamp{},
		Timestamp{WithTimeZone: true},
		Date{},
		Time{},
		Time{WithTimeZone: true},
		Decimal{Precision: 10, Scale: 2},
		Float{},
		Double{},
		JSON{},
		JSONB{},
		Blob{},
		UUID{},
		Enum{Name: "status"},
		DialectSpecific{Kind: "geometry", Params: []Param{
			{Value: "point", Quoted: true},
			{Value: "4326"},
		}},
	}

	for _, typ := range types {
		text := Format(typ)
		parsed, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if !Equal(parsed, typ) {
			t.Errorf("round trip of %q: got %#v, want %#v", text, parsed, typ)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"varchar",
		"varchar()",
		"varchar(abc)",
		"decimal(10)",
		"decimal(a,b)",
		"enum()",
		"char(1",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q): expected error", c)
		}
	}
}

func TestParseUnknownKindPassesThrough(t *testing.T) {
	typ, err := Parse("tsvector")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ds, ok := typ.(DialectSpecific)
	if !ok {
		t.Fatalf("expected DialectSpecific, got %#v", typ)
	}
	if ds.Kind != "tsvector" || len(ds.Params) != 0 {
		t.Errorf("unexpected pass-through: %#v", ds)
	}
}

func TestToSQL(t *testing.T) {
	cases := []struct {
		typ  Type
		d    Dialect
		want string
	}{
		{Integer{}, Postgres, "INTEGER"},
		{Integer{}, MySQL, "INT"},
		{Integer{Precision: 11}, MySQL, "INT(11)"},
		{Integer{}, SQLite, "INTEGER"},
		{Varchar{Length: 100}, Postgres, "VARCHAR(100)"},
		{Varchar{Length: 100}, SQLite, "TEXT"},
		{Decimal{Precision: 10, Scale: 2}, Postgres, "NUMERIC(10,2)"},
		{Decimal{Precision: 10, Scale: 2}, MySQL, "DECIMAL(10,2)"},
		{Decimal{Precision: 10, Scale: 2}, SQLite, "TEXT"},
		{Boolean{}, Postgres, "BOOLEAN"},
		{Boolean{}, MySQL, "TINYINT(1)"},
		{Boolean{}, SQLite, "INTEGER"},
		{UUID{}, Postgres, "UUID"},
		{UUID{}, MySQL, "CHAR(36)"},
		{UUID{}, SQLite, "TEXT"},
		{JSONB{}, Postgres, "JSONB"},
		{JSONB{}, MySQL, "JSON"},
		{JSONB{}, SQLite, "TEXT"},
		{Time{WithTimeZone: true}, Postgres, "TIME WITH TIME ZONE"},
		{Time{WithTimeZone: true}, MySQL, "TIME"},
		{Timestamp{WithTimeZone: true}, Postgres, "TIMESTAMP WITH TIME ZONE"},
		{Timestamp{WithTimeZone: true}, SQLite, "TIMESTAMP"},
		{Blob{}, Postgres, "BYTEA"},
		{Blob{}, MySQL, "BLOB"},
		{Double{}, Postgres, "DOUBLE PRECISION"},
		{Double{}, SQLite, "REAL"},
		{Enum{Name: "status"}, Postgres, "status"},
		{Enum{Name: "order status"}, Postgres, `"order status"`},
		{Enum{Name: "status"}, SQLite, "TEXT"},
		{DialectSpecific{Kind: "tsvector"}, Postgres, "tsvector"},
		{DialectSpecific{Kind: "geometry", Params: []Param{
			{Value: "point", Quoted: true},
			{Value: "4326"},
		}}, Postgres, "geometry('point',4326)"},
	}

	for _, c := range cases {
		if got := ToSQL(c.typ, c.d); got != c.want {
			t.Errorf("ToSQL(%#v, %s) = %q, want %q", c.typ, c.d, got, c.want)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		typ  Type
		want Category
	}{
		{Integer{}, CategoryNumeric},
		{Decimal{Precision: 10, Scale: 2}, CategoryNumeric},
		{Float{}, CategoryNumeric},
		{Double{}, CategoryNumeric},
		{Varchar{Length: 50}, CategoryString},
		{Char{Length: 1}, CategoryString},
		{Text{}, CategoryString},
		{Enum{Name: "status"}, CategoryString},
		{Timestamp{}, CategoryDateTime},
		{Date{}, CategoryDateTime},
		{Time{}, CategoryDateTime},
		{Blob{}, CategoryBinary},
		{JSON{}, CategoryJSON},
		{JSONB{}, CategoryJSON},
		{Boolean{}, CategoryBoolean},
		{UUID{}, CategoryUUID},
		{DialectSpecific{Kind: "tsvector"}, CategoryOther},
	}
	for _, c := range cases {
		if got := CategoryOf(c.typ); got != c.want {
			t.Errorf("CategoryOf(%#v) = %s, want %s", c.typ, got, c.want)
		}
	}
}

func TestFromSQL(t *testing.T) {
	n100 := 100
	n36 := 36
	p10, s2 := 10, 2

	cases := []struct {
		raw  string
		meta Metadata
		d    Dialect
		want Type
	}{
		{"integer", Metadata{}, Postgres, Integer{}},
		{"bigint", Metadata{}, Postgres, Integer{}},
		{"character varying", Metadata{CharMaxLength: &n100}, Postgres, Varchar{Length: 100}},
		{"varchar(100)", Metadata{CharMaxLength: &n100}, MySQL, Varchar{Length: 100}},
		{"numeric", Metadata{NumericPrecision: &p10, NumericScale: &s2}, Postgres, Decimal{Precision: 10, Scale: 2}},
		{"numeric", Metadata{}, Postgres, Decimal{}},
		{"timestamp with time zone", Metadata{}, Postgres, Timestamp{WithTimeZone: true}},
		{"uuid", Metadata{}, Postgres, UUID{}},
		{"char", Metadata{CharMaxLength: &n36}, MySQL, UUID{}},
		{"tinyint(1)", Metadata{NumericPrecision: func() *int { v := 1; return &v }()}, MySQL, Boolean{}},
		{"jsonb", Metadata{}, Postgres, JSONB{}},
		{"bytea", Metadata{}, Postgres, Blob{}},
		{"USER-DEFINED", Metadata{UDTName: "status"}, Postgres, Enum{Name: "status"}},
		{"enum('a','b')", Metadata{EnumValues: []string{"a", "b"}}, MySQL, Enum{}},
	}

	for _, c := range cases {
		got, err := FromSQL(c.raw, c.meta, c.d)
		if err != nil {
			t.Fatalf("FromSQL(%q): %v", c.raw, err)
		}
		if !Equal(got, c.want) {
			t.Errorf("FromSQL(%q) = %#v, want %#v", c.raw, got, c.want)
		}
	}
}

func TestFromSQLUnknown(t *testing.T) {
	_, err := FromSQL("hierarchyid", Metadata{}, Postgres)
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	me, ok := err.(*MappingError)
	if !ok {
		t.Fatalf("expected *MappingError, got %T", err)
	}
	if me.Kind != UnknownType {
		t.Errorf("Kind = %v, want UnknownType", me.Kind)
	}
}

func TestFallbackNote(t *testing.T) {
	if note := FallbackNote(Decimal{Precision: 10, Scale: 2}, SQLite); note == "" {
		t.Error("expected fallback note for DECIMAL on SQLite")
	}
	if note := FallbackNote(Decimal{Precision: 10, Scale: 2}, Postgres); note != "" {
		t.Errorf("unexpected note for DECIMAL on Postgres: %q", note)
	}
	if note := FallbackNote(Time{WithTimeZone: true}, MySQL); note == "" {
		t.Error("expected fallback note for TIMETZ on MySQL")
	}
	if note := FallbackNote(Integer{}, SQLite); note != "" {
		t.Errorf("unexpected note for INTEGER on SQLite: %q", note)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"postgresql": Postgres,
		"postgres":   Postgres,
		"pg":         Postgres,
		"mysql":      MySQL,
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
	}
	for in, want := range cases {
		got, ok := ParseDialect(in)
		if !ok || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseDialect("oracle"); ok {
		t.Error("ParseDialect should reject oracle")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Varchar{Length: 10}, Varchar{Length: 10}) {
		t.Error("identical varchars should be equal")
	}
	if Equal(Varchar{Length: 10}, Varchar{Length: 20}) {
		t.Error("different lengths should not be equal")
	}
	if Equal(Varchar{Length: 10}, Text{}) {
		t.Error("different kinds should not be equal")
	}
	a := DialectSpecific{Kind: "geometry", Params: []Param{{Value: "point", Quoted: true}}}
	b := DialectSpecific{Kind: "geometry", Params: []Param{{Value: "point", Quoted: true}}}
	if !Equal(a, b) {
		t.Error("identical dialect-specific types should be equal")
	}
	b.Params[0].Value = "polygon"
	if Equal(a, b) {
		t.Error("different params should not be equal")
	}
}
