package sqltype

import "strings"

// Metadata carries the auxiliary per-column facts a database reports during
// introspection. Raw type names alone are ambiguous (PostgreSQL reports
// "numeric" for both constrained and unconstrained decimals, "USER-DEFINED"
// for enum columns), so the mapper needs these alongside the name.
type Metadata struct {
	CharMaxLength    *int
	NumericPrecision *int
	NumericScale     *int
	UDTName          string
	EnumValues       []string
}

// FromSQL maps a dialect-reported SQL type string back to a column type.
// Returns a MappingError with kind UnknownType when no rule matches; the
// export layer recovers with a TEXT fallback and a warning rather than
// failing the whole export.
func FromSQL(raw string, meta Metadata, d Dialect) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	// MySQL reports parameterized column types like "varchar(100)" or
	// "enum('a','b')"; strip the parameter list and keep the metadata.
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}

	switch name {
	case "integer", "int", "int4", "int8", "int2", "bigint", "smallint",
		"serial", "bigserial", "smallserial", "mediumint", "tinyint":
		if name == "tinyint" && meta.NumericPrecision != nil && *meta.NumericPrecision <= 1 {
			// MySQL convention: TINYINT(1) is a boolean.
			return Boolean{}, nil
		}
		return Integer{}, nil
	case "character varying", "varchar", "nvarchar":
		return Varchar{Length: intOr(meta.CharMaxLength, 255)}, nil
	case "character", "char", "bpchar", "nchar":
		n := intOr(meta.CharMaxLength, 1)
		if d == MySQL && n == 36 {
			return UUID{}, nil
		}
		return Char{Length: n}, nil
	case "text", "clob", "tinytext", "mediumtext", "longtext":
		return Text{}, nil
	case "boolean", "bool":
		return Boolean{}, nil
	case "timestamp", "datetime", "timestamp without time zone":
		return Timestamp{}, nil
	case "timestamptz", "timestamp with time zone":
		return Timestamp{WithTimeZone: true}, nil
	case "date":
		return Date{}, nil
	case "time", "time without time zone":
		return Time{}, nil
	case "timetz", "time with time zone":
		return Time{WithTimeZone: true}, nil
	case "numeric", "decimal":
		return Decimal{
			Precision: intOr(meta.NumericPrecision, 0),
			Scale:     intOr(meta.NumericScale, 0),
		}, nil
	case "real", "float4", "float":
		return Float{}, nil
	case "double precision", "double", "float8":
		return Double{}, nil
	case "json":
		return JSON{}, nil
	case "jsonb":
		return JSONB{}, nil
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "varbinary", "binary":
		return Blob{}, nil
	case "uuid":
		return UUID{}, nil
	case "enum":
		// MySQL inline enum; the export layer synthesizes the definition
		// from meta.EnumValues.
		if meta.UDTName != "" {
			return Enum{Name: meta.UDTName}, nil
		}
		return Enum{}, nil
	case "user-defined":
		// PostgreSQL enum or domain; the UDT name is the declared type.
		if meta.UDTName != "" {
			return Enum{Name: meta.UDTName}, nil
		}
	}

	return nil, &MappingError{Kind: UnknownType, RawType: raw}
}

func intOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}
