package sqltype

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a column type in the canonical declarative form used by
// schema documents, e.g. "varchar(255)", "decimal(10,2)", "enum(status)".
// Parse(Format(t)) yields a type structurally equal to t.
func Format(t Type) string {
	switch v := t.(type) {
	case Integer:
		if v.Precision > 0 {
			return fmt.Sprintf("integer(%d)", v.Precision)
		}
		return "integer"
	case Varchar:
		return fmt.Sprintf("varchar(%d)", v.Length)
	case Char:
		return fmt.Sprintf("char(%d)", v.Length)
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Timestamp:
		if v.WithTimeZone {
			return "timestamptz"
		}
		return "timestamp"
	case Date:
		return "date"
	case Time:
		if v.WithTimeZone {
			return "timetz"
		}
		return "time"
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", v.Precision, v.Scale)
	case Float:
		return "float"
	case Double:
		return "double"
	case JSON:
		return "json"
	case JSONB:
		return "jsonb"
	case Blob:
		return "blob"
	case UUID:
		return "uuid"
	case Enum:
		return fmt.Sprintf("enum(%s)", v.Name)
	case DialectSpecific:
		if len(v.Params) == 0 {
			return v.Kind
		}
		parts := make([]string, len(v.Params))
		for i, p := range v.Params {
			parts[i] = p.Value
		}
		return v.Kind + "(" + strings.Join(parts, ",") + ")"
	}
	return "text"
}

// Parse converts the declarative textual form back into a column type.
// Names the engine does not recognize become DialectSpecific pass-through
// types; only malformed parameters on recognized types are an error.
func Parse(s string) (Type, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, &MappingError{Kind: InvalidParameters, RawType: s, Reason: "empty type"}
	}

	name, args, err := splitTypeArgs(raw)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(name) {
	case "integer", "int", "bigint", "smallint":
		p, err := optionalIntArg(raw, args)
		if err != nil {
			return nil, err
		}
		return Integer{Precision: p}, nil
	case "varchar", "character varying", "string":
		n, err := requiredIntArg(raw, args)
		if err != nil {
			return nil, err
		}
		return Varchar{Length: n}, nil
	case "char", "character":
		n, err := requiredIntArg(raw, args)
		if err != nil {
			return nil, err
		}
		return Char{Length: n}, nil
	case "text":
		return Text{}, nil
	case "boolean", "bool":
		return Boolean{}, nil
	case "timestamp":
		return Timestamp{}, nil
	case "timestamptz":
		return Timestamp{WithTimeZone: true}, nil
	case "date":
		return Date{}, nil
	case "time":
		return Time{}, nil
	case "timetz":
		return Time{WithTimeZone: true}, nil
	case "decimal", "numeric":
		if len(args) != 2 {
			return nil, &MappingError{
				Kind:    InvalidParameters,
				RawType: raw,
				Reason:  "decimal requires precision and scale",
			}
		}
		p, err1 := strconv.Atoi(args[0])
		sc, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return nil, &MappingError{
				Kind:    InvalidParameters,
				RawType: raw,
				Reason:  "decimal parameters must be integers",
			}
		}
		return Decimal{Precision: p, Scale: sc}, nil
	case "float", "real":
		return Float{}, nil
	case "double", "double precision":
		return Double{}, nil
	case "json":
		return JSON{}, nil
	case "jsonb":
		return JSONB{}, nil
	case "blob", "bytea", "binary":
		return Blob{}, nil
	case "uuid":
		return UUID{}, nil
	case "enum":
		if len(args) != 1 || args[0] == "" {
			return nil, &MappingError{
				Kind:    InvalidParameters,
				RawType: raw,
				Reason:  "enum requires exactly one type name",
			}
		}
		return Enum{Name: args[0]}, nil
	}

	// Unknown kind: pass through verbatim, trusting the database to reject
	// invalid types at execution time.
	params := make([]Param, len(args))
	for i, a := range args {
		params[i] = Param{Value: a, Quoted: !isNumeric(a)}
	}
	return DialectSpecific{Kind: name, Params: params}, nil
}

// splitTypeArgs splits "kind(a,b,c)" into the kind and its arguments.
func splitTypeArgs(raw string) (string, []string, error) {
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return raw, nil, nil
	}
	if !strings.HasSuffix(raw, ")") {
		return "", nil, &MappingError{
			Kind:    InvalidParameters,
			RawType: raw,
			Reason:  "unbalanced parentheses",
		}
	}
	name := strings.TrimSpace(raw[:open])
	inner := raw[open+1 : len(raw)-1]
	if strings.TrimSpace(inner) == "" {
		return "", nil, &MappingError{
			Kind:    InvalidParameters,
			RawType: raw,
			Reason:  "empty parameter list",
		}
	}
	parts := strings.Split(inner, ",")
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = strings.Trim(strings.TrimSpace(p), "'")
	}
	return name, args, nil
}

func requiredIntArg(raw string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, &MappingError{
			Kind:    InvalidParameters,
			RawType: raw,
			Reason:  "exactly one length parameter required",
		}
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, &MappingError{
			Kind:    InvalidParameters,
			RawType: raw,
			Reason:  "length must be an integer",
		}
	}
	return n, nil
}

func optionalIntArg(raw string, args []string) (int, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, &MappingError{
				Kind:    InvalidParameters,
				RawType: raw,
				Reason:  "precision must be an integer",
			}
		}
		return n, nil
	}
	return 0, &MappingError{
		Kind:    InvalidParameters,
		RawType: raw,
		Reason:  "at most one precision parameter allowed",
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
