package sqltype

import "fmt"

// MappingErrorKind distinguishes the failure modes of type mapping.
type MappingErrorKind int

const (
	// UnknownType means no mapping rule matched the reported SQL type.
	UnknownType MappingErrorKind = iota
	// InvalidParameters means the type name matched but its parameters did not.
	InvalidParameters
)

func (k MappingErrorKind) String() string {
	if k == InvalidParameters {
		return "invalid parameters"
	}
	return "unknown type"
}

// MappingError is returned when a SQL type string cannot be mapped to a
// column type. Callers in the export path typically recover by falling back
// to TEXT and recording a warning.
type MappingError struct {
	Kind    MappingErrorKind
	RawType string
	Reason  string
}

func (e *MappingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %q: %s", e.Kind, e.RawType, e.Reason)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.RawType)
}
