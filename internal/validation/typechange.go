package validation

import (
	"fmt"

	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// Severity classifies one column type transition.
type Severity int

const (
	// Safe transitions produce no diagnostic.
	Safe Severity = iota
	// Shrink transitions stay within a category but reduce declared size;
	// they produce a warning.
	Shrink
	// Warn transitions cross categories but are generally convertible.
	Warn
	// Incompatible transitions abort migration generation.
	Incompatible
)

func (s Severity) String() string {
	switch s {
	case Safe:
		return "safe"
	case Shrink:
		return "shrink"
	case Warn:
		return "warn"
	}
	return "incompatible"
}

// TypeChange is one column type transition to judge.
type TypeChange struct {
	Table  string
	Column string
	Old    sqltype.Type
	New    sqltype.Type
}

// categoryMatrix maps from-category to to-category severity. Same-category
// cells are Safe with an additional shrink check applied separately.
// DialectSpecific (CategoryOther) types are exempt from judgment: their
// validation is delegated to the target database.
var categoryMatrix = map[sqltype.Category]map[sqltype.Category]Severity{
	sqltype.CategoryNumeric: {
		sqltype.CategoryNumeric:  Safe,
		sqltype.CategoryString:   Safe,
		sqltype.CategoryDateTime: Incompatible,
		sqltype.CategoryBinary:   Incompatible,
		sqltype.CategoryJSON:     Incompatible,
		sqltype.CategoryBoolean:  Warn,
		sqltype.CategoryUUID:     Incompatible,
	},
	sqltype.CategoryString: {
		sqltype.CategoryNumeric:  Warn,
		sqltype.CategoryString:   Safe,
		sqltype.CategoryDateTime: Warn,
		sqltype.CategoryBinary:   Safe,
		sqltype.CategoryJSON:     Safe,
		sqltype.CategoryBoolean:  Warn,
		sqltype.CategoryUUID:     Safe,
	},
	sqltype.CategoryDateTime: {
		sqltype.CategoryString:   Safe,
		sqltype.CategoryDateTime: Safe,
	},
	sqltype.CategoryBinary: {
		sqltype.CategoryString: Safe,
		sqltype.CategoryBinary: Safe,
	},
	sqltype.CategoryJSON: {
		sqltype.CategoryString: Safe,
		sqltype.CategoryJSON:   Safe,
	},
	sqltype.CategoryBoolean: {
		sqltype.CategoryNumeric: Safe,
		sqltype.CategoryString:  Safe,
		sqltype.CategoryBoolean: Safe,
	},
	sqltype.CategoryUUID: {
		sqltype.CategoryString: Safe,
		sqltype.CategoryUUID:   Safe,
	},
}

// Compatibility judges a category transition per the compatibility matrix.
func Compatibility(from, to sqltype.Category) Severity {
	if from == sqltype.CategoryOther || to == sqltype.CategoryOther {
		return Safe
	}
	if from == to {
		return Safe
	}
	row, ok := categoryMatrix[from]
	if !ok {
		return Incompatible
	}
	sev, ok := row[to]
	if !ok {
		return Incompatible
	}
	return sev
}

// Judge classifies a single type transition, including the same-category
// shrink check.
func Judge(old, new sqltype.Type) Severity {
	from := sqltype.CategoryOf(old)
	to := sqltype.CategoryOf(new)
	sev := Compatibility(from, to)
	if sev == Safe && from == to && isShrink(old, new) {
		return Shrink
	}
	return sev
}

// ValidateTypeChanges judges every transition and collects diagnostics.
// Incompatible transitions are errors that callers must treat as fatal to
// generation; Warn and Shrink findings are advisory.
func ValidateTypeChanges(changes []TypeChange, d sqltype.Dialect) Result {
	var r Result

	for _, ch := range changes {
		from := sqltype.CategoryOf(ch.Old)
		to := sqltype.CategoryOf(ch.New)
		oldSQL := sqltype.ToSQL(ch.Old, d)
		newSQL := sqltype.ToSQL(ch.New, d)

		switch Judge(ch.Old, ch.New) {
		case Incompatible:
			r.addError(Constraint, ch.Table, ch.Column,
				"incompatible type change %s -> %s (%s to %s)", oldSQL, newSQL, from, to)
		case Warn:
			r.addWarning(ch.Table, ch.Column,
				"type change %s -> %s converts %s to %s; existing values may fail to convert", oldSQL, newSQL, from, to)
		case Shrink:
			r.addWarning(ch.Table, ch.Column,
				"type change %s -> %s shrinks the declared size; existing values may be truncated or rejected", oldSQL, newSQL)
		}
	}
	return r
}

// isShrink reports whether a same-category transition reduces declared
// capacity.
func isShrink(old, new sqltype.Type) bool {
	switch o := old.(type) {
	case sqltype.Varchar:
		return boundedBelow(o.Length, new)
	case sqltype.Char:
		return boundedBelow(o.Length, new)
	case sqltype.Text:
		// Unbounded to bounded is a shrink.
		switch new.(type) {
		case sqltype.Varchar, sqltype.Char:
			return true
		}
	case sqltype.Decimal:
		if n, ok := new.(sqltype.Decimal); ok {
			return n.Precision < o.Precision || n.Scale < o.Scale
		}
	case sqltype.Double:
		if _, ok := new.(sqltype.Float); ok {
			return true
		}
	case sqltype.Timestamp:
		// Dropping the date component loses information.
		switch new.(type) {
		case sqltype.Date, sqltype.Time:
			return true
		}
	}
	return false
}

func boundedBelow(oldLen int, new sqltype.Type) bool {
	switch n := new.(type) {
	case sqltype.Varchar:
		return n.Length < oldLen
	case sqltype.Char:
		return n.Length < oldLen
	}
	return false
}

// Describe renders a transition for log and report output.
func Describe(ch TypeChange, d sqltype.Dialect) string {
	return fmt.Sprintf("%s.%s: %s -> %s", ch.Table, ch.Column,
		sqltype.ToSQL(ch.Old, d), sqltype.ToSQL(ch.New, d))
}
