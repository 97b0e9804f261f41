package validation

import "fmt"

// ErrorKind classifies structural schema problems.
type ErrorKind int

const (
	// Syntax covers malformed declarations (bad lengths, empty enums).
	Syntax ErrorKind = iota
	// Reference covers dangling name references (unknown column, table, enum).
	Reference
	// Constraint covers violations of declared constraints' requirements.
	Constraint
)

func (k ErrorKind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Reference:
		return "reference"
	}
	return "constraint"
}

// Error is a blocking schema problem. Errors are always collected in batch,
// never fail-fast, and always carry their location.
type Error struct {
	Kind    ErrorKind `yaml:"kind"`
	Table   string    `yaml:"table,omitempty"`
	Column  string    `yaml:"column,omitempty"`
	Message string    `yaml:"message"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.locate())
}

func (e Error) locate() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("table %q: %s", e.Table, e.Message)
	}
	return e.Message
}

// Warning is an advisory finding that never blocks generation.
type Warning struct {
	Table   string `yaml:"table,omitempty"`
	Column  string `yaml:"column,omitempty"`
	Message string `yaml:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Table != "" && w.Column != "":
		return fmt.Sprintf("table %q column %q: %s", w.Table, w.Column, w.Message)
	case w.Table != "":
		return fmt.Sprintf("table %q: %s", w.Table, w.Message)
	}
	return w.Message
}

// Result aggregates the findings of one or more validation passes.
type Result struct {
	Errors   []Error   `yaml:"errors,omitempty"`
	Warnings []Warning `yaml:"warnings,omitempty"`
}

// Valid reports whether the result contains no errors. Warnings never
// affect validity.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Merge appends another result's findings. Categories merge by append so
// every category's errors surface together in one pass.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

func (r *Result) addError(kind ErrorKind, table, column, format string, args ...any) {
	r.Errors = append(r.Errors, Error{
		Kind:    kind,
		Table:   table,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Result) addWarning(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Table:   table,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	})
}
