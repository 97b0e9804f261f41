package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	removeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	changeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dangerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// DiffReport is the persisted record of one schema comparison.
type DiffReport struct {
	Version     string                 `yaml:"version"`
	GeneratedAt time.Time              `yaml:"generated_at"`
	Dialect     string                 `yaml:"dialect"`
	Diff        DiffSummary            `yaml:"diff"`
	Destructive diff.DestructiveReport `yaml:"destructive_changes"`
	Validation  *validation.Result     `yaml:"validation,omitempty"`
}

// DiffSummary flattens a SchemaDiff into serializable counts and names.
type DiffSummary struct {
	AddedTables    []string           `yaml:"added_tables,omitempty"`
	RemovedTables  []string           `yaml:"removed_tables,omitempty"`
	ModifiedTables []TableDiffSummary `yaml:"modified_tables,omitempty"`
	EnumChanges    []EnumChangeEntry  `yaml:"enum_changes,omitempty"`
}

// TableDiffSummary is one modified table's change listing.
type TableDiffSummary struct {
	Table           string             `yaml:"table"`
	AddedColumns    []string           `yaml:"added_columns,omitempty"`
	RemovedColumns  []string           `yaml:"removed_columns,omitempty"`
	ModifiedColumns []string           `yaml:"modified_columns,omitempty"`
	RenamedColumns  []diff.RenamedPair `yaml:"renamed_columns,omitempty"`
	IndexChanges    int                `yaml:"index_changes,omitempty"`
	ConstraintCount int                `yaml:"constraint_changes,omitempty"`
}

// EnumChangeEntry is one enum transition.
type EnumChangeEntry struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	AddedValues []string `yaml:"added_values,omitempty"`
}

// New builds a DiffReport from a detected diff.
func New(dialect string, d *diff.SchemaDiff, vr *validation.Result) *DiffReport {
	r := &DiffReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Dialect:     dialect,
		Destructive: diff.Destructive(d),
		Validation:  vr,
	}
	r.Diff.AddedTables = append(r.Diff.AddedTables, d.AddedTables...)
	r.Diff.RemovedTables = append(r.Diff.RemovedTables, d.RemovedTables...)

	for _, td := range d.TableDiffs {
		s := TableDiffSummary{
			Table:           td.Table,
			AddedColumns:    append([]string(nil), td.AddedColumns...),
			RemovedColumns:  append([]string(nil), td.RemovedColumns...),
			IndexChanges:    len(td.AddedIndexes) + len(td.RemovedIndexes),
			ConstraintCount: len(td.AddedConstraints) + len(td.RemovedConstraints),
		}
		for _, cd := range td.ModifiedColumns {
			s.ModifiedColumns = append(s.ModifiedColumns, cd.New.Name)
		}
		for _, rc := range td.RenamedColumns {
			s.RenamedColumns = append(s.RenamedColumns, diff.RenamedPair{
				OldName: rc.OldName,
				NewName: rc.New.Name,
			})
		}
		r.Diff.ModifiedTables = append(r.Diff.ModifiedTables, s)
	}
	for _, ed := range d.EnumDiffs {
		r.Diff.EnumChanges = append(r.Diff.EnumChanges, EnumChangeEntry{
			Name:        ed.Name,
			Kind:        ed.Kind.String(),
			AddedValues: append([]string(nil), ed.AddedValues...),
		})
	}
	return r
}

// Empty reports whether the comparison found no change.
func (r *DiffReport) Empty() bool {
	return len(r.Diff.AddedTables) == 0 &&
		len(r.Diff.RemovedTables) == 0 &&
		len(r.Diff.ModifiedTables) == 0 &&
		len(r.Diff.EnumChanges) == 0
}

// WriteYAML persists the report.
func WriteYAML(r *DiffReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadYAML loads a previously written report.
func ReadYAML(path string) (*DiffReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &DiffReport{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// FormatText renders the report for the terminal.
func FormatText(r *DiffReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Schema Diff"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  (%s)", r.Dialect)))
	b.WriteString("\n\n")

	if r.Empty() {
		b.WriteString(successStyle.Render("  No changes detected"))
		b.WriteString("\n")
		return b.String()
	}

	for _, t := range r.Diff.AddedTables {
		b.WriteString(addStyle.Render(fmt.Sprintf("  + table %s", t)))
		b.WriteString("\n")
	}
	for _, t := range r.Diff.RemovedTables {
		b.WriteString(removeStyle.Render(fmt.Sprintf("  - table %s", t)))
		b.WriteString("\n")
	}

	for _, td := range r.Diff.ModifiedTables {
		b.WriteString(changeStyle.Render(fmt.Sprintf("  ~ table %s", td.Table)))
		b.WriteString("\n")
		for _, c := range td.AddedColumns {
			b.WriteString(addStyle.Render(fmt.Sprintf("      + column %s", c)))
			b.WriteString("\n")
		}
		for _, c := range td.RemovedColumns {
			b.WriteString(removeStyle.Render(fmt.Sprintf("      - column %s", c)))
			b.WriteString("\n")
		}
		for _, c := range td.ModifiedColumns {
			b.WriteString(changeStyle.Render(fmt.Sprintf("      ~ column %s", c)))
			b.WriteString("\n")
		}
		for _, rc := range td.RenamedColumns {
			b.WriteString(changeStyle.Render(fmt.Sprintf("      ~ column %s renamed to %s", rc.OldName, rc.NewName)))
			b.WriteString("\n")
		}
		if td.IndexChanges > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("      %d index change(s)", td.IndexChanges)))
			b.WriteString("\n")
		}
		if td.ConstraintCount > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("      %d constraint change(s)", td.ConstraintCount)))
			b.WriteString("\n")
		}
	}

	for _, ec := range r.Diff.EnumChanges {
		switch ec.Kind {
		case "create":
			b.WriteString(addStyle.Render(fmt.Sprintf("  + enum %s", ec.Name)))
		case "drop":
			b.WriteString(removeStyle.Render(fmt.Sprintf("  - enum %s", ec.Name)))
		case "add_values":
			b.WriteString(changeStyle.Render(fmt.Sprintf("  ~ enum %s: add %s", ec.Name, strings.Join(ec.AddedValues, ", "))))
		default:
			b.WriteString(removeStyle.Render(fmt.Sprintf("  ~ enum %s: recreate", ec.Name)))
		}
		b.WriteString("\n")
	}

	if r.Destructive.HasDestructiveChanges() {
		b.WriteString("\n")
		b.WriteString(FormatDestructive(&r.Destructive))
	}
	if r.Validation != nil && len(r.Validation.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatWarnings(r.Validation.Warnings))
	}
	return b.String()
}

// FormatDestructive renders the destructive-change summary shown before
// the operator consent prompt.
func FormatDestructive(r *diff.DestructiveReport) string {
	var b strings.Builder

	b.WriteString(dangerStyle.Render(fmt.Sprintf("Destructive changes (%d)", r.Count())))
	b.WriteString("\n")

	for _, t := range r.DroppedTables {
		b.WriteString(removeStyle.Render(fmt.Sprintf("  drop table %s", t)))
		b.WriteString("\n")
	}
	for _, table := range sortedKeys(r.DroppedColumns) {
		for _, c := range r.DroppedColumns[table] {
			b.WriteString(removeStyle.Render(fmt.Sprintf("  drop column %s.%s", table, c)))
			b.WriteString("\n")
		}
	}
	for _, table := range sortedKeys(r.RenamedColumns) {
		for _, p := range r.RenamedColumns[table] {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  rename column %s.%s to %s", table, p.OldName, p.NewName)))
			b.WriteString("\n")
		}
	}
	for _, e := range r.DroppedEnums {
		b.WriteString(removeStyle.Render(fmt.Sprintf("  drop enum %s", e)))
		b.WriteString("\n")
	}
	for _, e := range r.RecreatedEnums {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  recreate enum %s (values removed or reordered)", e)))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatWarnings renders validation warnings.
func FormatWarnings(warnings []validation.Warning) string {
	var b strings.Builder
	b.WriteString(warnStyle.Render(fmt.Sprintf("Warnings (%d)", len(warnings))))
	b.WriteString("\n")
	for _, w := range warnings {
		b.WriteString(fmt.Sprintf("  %s\n", w))
	}
	return b.String()
}

// FormatErrors renders validation errors.
func FormatErrors(errs []validation.Error) string {
	var b strings.Builder
	b.WriteString(dangerStyle.Render(fmt.Sprintf("Errors (%d)", len(errs))))
	b.WriteString("\n")
	for _, e := range errs {
		b.WriteString(fmt.Sprintf("  %s\n", e.Error()))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
