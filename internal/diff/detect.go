package diff

import (
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Detect compares two schema snapshots. It is a pure function: neither
// snapshot is modified, and the same inputs always yield the same diff.
// Advisory findings (invalid rename hints) come back as warnings.
func Detect(old, new *schema.Schema) (SchemaDiff, []validation.Warning) {
	var d SchemaDiff
	var warnings []validation.Warning

	oldTables := make(map[string]*schema.Table, len(old.Tables))
	for i := range old.Tables {
		oldTables[old.Tables[i].Name] = &old.Tables[i]
	}

	for i := range new.Tables {
		nt := &new.Tables[i]
		ot, ok := oldTables[nt.Name]
		if !ok {
			d.AddedTables = append(d.AddedTables, nt.Name)
			continue
		}
		td, w := compareTables(ot, nt)
		warnings = append(warnings, w...)
		if !td.Empty() {
			d.TableDiffs = append(d.TableDiffs, td)
		}
	}

	newNames := make(map[string]bool, len(new.Tables))
	for i := range new.Tables {
		newNames[new.Tables[i].Name] = true
	}
	for i := range old.Tables {
		if !newNames[old.Tables[i].Name] {
			d.RemovedTables = append(d.RemovedTables, old.Tables[i].Name)
		}
	}

	d.EnumDiffs = compareEnums(old.Enums, new.Enums)
	return d, warnings
}

func compareTables(old, new *schema.Table) (TableDiff, []validation.Warning) {
	td := TableDiff{Table: new.Name}
	var warnings []validation.Warning

	// consumedOld marks old columns claimed by a rename source;
	// consumedNew marks new columns settled by rename handling.
	consumedOld := make(map[string]bool)
	consumedNew := make(map[string]bool)

	// Rename detection runs first so its columns never leak into the
	// added/removed/modified sets. Hints are the only signal; there is no
	// heuristic matching.
	for i := range new.Columns {
		nc := &new.Columns[i]
		if nc.RenamedFrom == "" {
			continue
		}
		oc := old.Column(nc.RenamedFrom)
		if oc == nil {
			warnings = append(warnings, validation.Warning{
				Table:  new.Name,
				Column: nc.Name,
				Message: "invalid rename hint: column " + quote(nc.RenamedFrom) +
					" does not exist in the previous schema; treating " + quote(nc.Name) + " as a new column",
			})
			// Fall back to ordinary classification below.
			continue
		}

		changes := []Change{Renamed{OldName: nc.RenamedFrom, NewName: nc.Name}}
		changes = append(changes, attributeChanges(oc, nc)...)
		td.RenamedColumns = append(td.RenamedColumns, RenamedColumn{
			OldName: nc.RenamedFrom,
			Old:     *oc,
			New:     *nc,
			Changes: changes,
		})
		consumedOld[nc.RenamedFrom] = true
		consumedNew[nc.Name] = true
	}

	for i := range new.Columns {
		nc := &new.Columns[i]
		if consumedNew[nc.Name] {
			continue
		}
		oc := old.Column(nc.Name)
		if oc == nil || consumedOld[nc.Name] {
			td.AddedColumns = append(td.AddedColumns, nc.Name)
			continue
		}
		if changes := attributeChanges(oc, nc); len(changes) > 0 {
			td.ModifiedColumns = append(td.ModifiedColumns, ColumnDiff{
				Old:     *oc,
				New:     *nc,
				Changes: changes,
			})
		}
	}

	for i := range old.Columns {
		oc := &old.Columns[i]
		if consumedOld[oc.Name] {
			continue
		}
		// A same-named new column claimed as a rename target belongs to
		// the renamed old column, not this one; this one is gone.
		if new.Column(oc.Name) == nil || consumedNew[oc.Name] {
			td.RemovedColumns = append(td.RemovedColumns, oc.Name)
		}
	}

	compareIndexes(old.Indexes, new.Indexes, &td)
	compareConstraints(old.Constraints, new.Constraints, &td)
	return td, warnings
}

// attributeChanges diffs two column definitions attribute by attribute.
// Each differing attribute becomes exactly one Change entry.
func attributeChanges(old, new *schema.Column) []Change {
	var changes []Change
	if !sqltype.Equal(old.Type, new.Type) {
		changes = append(changes, TypeChanged{Old: old.Type, New: new.Type})
	}
	if old.Nullable != new.Nullable {
		changes = append(changes, NullableChanged{Old: old.Nullable, New: new.Nullable})
	}
	if !defaultEqual(old.Default, new.Default) {
		changes = append(changes, DefaultChanged{Old: old.Default, New: new.Default})
	}
	if old.AutoIncrement != new.AutoIncrement {
		changes = append(changes, AutoIncrementChanged{Old: old.AutoIncrement, New: new.AutoIncrement})
	}
	return changes
}

// compareIndexes diffs by structural equality. An index redefined under
// the same name becomes a remove of the old plus an add of the new; there
// is no partial index alteration.
func compareIndexes(old, new []schema.Index, td *TableDiff) {
	for _, n := range new {
		found := false
		for _, o := range old {
			if schema.IndexesEqual(o, n) {
				found = true
				break
			}
		}
		if !found {
			td.AddedIndexes = append(td.AddedIndexes, n)
		}
	}
	for _, o := range old {
		found := false
		for _, n := range new {
			if schema.IndexesEqual(o, n) {
				found = true
				break
			}
		}
		if !found {
			td.RemovedIndexes = append(td.RemovedIndexes, o)
		}
	}
}

func compareConstraints(old, new []schema.Constraint, td *TableDiff) {
	for _, n := range new {
		found := false
		for _, o := range old {
			if schema.ConstraintsEqual(o, n) {
				found = true
				break
			}
		}
		if !found {
			td.AddedConstraints = append(td.AddedConstraints, n)
		}
	}
	for _, o := range old {
		found := false
		for _, n := range new {
			if schema.ConstraintsEqual(o, n) {
				found = true
				break
			}
		}
		if !found {
			td.RemovedConstraints = append(td.RemovedConstraints, o)
		}
	}
}

func compareEnums(old, new []schema.EnumDefinition) []EnumDiff {
	var diffs []EnumDiff

	oldByName := make(map[string]schema.EnumDefinition, len(old))
	for _, e := range old {
		oldByName[e.Name] = e
	}
	newByName := make(map[string]schema.EnumDefinition, len(new))
	for _, e := range new {
		newByName[e.Name] = e
	}

	for _, n := range new {
		o, ok := oldByName[n.Name]
		if !ok {
			diffs = append(diffs, EnumDiff{Name: n.Name, Kind: EnumCreate, NewValues: n.Values})
			continue
		}
		if stringsEqual(o.Values, n.Values) {
			continue
		}
		if added, ok := addedValuesKeepingOrder(o.Values, n.Values); ok {
			diffs = append(diffs, EnumDiff{
				Name:        n.Name,
				Kind:        EnumAddValues,
				OldValues:   o.Values,
				NewValues:   n.Values,
				AddedValues: added,
			})
		} else {
			diffs = append(diffs, EnumDiff{
				Name:      n.Name,
				Kind:      EnumRecreate,
				OldValues: o.Values,
				NewValues: n.Values,
			})
		}
	}

	for _, o := range old {
		if _, ok := newByName[o.Name]; !ok {
			diffs = append(diffs, EnumDiff{Name: o.Name, Kind: EnumDrop, OldValues: o.Values})
		}
	}
	return diffs
}

// addedValuesKeepingOrder reports the values present only in new, provided
// every old value appears in new in the same relative order. Any removal
// or reorder fails the check and forces a recreate.
func addedValuesKeepingOrder(old, new []string) ([]string, bool) {
	oldIdx := 0
	var added []string
	for _, v := range new {
		if oldIdx < len(old) && old[oldIdx] == v {
			oldIdx++
			continue
		}
		added = append(added, v)
	}
	if oldIdx != len(old) {
		return nil, false
	}
	return added, true
}

func defaultEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func quote(s string) string {
	return "\"" + s + "\""
}
