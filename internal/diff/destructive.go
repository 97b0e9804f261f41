package diff

// RenamedPair names a column rename for reporting.
type RenamedPair struct {
	OldName string `yaml:"old_name"`
	NewName string `yaml:"new_name"`
}

// DestructiveReport classifies every change in a diff that can lose data
// or requires explicit operator consent. It is serialized verbatim into
// migration metadata, even when empty, so later readers can distinguish
// "no destructive changes" from "predates this feature".
type DestructiveReport struct {
	DroppedTables  []string                 `yaml:"dropped_tables,omitempty"`
	DroppedColumns map[string][]string      `yaml:"dropped_columns,omitempty"`
	RenamedColumns map[string][]RenamedPair `yaml:"renamed_columns,omitempty"`
	DroppedEnums   []string                 `yaml:"dropped_enums,omitempty"`
	RecreatedEnums []string                 `yaml:"recreated_enums,omitempty"`
}

// Destructive classifies a diff. Pure and idempotent: the same diff always
// yields an equal report. Policy enforcement (deny by default) belongs to
// the caller; this only classifies.
func Destructive(d *SchemaDiff) DestructiveReport {
	r := DestructiveReport{}

	r.DroppedTables = append(r.DroppedTables, d.RemovedTables...)

	for _, td := range d.TableDiffs {
		if len(td.RemovedColumns) > 0 {
			if r.DroppedColumns == nil {
				r.DroppedColumns = make(map[string][]string)
			}
			r.DroppedColumns[td.Table] = append([]string(nil), td.RemovedColumns...)
		}
		if len(td.RenamedColumns) > 0 {
			if r.RenamedColumns == nil {
				r.RenamedColumns = make(map[string][]RenamedPair)
			}
			pairs := make([]RenamedPair, 0, len(td.RenamedColumns))
			for _, rc := range td.RenamedColumns {
				pairs = append(pairs, RenamedPair{OldName: rc.OldName, NewName: rc.New.Name})
			}
			r.RenamedColumns[td.Table] = pairs
		}
	}

	for _, ed := range d.EnumDiffs {
		switch ed.Kind {
		case EnumDrop:
			r.DroppedEnums = append(r.DroppedEnums, ed.Name)
		case EnumRecreate:
			r.RecreatedEnums = append(r.RecreatedEnums, ed.Name)
		}
	}
	return r
}

// HasDestructiveChanges reports whether any category is non-empty.
func (r *DestructiveReport) HasDestructiveChanges() bool {
	return len(r.DroppedTables) > 0 ||
		len(r.DroppedColumns) > 0 ||
		len(r.RenamedColumns) > 0 ||
		len(r.DroppedEnums) > 0 ||
		len(r.RecreatedEnums) > 0
}

// Count returns the total number of destructive items, for summaries.
func (r *DestructiveReport) Count() int {
	n := len(r.DroppedTables) + len(r.DroppedEnums) + len(r.RecreatedEnums)
	for _, cols := range r.DroppedColumns {
		n += len(cols)
	}
	for _, pairs := range r.RenamedColumns {
		n += len(pairs)
	}
	return n
}
