package pipeline

import (
	"fmt"
	"strings"

	"github.com/schemaforge/schemaforge/internal/diff"
	"github.com/schemaforge/schemaforge/internal/generator"
	"github.com/schemaforge/schemaforge/internal/schema"
	"github.com/schemaforge/schemaforge/internal/sqltype"
	"github.com/schemaforge/schemaforge/internal/validation"
)

// Stage names, used for error attribution. The up direction runs them
// in declaration order; down runs the statement stages in reverse
// dependency order under the same names.
const (
	StagePrepare     = "prepare"
	StageEnums       = "enum_statements"
	StageTables      = "table_statements"
	StageIndexes     = "index_statements"
	StageConstraints = "constraint_statements"
	StageCleanup     = "cleanup_statements"
)

// Error is a stage-attributed generation failure. No SQL from completed
// stages survives a failure; the caller gets either the full script or
// this error.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Pipeline compiles one schema diff into up and down SQL for a fixed
// dialect. Stateless apart from its configuration; safe to reuse across
// unrelated diffs.
type Pipeline struct {
	dialect          sqltype.Dialect
	gen              generator.Generator
	allowDestructive bool
}

// New builds a pipeline for the dialect. allowDestructive feeds the
// enum-recreation decision points; the overall destructive gate on
// drops lives with the caller via diff.Destructive.
func New(d sqltype.Dialect, allowDestructive bool) (*Pipeline, error) {
	gen, err := generator.ForDialect(d)
	if err != nil {
		return nil, err
	}
	return &Pipeline{dialect: d, gen: gen, allowDestructive: allowDestructive}, nil
}

// GenerateUpSQL compiles the forward migration script. The returned
// validation result carries the type-change warnings accumulated during
// the prepare stage.
func (p *Pipeline) GenerateUpSQL(d *diff.SchemaDiff, old, new *schema.Schema) (string, validation.Result, error) {
	return p.generate(d, old, new, generator.Up)
}

// GenerateDownSQL compiles the rollback script, inverting every change
// and running the statement stages in reverse dependency order.
func (p *Pipeline) GenerateDownSQL(d *diff.SchemaDiff, old, new *schema.Schema) (string, validation.Result, error) {
	return p.generate(d, old, new, generator.Down)
}

func (p *Pipeline) generate(d *diff.SchemaDiff, old, new *schema.Schema, dir generator.Direction) (string, validation.Result, error) {
	result, err := p.prepare(d, dir)
	if err != nil {
		return "", validation.Result{}, err
	}

	run := &run{p: p, d: d, old: old, new: new, dir: dir, recreated: make(map[string]bool)}

	// Table alterations are planned before any stage runs so every
	// stage, whichever side of the table stage it lands on, sees which
	// tables the generator rebuilds wholesale.
	if err := run.planTables(); err != nil {
		return "", validation.Result{}, err
	}

	var stages []func() error
	if dir == generator.Up {
		stages = []func() error{run.enumStage, run.tableStage, run.indexStage, run.constraintStage, run.cleanupStage}
	} else {
		// Reverse dependency order, with the index and constraint work
		// split: drops of what the up script added run before the table
		// stage, restores of what it removed run after, once the columns
		// they reference exist again.
		stages = []func() error{
			run.cleanupStage, run.constraintDrops, run.indexDrops,
			run.tableStage, run.indexRestores, run.constraintRestores,
			run.enumStage,
		}
	}
	for _, stage := range stages {
		if err := stage(); err != nil {
			return "", validation.Result{}, err
		}
	}

	return strings.Join(run.statements, "\n"), result, nil
}

// prepare resolves nothing at runtime (the generator is fixed at
// construction) but gates the whole run on type-change compatibility.
// Down swaps each change's direction before judging it.
func (p *Pipeline) prepare(d *diff.SchemaDiff, dir generator.Direction) (validation.Result, error) {
	var changes []validation.TypeChange
	for _, td := range d.TableDiffs {
		collect := func(table, column string, chs []diff.Change) {
			for _, ch := range chs {
				tc, ok := ch.(diff.TypeChanged)
				if !ok {
					continue
				}
				from, to := tc.Old, tc.New
				if dir == generator.Down {
					from, to = to, from
				}
				changes = append(changes, validation.TypeChange{
					Table:  table,
					Column: column,
					Old:    from,
					New:    to,
				})
			}
		}
		for _, cd := range td.ModifiedColumns {
			collect(td.Table, cd.New.Name, cd.Changes)
		}
		for _, rc := range td.RenamedColumns {
			collect(td.Table, rc.New.Name, rc.Changes)
		}
	}

	result := validation.ValidateTypeChanges(changes, p.dialect)
	if !result.Valid() {
		return validation.Result{}, &Error{
			Stage: StagePrepare,
			Err:   fmt.Errorf("incompatible type changes: %s", joinErrors(result.Errors)),
		}
	}
	return result, nil
}

func joinErrors(errs []validation.Error) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// run accumulates statements across the stages of one generation.
type run struct {
	p   *Pipeline
	d   *diff.SchemaDiff
	old *schema.Schema
	new *schema.Schema
	dir generator.Direction

	statements []string
	// alters holds the planned result per TableDiff, in diff order;
	// recreated tracks tables the plan rebuilds wholesale, which the
	// index and constraint stages skip.
	alters    []generator.AlterResult
	recreated map[string]bool
}

func (r *run) emit(stmts ...string) {
	r.statements = append(r.statements, stmts...)
}

// planTables runs the generator over every table diff up front. The
// statements are held back until the table stage emits them.
func (r *run) planTables() error {
	for i := range r.d.TableDiffs {
		td := &r.d.TableDiffs[i]
		res, err := r.p.gen.AlterTable(r.old, r.new, td, r.dir)
		if err != nil {
			return &Error{Stage: StageTables, Err: err}
		}
		r.alters = append(r.alters, res)
		if res.Recreated {
			r.recreated[td.Table] = true
		}
	}
	return nil
}

// enumStage emits enum type DDL. Up: creations and alterations, before
// any table references the type. Down: inverse alterations and drops of
// created types, after the referencing tables are gone.
func (r *run) enumStage() error {
	for _, ed := range r.d.EnumDiffs {
		if r.dir == generator.Up {
			switch ed.Kind {
			case diff.EnumCreate:
				r.emit(r.p.gen.EnumCreate(schema.EnumDefinition{Name: ed.Name, Values: ed.NewValues})...)
			case diff.EnumAddValues, diff.EnumRecreate:
				stmts, err := r.p.gen.EnumAlter(r.new, ed, r.p.allowDestructive)
				if err != nil {
					return &Error{Stage: StageEnums, Err: err}
				}
				r.emit(stmts...)
			}
			continue
		}

		switch ed.Kind {
		case diff.EnumCreate:
			r.emit(r.p.gen.EnumDrop(ed.Name)...)
		case diff.EnumAddValues, diff.EnumRecreate:
			// Rolling back means restoring the old value list, which can
			// only be done by recreating the type.
			inverse := diff.EnumDiff{
				Name:      ed.Name,
				Kind:      diff.EnumRecreate,
				OldValues: ed.NewValues,
				NewValues: ed.OldValues,
			}
			stmts, err := r.p.gen.EnumAlter(r.old, inverse, r.p.allowDestructive)
			if err != nil {
				return &Error{Stage: StageEnums, Err: err}
			}
			r.emit(stmts...)
		}
	}
	return nil
}

// tableStage creates added tables and alters modified ones. Down drops
// the added tables and reverts the alterations.
func (r *run) tableStage() error {
	if r.dir == generator.Up {
		for _, name := range r.d.AddedTables {
			if t := r.new.Table(name); t != nil {
				r.emit(r.p.gen.CreateTable(r.new, t)...)
			}
		}
	}

	for _, res := range r.alters {
		r.emit(res.Statements...)
	}

	if r.dir == generator.Down {
		for _, name := range r.d.AddedTables {
			r.emit(r.p.gen.DropTable(name)...)
		}
	}
	return nil
}

// indexStage handles standalone index DDL going up: drops before adds
// so a redefined index name is never created twice. Added tables get
// their indexes here, after CREATE TABLE.
func (r *run) indexStage() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, idx := range td.RemovedIndexes {
			r.emit(r.p.gen.DropIndex(td.Table, idx)...)
		}
		for _, idx := range td.AddedIndexes {
			r.emit(r.p.gen.CreateIndex(td.Table, idx)...)
		}
	}
	for _, name := range r.d.AddedTables {
		if t := r.new.Table(name); t != nil {
			for _, idx := range t.Indexes {
				r.emit(r.p.gen.CreateIndex(name, idx)...)
			}
		}
	}
	return nil
}

// constraintStage runs after the index stage going up so foreign keys
// land once every referenced structure exists.
func (r *run) constraintStage() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, c := range td.RemovedConstraints {
			r.emit(r.p.gen.DropConstraint(td.Table, c)...)
		}
		for _, c := range td.AddedConstraints {
			r.emit(r.p.gen.AddConstraint(td.Table, c)...)
		}
	}
	return nil
}

// The down direction splits index and constraint work around the table
// stage. Drops of up-added items run first, while those items still
// exist; restores of up-removed items run after the table stage has
// brought back the columns they reference.

func (r *run) indexDrops() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, idx := range td.AddedIndexes {
			r.emit(r.p.gen.DropIndex(td.Table, idx)...)
		}
	}
	return nil
}

func (r *run) indexRestores() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, idx := range td.RemovedIndexes {
			r.emit(r.p.gen.CreateIndex(td.Table, idx)...)
		}
	}
	return nil
}

func (r *run) constraintDrops() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, c := range td.AddedConstraints {
			r.emit(r.p.gen.DropConstraint(td.Table, c)...)
		}
	}
	return nil
}

func (r *run) constraintRestores() error {
	for _, td := range r.d.TableDiffs {
		if r.recreated[td.Table] {
			continue
		}
		for _, c := range td.RemovedConstraints {
			r.emit(r.p.gen.AddConstraint(td.Table, c)...)
		}
	}
	return nil
}

// cleanupStage drops removed tables and enum types last, after every
// constraint referencing them is gone. Down runs it first, restoring
// the dropped enums and tables before anything references them again.
func (r *run) cleanupStage() error {
	if r.dir == generator.Up {
		for _, name := range r.d.RemovedTables {
			r.emit(r.p.gen.DropTable(name)...)
		}
		for _, ed := range r.d.EnumDiffs {
			if ed.Kind == diff.EnumDrop {
				r.emit(r.p.gen.EnumDrop(ed.Name)...)
			}
		}
		return nil
	}

	for _, ed := range r.d.EnumDiffs {
		if ed.Kind == diff.EnumDrop {
			r.emit(r.p.gen.EnumCreate(schema.EnumDefinition{Name: ed.Name, Values: ed.OldValues})...)
		}
	}
	for _, name := range r.d.RemovedTables {
		if t := r.old.Table(name); t != nil {
			r.emit(r.p.gen.CreateTable(r.old, t)...)
			for _, idx := range t.Indexes {
				r.emit(r.p.gen.CreateIndex(name, idx)...)
			}
		}
	}
	return nil
}
