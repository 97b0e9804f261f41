package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/schemaforge/schemaforge/internal/sqltype"
)

// ParseError describes a malformed schema document. It always carries
// enough location context to find the offending declaration.
type ParseError struct {
	Table  string
	Column string
	Reason string
}

func (e *ParseError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("table %q column %q: %s", e.Table, e.Column, e.Reason)
	case e.Table != "":
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	}
	return e.Reason
}

// Document-level DTO shapes. The on-disk format keys tables and enums by
// name; the bridge folds primary_key into a PrimaryKey constraint.
type tableDoc struct {
	Columns     []columnDoc     `yaml:"columns"`
	PrimaryKey  []string        `yaml:"primary_key,omitempty"`
	Indexes     []indexDoc      `yaml:"indexes,omitempty"`
	Constraints []constraintDoc `yaml:"constraints,omitempty"`
}

type columnDoc struct {
	Name          string  `yaml:"name"`
	Type          string  `yaml:"type"`
	Nullable      *bool   `yaml:"nullable,omitempty"`
	Default       *string `yaml:"default,omitempty"`
	AutoIncrement bool    `yaml:"auto_increment,omitempty"`
	RenamedFrom   string  `yaml:"renamed_from,omitempty"`
}

type indexDoc struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

type constraintDoc struct {
	Name              string   `yaml:"name,omitempty"`
	Type              string   `yaml:"type"`
	Columns           []string `yaml:"columns,omitempty"`
	ReferencedTable   string   `yaml:"referenced_table,omitempty"`
	ReferencedColumns []string `yaml:"referenced_columns,omitempty"`
	Expression        string   `yaml:"expression,omitempty"`
}

// Parse converts a declarative schema document into a Schema. Table and
// enum order follows the document's key order.
func Parse(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &Schema{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Reason: "top level must be a mapping"}
	}

	s := &Schema{}
	for i := 0; i < len(root.Content)-1; i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		switch key {
		case "version":
			s.Version = val.Value
		case "tables":
			tables, err := parseTables(val)
			if err != nil {
				return nil, err
			}
			s.Tables = tables
		case "enums":
			enums, err := parseEnums(val)
			if err != nil {
				return nil, err
			}
			s.Enums = enums
		}
	}
	return s, nil
}

func parseTables(node *yaml.Node) ([]Table, error) {
	if node.Kind == yaml.ScalarNode && node.Value == "" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Reason: "tables must be a mapping of table name to definition"}
	}

	seen := make(map[string]bool, len(node.Content)/2)
	var tables []Table
	for i := 0; i < len(node.Content)-1; i += 2 {
		name := node.Content[i].Value
		if seen[name] {
			return nil, &ParseError{Table: name, Reason: "duplicate table name"}
		}
		seen[name] = true

		var td tableDoc
		if err := node.Content[i+1].Decode(&td); err != nil {
			return nil, &ParseError{Table: name, Reason: fmt.Sprintf("invalid table definition: %v", err)}
		}
		t, err := tableFromDoc(name, td)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func tableFromDoc(name string, td tableDoc) (Table, error) {
	if len(td.Columns) == 0 {
		return Table{}, &ParseError{Table: name, Reason: "table has no columns"}
	}

	t := Table{Name: name}
	colSeen := make(map[string]bool, len(td.Columns))
	for _, cd := range td.Columns {
		if cd.Name == "" {
			return Table{}, &ParseError{Table: name, Reason: "column without a name"}
		}
		if colSeen[cd.Name] {
			return Table{}, &ParseError{Table: name, Column: cd.Name, Reason: "duplicate column name"}
		}
		colSeen[cd.Name] = true

		typ, err := sqltype.Parse(cd.Type)
		if err != nil {
			return Table{}, &ParseError{Table: name, Column: cd.Name, Reason: err.Error()}
		}

		// Columns are nullable unless declared otherwise, matching SQL.
		nullable := true
		if cd.Nullable != nil {
			nullable = *cd.Nullable
		}

		t.Columns = append(t.Columns, Column{
			Name:          cd.Name,
			Type:          typ,
			Nullable:      nullable,
			Default:       cd.Default,
			AutoIncrement: cd.AutoIncrement,
			RenamedFrom:   cd.RenamedFrom,
		})
	}

	if len(td.PrimaryKey) > 0 {
		t.Constraints = append(t.Constraints, PrimaryKey{Columns: td.PrimaryKey})
	}

	for _, id := range td.Indexes {
		if id.Name == "" {
			return Table{}, &ParseError{Table: name, Reason: "index without a name"}
		}
		t.Indexes = append(t.Indexes, Index{Name: id.Name, Columns: id.Columns, Unique: id.Unique})
	}

	for _, cd := range td.Constraints {
		c, err := constraintFromDoc(name, cd)
		if err != nil {
			return Table{}, err
		}
		t.Constraints = append(t.Constraints, c)
	}
	return t, nil
}

func constraintFromDoc(table string, cd constraintDoc) (Constraint, error) {
	switch cd.Type {
	case "foreign_key":
		if cd.ReferencedTable == "" {
			return nil, &ParseError{Table: table, Reason: fmt.Sprintf("foreign key %q has no referenced table", cd.Name)}
		}
		return ForeignKey{
			Name:              cd.Name,
			Columns:           cd.Columns,
			ReferencedTable:   cd.ReferencedTable,
			ReferencedColumns: cd.ReferencedColumns,
		}, nil
	case "unique":
		return Unique{Name: cd.Name, Columns: cd.Columns}, nil
	case "check":
		return Check{Name: cd.Name, Columns: cd.Columns, Expression: cd.Expression}, nil
	case "primary_key":
		return nil, &ParseError{Table: table, Reason: "primary keys belong in the primary_key field, not the constraints list"}
	}
	return nil, &ParseError{Table: table, Reason: fmt.Sprintf("unknown constraint type %q", cd.Type)}
}

func parseEnums(node *yaml.Node) ([]EnumDefinition, error) {
	if node.Kind == yaml.ScalarNode && node.Value == "" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Reason: "enums must be a mapping of enum name to value list"}
	}

	seen := make(map[string]bool, len(node.Content)/2)
	var enums []EnumDefinition
	for i := 0; i < len(node.Content)-1; i += 2 {
		name := node.Content[i].Value
		if seen[name] {
			return nil, &ParseError{Reason: fmt.Sprintf("duplicate enum %q", name)}
		}
		seen[name] = true

		var values []string
		if err := node.Content[i+1].Decode(&values); err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("enum %q: values must be a list of strings: %v", name, err)}
		}
		enums = append(enums, EnumDefinition{Name: name, Values: values})
	}
	return enums, nil
}

// Marshal serializes a Schema back into its declarative document form.
// Parse(Marshal(s)) is structurally equal to s for every valid schema.
func Marshal(s *Schema) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	if s.Version != "" {
		appendScalarPair(root, "version", s.Version)
	}

	tables := &yaml.Node{Kind: yaml.MappingNode}
	for i := range s.Tables {
		tn, err := tableToNode(&s.Tables[i])
		if err != nil {
			return nil, err
		}
		tables.Content = append(tables.Content, scalarNode(s.Tables[i].Name), tn)
	}
	root.Content = append(root.Content, scalarNode("tables"), tables)

	if len(s.Enums) > 0 {
		enums := &yaml.Node{Kind: yaml.MappingNode}
		for _, e := range s.Enums {
			var vals yaml.Node
			if err := vals.Encode(e.Values); err != nil {
				return nil, fmt.Errorf("encoding enum %q: %w", e.Name, err)
			}
			vals.Style = yaml.FlowStyle
			enums.Content = append(enums.Content, scalarNode(e.Name), &vals)
		}
		root.Content = append(root.Content, scalarNode("enums"), enums)
	}

	return yaml.Marshal(root)
}

func tableToNode(t *Table) (*yaml.Node, error) {
	td := tableDoc{}
	for _, c := range t.Columns {
		nullable := c.Nullable
		td.Columns = append(td.Columns, columnDoc{
			Name:          c.Name,
			Type:          sqltype.Format(c.Type),
			Nullable:      &nullable,
			Default:       c.Default,
			AutoIncrement: c.AutoIncrement,
			RenamedFrom:   c.RenamedFrom,
		})
	}
	for _, c := range t.Constraints {
		switch v := c.(type) {
		case PrimaryKey:
			td.PrimaryKey = v.Columns
		case ForeignKey:
			td.Constraints = append(td.Constraints, constraintDoc{
				Name:              v.Name,
				Type:              "foreign_key",
				Columns:           v.Columns,
				ReferencedTable:   v.ReferencedTable,
				ReferencedColumns: v.ReferencedColumns,
			})
		case Unique:
			td.Constraints = append(td.Constraints, constraintDoc{
				Name:    v.Name,
				Type:    "unique",
				Columns: v.Columns,
			})
		case Check:
			td.Constraints = append(td.Constraints, constraintDoc{
				Name:       v.Name,
				Type:       "check",
				Columns:    v.Columns,
				Expression: v.Expression,
			})
		}
	}
	for _, id := range t.Indexes {
		td.Indexes = append(td.Indexes, indexDoc{Name: id.Name, Columns: id.Columns, Unique: id.Unique})
	}

	var n yaml.Node
	if err := n.Encode(td); err != nil {
		return nil, fmt.Errorf("encoding table %q: %w", t.Name, err)
	}
	return &n, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func appendScalarPair(m *yaml.Node, key, value string) {
	m.Content = append(m.Content, scalarNode(key), scalarNode(value))
}
