// Package ddl defines a small, backend-agnostic model for SQL DDL: tables,
// columns with logical kinds, foreign keys and secondary indexes.
//
// Backend-specific packages (internal/storage/<backend>/ddl) render this model
// into their own dialect. Every renderer must produce create-if-absent
// statements so that applying a schema twice is a no-op.
package ddl

import (
	"strings"

	"github.com/pkg/errors"
)

// Renderer turns a TableDef into the ordered list of statements that create
// the table and its indexes when they are absent.
type Renderer interface {
	CreateTable(t TableDef) ([]string, error)
}

// Validate checks the structural invariants shared by every renderer: a
// non-empty name, at least one column, named and typed columns, and foreign
// keys and indexes that only reference declared columns.
func Validate(t TableDef) error {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return errors.New("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return errors.Errorf("ddl: table %s needs at least one column", fqn)
	}

	known := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return errors.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if strings.TrimSpace(c.Kind) == "" {
			return errors.Errorf("ddl: column %s.%s missing kind", fqn, name)
		}
		if _, dup := known[name]; dup {
			return errors.Errorf("ddl: duplicate column %s.%s", fqn, name)
		}
		known[name] = struct{}{}
	}

	for _, fk := range t.ForeignKeys {
		if _, ok := known[fk.Column]; !ok {
			return errors.Errorf("ddl: foreign key on unknown column %s.%s", fqn, fk.Column)
		}
		if fk.RefTable == "" || fk.RefColumn == "" {
			return errors.Errorf("ddl: foreign key %s.%s has no target", fqn, fk.Column)
		}
	}
	for _, ix := range t.Indexes {
		if ix.Name == "" || len(ix.Columns) == 0 {
			return errors.Errorf("ddl: index on %s needs a name and columns", fqn)
		}
		for _, c := range ix.Columns {
			if _, ok := known[c]; !ok {
				return errors.Errorf("ddl: index %s references unknown column %s", ix.Name, c)
			}
		}
	}
	return nil
}

// Render applies r to every table in order and concatenates the statements.
// Parents must precede children so foreign keys resolve.
func Render(r Renderer, tables []TableDef) ([]string, error) {
	var out []string
	for _, t := range tables {
		if err := Validate(t); err != nil {
			return nil, err
		}
		stmts, err := r.CreateTable(t)
		if err != nil {
			return nil, errors.Wrapf(err, "render %s", t.FQN)
		}
		out = append(out, stmts...)
	}
	return out, nil
}
