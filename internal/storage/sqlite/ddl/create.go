package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// Renderer renders SQLite DDL:
//   - double-quoted identifiers: "table", "col"
//   - CREATE TABLE IF NOT EXISTS and CREATE INDEX IF NOT EXISTS
//   - a single serial primary key becomes INTEGER PRIMARY KEY AUTOINCREMENT
//   - other primary keys are rendered as a table constraint
type Renderer struct{}

var _ gddl.Renderer = Renderer{}

// CreateTable implements gddl.Renderer.
func (Renderer) CreateTable(t gddl.TableDef) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("sqlite ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("sqlite ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	pks := make([]string, 0, 1)
	inlinePK := false

	for _, c := range t.Columns {
		var sb strings.Builder
		sb.WriteString(quoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c))

		switch {
		case c.Kind == gddl.KindSerial && c.PrimaryKey:
			sb.WriteString(" PRIMARY KEY AUTOINCREMENT")
			inlinePK = true
		case !c.Nullable:
			sb.WriteString(" NOT NULL")
		}
		if def := mapDefault(c); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey && c.Kind != gddl.KindSerial {
			pks = append(pks, quoteIdent(c.Name))
		}
	}

	if len(pks) > 0 {
		if inlinePK {
			return nil, fmt.Errorf("sqlite ddl: table %s mixes a serial key with other primary keys", fqn)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(fk.Column), quoteFQN(fk.RefTable), quoteIdent(fk.RefColumn))
		if fk.OnDeleteCascade {
			clause += " ON DELETE CASCADE"
		}
		cols = append(cols, clause)
	}

	stmts := make([]string, 0, 1+len(t.Indexes))
	stmts = append(stmts, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	))
	for _, ix := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
			quoteIdent(ix.Name), quoteFQN(fqn), quoteList(ix.Columns),
		))
	}
	return stmts, nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return strings.Join(out, ", ")
}

func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
