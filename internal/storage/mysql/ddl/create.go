package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// Renderer renders MySQL DDL. MySQL has no CREATE INDEX IF NOT EXISTS, so
// secondary indexes are declared inline and the whole table is guarded by
// CREATE TABLE IF NOT EXISTS. Identifiers are backtick-quoted.
type Renderer struct{}

var _ gddl.Renderer = Renderer{}

// CreateTable implements gddl.Renderer. It always returns one statement.
func (Renderer) CreateTable(t gddl.TableDef) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("mysql ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("mysql ddl: at least one column is required")
	}

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+len(t.Indexes)+1)
	var pks []string
	for _, c := range t.Columns {
		var sb strings.Builder
		sb.WriteString(quoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		lines = append(lines, sb.String())
		if c.PrimaryKey {
			pks = append(pks, quoteIdent(c.Name))
		}
	}
	if len(pks) > 0 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	for _, ix := range t.Indexes {
		lines = append(lines, fmt.Sprintf("INDEX %s (%s)", quoteIdent(ix.Name), quoteList(ix.Columns)))
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(fk.Column), quoteFQN(fk.RefTable), quoteIdent(fk.RefColumn))
		if fk.OnDeleteCascade {
			clause += " ON DELETE CASCADE"
		}
		lines = append(lines, clause)
	}

	return []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;",
		quoteFQN(fqn),
		strings.Join(lines, ",\n  "),
	)}, nil
}

func quoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
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
