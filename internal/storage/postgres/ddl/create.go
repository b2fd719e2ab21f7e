package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// Renderer renders Postgres DDL with IF NOT EXISTS guards on tables and
// indexes. Identifiers are double-quoted; schema-qualified names are quoted
// per segment.
type Renderer struct{}

var _ gddl.Renderer = Renderer{}

// CreateTable implements gddl.Renderer.
//
//	CREATE TABLE IF NOT EXISTS "t" (
//	  "col" TYPE [NOT NULL] [DEFAULT expr],
//	  PRIMARY KEY ("pk"),
//	  FOREIGN KEY ("c") REFERENCES "p" ("id") ON DELETE CASCADE
//	);
//	CREATE INDEX IF NOT EXISTS "ix" ON "t" ("c");
func (Renderer) CreateTable(t gddl.TableDef) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("postgres ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("postgres ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
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
		cols = append(cols, sb.String())
		if c.PrimaryKey {
			pks = append(pks, quoteIdent(c.Name))
		}
	}
	if len(pks) > 0 {
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

	stmts := []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	)}
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

// quoteFQN quotes each dot-separated segment and drops empty ones:
//
//	public.models -> "public"."models"
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
