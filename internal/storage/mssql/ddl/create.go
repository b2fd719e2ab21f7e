// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// The builder here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
//   - Guards every CREATE INDEX with a sys.indexes lookup.
package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// Renderer renders T-SQL DDL.
type Renderer struct{}

var _ gddl.Renderer = Renderer{}

// CreateTable returns a guarded CREATE TABLE batch followed by one guarded
// CREATE INDEX per index.
//
//	IF OBJECT_ID(N'[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [table] (
//	    [col1] TYPE [NOT NULL] [DEFAULT expr],
//	    PRIMARY KEY ([pk1]),
//	    FOREIGN KEY ([c]) REFERENCES [p] ([id]) ON DELETE CASCADE
//	  );
//	END;
func (Renderer) CreateTable(t gddl.TableDef) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("mssql ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("mssql ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	pks := make([]string, 0, 1)
	for _, c := range t.Columns {
		var sb strings.Builder
		sb.WriteString(quoteIdent(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(c))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := mapDefault(c); def != "" {
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

	fqnQuoted := quoteFQN(fqn)
	stmts := []string{fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		fqnQuoted,
		fqnQuoted,
		strings.Join(cols, ",\n    "),
	)}
	for _, ix := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'%s' AND object_id = OBJECT_ID(N'%s'))\n  CREATE INDEX %s ON %s (%s);",
			strings.ReplaceAll(ix.Name, "'", "''"),
			fqnQuoted,
			quoteIdent(ix.Name),
			fqnQuoted,
			quoteList(ix.Columns),
		))
	}
	return stmts, nil
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func quoteList(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return strings.Join(out, ", ")
}

// quoteFQN quotes a possibly schema-qualified table name, e.g.:
//
//	"dbo.models" -> [dbo].[models]
//	"models"     -> [models]
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
