// Package sqldb implements storage.Store on top of database/sql. Backends
// that speak through a database/sql driver (SQLite, SQL Server, MySQL)
// supply a Dialect; everything else, including transactions, per-entry
// savepoints and the aggregation pass, is shared.
package sqldb

import (
	"fmt"
	"strings"

	"modelcatalog/internal/ddl"
)

// Dialect captures what differs between database/sql backends.
type Dialect interface {
	// Name is the storage kind, used in error messages.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// Quote quotes a single identifier.
	Quote(ident string) string
	// Renderer renders the catalog DDL.
	Renderer() ddl.Renderer
	// SavepointSQL, RollbackToSQL and ReleaseSQL manage a named savepoint.
	// ReleaseSQL may return "" when the dialect has no release statement.
	SavepointSQL(name string) string
	RollbackToSQL(name string) string
	ReleaseSQL(name string) string
	// IsDuplicate reports whether err is a primary or unique key violation.
	IsDuplicate(err error) bool
}

// ANSISavepoints implements the savepoint methods with standard SQL syntax
// (SAVEPOINT, ROLLBACK TO SAVEPOINT, RELEASE SAVEPOINT).
type ANSISavepoints struct{}

func (ANSISavepoints) SavepointSQL(name string) string  { return "SAVEPOINT " + name }
func (ANSISavepoints) RollbackToSQL(name string) string { return "ROLLBACK TO SAVEPOINT " + name }
func (ANSISavepoints) ReleaseSQL(name string) string    { return "RELEASE SAVEPOINT " + name }

// QuestionMarks implements Placeholder with "?" markers.
type QuestionMarks struct{}

func (QuestionMarks) Placeholder(int) string { return "?" }

// InsertSQL builds "INSERT INTO t (c1, c2) VALUES (p1, p2)" for d.
func InsertSQL(d Dialect, table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// DeleteSQL builds "DELETE FROM t WHERE c = p1" for d.
func DeleteSQL(d Dialect, table, column string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = %s", d.Quote(table), d.Quote(column), d.Placeholder(1))
}
