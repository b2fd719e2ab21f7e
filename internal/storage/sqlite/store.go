package sqlite

import (
	"context"
	"errors"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"modelcatalog/internal/ddl"
	"modelcatalog/internal/storage/sqldb"
	sqliteddl "modelcatalog/internal/storage/sqlite/ddl"
)

// Dialect is the SQLite flavour of sqldb.Dialect.
type Dialect struct {
	sqldb.ANSISavepoints
	sqldb.QuestionMarks
}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) DriverName() string { return "sqlite" }

func (Dialect) Renderer() ddl.Renderer { return sqliteddl.Renderer{} }

func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// IsDuplicate matches PRIMARY KEY and UNIQUE constraint failures, with or
// without extended result codes enabled.
func (Dialect) IsDuplicate(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		(strings.Contains(se.Error(), "UNIQUE") || strings.Contains(se.Error(), "PRIMARY KEY"))
}

// Open opens the database at cfg.DSN. SQLite allows one writer at a time, so
// the pool is limited to a single connection; concurrent shards queue on it.
func Open(ctx context.Context, cfg Config) (*sqldb.Store, error) {
	return sqldb.Open(ctx, Dialect{}, cfg.dsn(), sqldb.Options{
		MaxOpenConns: 1,
		OnConflict:   cfg.OnConflict,
	})
}
