// Package mssql registers the Microsoft SQL Server backend
// (github.com/microsoft/go-mssqldb) under storage kind "mssql".
package mssql

import (
	"context"
	"errors"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	pkgerrors "github.com/pkg/errors"

	"modelcatalog/internal/ddl"
	"modelcatalog/internal/storage"
	mssqlddl "modelcatalog/internal/storage/mssql/ddl"
	"modelcatalog/internal/storage/sqldb"
)

// Server error numbers for key violations.
const (
	errPrimaryKeyViolation  = 2627
	errUniqueIndexViolation = 2601
)

// Config holds MSSQL store configuration.
type Config struct {
	DSN        string
	MaxConns   int
	OnConflict storage.ConflictPolicy
}

// Dialect is the T-SQL flavour of sqldb.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "mssql" }

func (Dialect) DriverName() string { return "sqlserver" }

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (Dialect) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func (Dialect) Renderer() ddl.Renderer { return mssqlddl.Renderer{} }

func (Dialect) SavepointSQL(name string) string { return "SAVE TRANSACTION " + name }

func (Dialect) RollbackToSQL(name string) string { return "ROLLBACK TRANSACTION " + name }

// ReleaseSQL returns "": T-SQL savepoints live until the transaction ends.
func (Dialect) ReleaseSQL(string) string { return "" }

// IsDuplicate implements sqldb.Dialect.
func (Dialect) IsDuplicate(err error) bool {
	var num int32
	var ve mssql.Error
	var pe *mssql.Error
	switch {
	case errors.As(err, &ve):
		num = ve.Number
	case errors.As(err, &pe):
		num = pe.Number
	default:
		return false
	}
	return num == errPrimaryKeyViolation || num == errUniqueIndexViolation
}

// Open validates the DSN, connects and pings the server.
func Open(ctx context.Context, cfg Config) (*sqldb.Store, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, pkgerrors.Wrap(err, "mssql dsn")
	}
	return sqldb.Open(ctx, Dialect{}, cfg.DSN, sqldb.Options{
		MaxOpenConns: cfg.MaxConns,
		OnConflict:   cfg.OnConflict,
	})
}
