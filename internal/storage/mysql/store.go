// Package mysql registers the MySQL backend (github.com/go-sql-driver/mysql)
// under storage kind "mysql".
package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"

	"modelcatalog/internal/ddl"
	"modelcatalog/internal/storage"
	mysqlddl "modelcatalog/internal/storage/mysql/ddl"
	"modelcatalog/internal/storage/sqldb"
)

const errDupEntry = 1062

// Config holds MySQL store configuration.
type Config struct {
	DSN        string
	MaxConns   int
	OnConflict storage.ConflictPolicy
}

// Dialect is the MySQL flavour of sqldb.Dialect.
type Dialect struct {
	sqldb.ANSISavepoints
	sqldb.QuestionMarks
}

func (Dialect) Name() string { return "mysql" }

func (Dialect) DriverName() string { return "mysql" }

func (Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (Dialect) Renderer() ddl.Renderer { return mysqlddl.Renderer{} }

// IsDuplicate matches ER_DUP_ENTRY.
func (Dialect) IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// normalizeDSN parses dsn and forces UTC time handling so timestamps round
// trip unchanged.
func normalizeDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", pkgerrors.Wrap(err, "mysql dsn")
	}
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

// Open normalizes the DSN, connects and pings the server.
func Open(ctx context.Context, cfg Config) (*sqldb.Store, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, Dialect{}, dsn, sqldb.Options{
		MaxOpenConns: cfg.MaxConns,
		OnConflict:   cfg.OnConflict,
	})
}
