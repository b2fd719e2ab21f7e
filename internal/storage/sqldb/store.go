package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"modelcatalog/internal/ddl"
	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns int
	OnConflict   storage.ConflictPolicy
}

// Store is a storage.Store over a *sql.DB.
type Store struct {
	db     *sql.DB
	d      Dialect
	policy storage.ConflictPolicy
}

var _ storage.Store = (*Store)(nil)

// Open connects with d's driver and pings the server, failing fast on a bad
// DSN.
func Open(ctx context.Context, d Dialect, dsn string, opts Options) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.Errorf("%s: DSN must not be empty", d.Name())
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: open", d.Name())
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "%s: ping", d.Name())
	}
	return New(db, d, opts.OnConflict), nil
}

// New wraps an already-open database.
func New(db *sql.DB, d Dialect, policy storage.ConflictPolicy) *Store {
	if policy == "" {
		policy = storage.ConflictReject
	}
	return &Store{db: db, d: d, policy: policy}
}

// DB exposes the underlying handle, mainly for tests and diagnostics.
func (s *Store) DB() *sql.DB { return s.db }

// EnsureSchema implements storage.Store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts, err := ddl.Render(s.d.Renderer(), schema.Tables())
	if err != nil {
		return errors.Wrapf(err, "%s: render schema", s.d.Name())
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "%s: apply DDL %q", s.d.Name(), firstLine(stmt))
		}
	}
	log.WithFields(log.Fields{"kind": s.d.Name(), "statements": len(stmts)}).Debug("schema ensured")
	return nil
}

// Begin implements storage.Store.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: begin tx", s.d.Name())
	}
	return &Tx{tx: tx, d: s.d, policy: s.policy, stmts: map[string]*sql.Stmt{}}, nil
}

// RecomputeDerivativeCounts implements storage.Store.
func (s *Store) RecomputeDerivativeCounts(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: begin aggregation", s.d.Name())
	}
	res, err := tx.ExecContext(ctx, schema.DerivativeCountSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, errors.Wrapf(err, "%s: recompute derivative counts", s.d.Name())
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "%s: commit aggregation", s.d.Name())
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteModel implements storage.Store. Child rows are deleted explicitly so
// the result does not depend on the backend enforcing ON DELETE CASCADE.
func (s *Store) DeleteModel(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrapf(err, "%s: begin delete", s.d.Name())
	}
	existed, err := deleteEntry(ctx, tx, s.d, id)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrapf(err, "%s: commit delete", s.d.Name())
	}
	return existed, nil
}

// Close implements storage.Store.
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteEntry(ctx context.Context, x execer, d Dialect, id string) (bool, error) {
	for _, fk := range schema.ChildFK {
		if _, err := x.ExecContext(ctx, DeleteSQL(d, fk.Table, fk.Column), id); err != nil {
			return false, errors.Wrapf(err, "%s: delete %s rows of %s", d.Name(), fk.Table, id)
		}
	}
	res, err := x.ExecContext(ctx, DeleteSQL(d, schema.TableModels, "id"), id)
	if err != nil {
		return false, errors.Wrapf(err, "%s: delete model %s", d.Name(), id)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
