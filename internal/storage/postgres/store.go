// Package postgres implements storage.Store on Postgres using pgx v5. Each
// entry is sent as a single pgx.Batch inside a nested transaction
// (savepoint), so an entry costs one round trip and a failure rolls back only
// that entry.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"modelcatalog/internal/ddl"
	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
	pgddl "modelcatalog/internal/storage/postgres/ddl"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

// schemaLockKey serializes concurrent EnsureSchema calls across loaders.
const schemaLockKey int64 = 0x6d6f64656c636174

// Config holds Postgres store configuration.
type Config struct {
	DSN        string // connection string for pgxpool
	MaxConns   int    // 0 keeps the pgxpool default
	OnConflict storage.ConflictPolicy
}

// Store is a pgxpool-backed storage.Store.
type Store struct {
	pool   *pgxpool.Pool
	policy storage.ConflictPolicy
}

var _ storage.Store = (*Store)(nil)

// Open creates the pool and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "pgxpool: parse config")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "pgxpool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, pkgerrors.Wrap(err, "postgres: ping")
	}
	policy := cfg.OnConflict
	if policy == "" {
		policy = storage.ConflictReject
	}
	return &Store{pool: pool, policy: policy}, nil
}

// EnsureSchema applies the catalog DDL in one transaction, holding an
// advisory lock so concurrent loaders do not race on CREATE.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts, err := ddl.Render(pgddl.Renderer{}, schema.Tables())
	if err != nil {
		return pkgerrors.Wrap(err, "postgres: render schema")
	}
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
			return pkgerrors.Wrap(err, "postgres: schema lock")
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return pkgerrors.Wrapf(err, "postgres: apply DDL %q", firstLine(stmt))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"kind": "postgres", "statements": len(stmts)}).Debug("schema ensured")
	return nil
}

// Begin implements storage.Store.
func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "postgres: begin tx")
	}
	return &Tx{tx: tx, policy: s.policy}, nil
}

// RecomputeDerivativeCounts implements storage.Store.
func (s *Store) RecomputeDerivativeCounts(ctx context.Context) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, schema.DerivativeCountSQL)
		if err != nil {
			return pkgerrors.Wrap(err, "postgres: recompute derivative counts")
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

// DeleteModel implements storage.Store.
func (s *Store) DeleteModel(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		queueDelete(b, id)
		br := tx.SendBatch(ctx, b)
		var tag pgconn.CommandTag
		for i := 0; i < b.Len(); i++ {
			t, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return pkgerrors.Wrapf(err, "postgres: delete model %s", id)
			}
			tag = t
		}
		existed = tag.RowsAffected() > 0
		return br.Close()
	})
	return existed, err
}

// Close implements storage.Store.
func (s *Store) Close() { s.pool.Close() }

// Tx is a storage.Tx over a pgx transaction.
type Tx struct {
	tx     pgx.Tx
	policy storage.ConflictPolicy
}

var _ storage.Tx = (*Tx)(nil)

// WriteEntry implements storage.Tx.
func (t *Tx) WriteEntry(ctx context.Context, e *schema.Entry) error {
	id := e.Model.ID
	sub, err := t.tx.Begin(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "postgres: savepoint")
	}

	b := entryBatch(e, t.policy, time.Now().UTC())
	br := sub.SendBatch(ctx, b)
	var execErr error
	for i := 0; i < b.Len() && execErr == nil; i++ {
		_, execErr = br.Exec()
	}
	closeErr := br.Close()
	if execErr == nil {
		execErr = closeErr
	}
	if execErr != nil {
		if rbErr := sub.Rollback(ctx); rbErr != nil {
			return pkgerrors.Wrapf(rbErr, "postgres: rollback to savepoint after %v", execErr)
		}
		var pgErr *pgconn.PgError
		if errors.As(execErr, &pgErr) && pgErr.Code == uniqueViolation && pgErr.TableName == schema.TableModels {
			return pkgerrors.Wrapf(storage.ErrDuplicate, "model %s", id)
		}
		return pkgerrors.Wrapf(execErr, "postgres: write model %s", id)
	}
	if err := sub.Commit(ctx); err != nil {
		return pkgerrors.Wrap(err, "postgres: release savepoint")
	}
	return nil
}

// Commit implements storage.Tx.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return pkgerrors.Wrap(err, "postgres: commit")
	}
	return nil
}

// Rollback implements storage.Tx. Rolling back a finished transaction is
// not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return pkgerrors.Wrap(err, "postgres: rollback")
	}
	return nil
}

// metadataIdx is the position of the JSONB column in schema.ModelColumns.
var metadataIdx = func() int {
	for i, c := range schema.ModelColumns {
		if c == "metadata" {
			return i
		}
	}
	panic("postgres: models has no metadata column")
}()

// entryBatch queues every statement for e: optional replace deletes, the
// parent row, then child rows.
func entryBatch(e *schema.Entry, policy storage.ConflictPolicy, now time.Time) *pgx.Batch {
	b := &pgx.Batch{}
	if policy == storage.ConflictReplace {
		queueDelete(b, e.Model.ID)
	}

	row := schema.ModelRow(&e.Model, now)
	if len(e.Model.Metadata) > 0 {
		// Raw bytes go to JSONB verbatim.
		row[metadataIdx] = json.RawMessage(e.Model.Metadata)
	}
	b.Queue(insertSQL(schema.TableModels, schema.ModelColumns), row...)
	for _, r := range schema.ChildRows(e) {
		b.Queue(insertSQL(r.Table, r.Columns), r.Values...)
	}
	return b
}

// queueDelete removes children first, then the parent; the parent delete is
// queued last so its command tag reports whether the model existed.
func queueDelete(b *pgx.Batch, id string) {
	for _, fk := range schema.ChildFK {
		b.Queue(fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pgIdent(fk.Table), pgIdent(fk.Column)), id)
	}
	b.Queue(fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pgIdent(schema.TableModels), pgIdent("id")), id)
}

func insertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgIdent(c)
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// pgIdent safely quotes an identifier for Postgres.
func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
