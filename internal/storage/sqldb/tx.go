package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
)

const entrySavepoint = "catalog_entry"

// Tx is a storage.Tx over a *sql.Tx. Each WriteEntry runs inside a
// savepoint that is rolled back on failure, leaving the outer transaction
// usable for the rest of the batch.
type Tx struct {
	tx     *sql.Tx
	d      Dialect
	policy storage.ConflictPolicy
	stmts  map[string]*sql.Stmt
	now    func() time.Time
}

var _ storage.Tx = (*Tx)(nil)

// WriteEntry implements storage.Tx.
func (t *Tx) WriteEntry(ctx context.Context, e *schema.Entry) error {
	if _, err := t.tx.ExecContext(ctx, t.d.SavepointSQL(entrySavepoint)); err != nil {
		return errors.Wrapf(err, "%s: savepoint", t.d.Name())
	}
	if err := t.writeEntry(ctx, e); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, t.d.RollbackToSQL(entrySavepoint)); rbErr != nil {
			return errors.Wrapf(rbErr, "%s: rollback to savepoint after %v", t.d.Name(), err)
		}
		if relErr := t.release(ctx); relErr != nil {
			return relErr
		}
		return err
	}
	return t.release(ctx)
}

func (t *Tx) release(ctx context.Context) error {
	stmt := t.d.ReleaseSQL(entrySavepoint)
	if stmt == "" {
		return nil
	}
	if _, err := t.tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "%s: release savepoint", t.d.Name())
	}
	return nil
}

func (t *Tx) writeEntry(ctx context.Context, e *schema.Entry) error {
	id := e.Model.ID
	if t.policy == storage.ConflictReplace {
		if _, err := deleteEntry(ctx, t.tx, t.d, id); err != nil {
			return err
		}
	}

	if err := t.insert(ctx, schema.TableModels, schema.ModelColumns, schema.ModelRow(&e.Model, t.clock())); err != nil {
		if t.d.IsDuplicate(err) {
			return errors.Wrapf(storage.ErrDuplicate, "model %s", id)
		}
		return errors.Wrapf(err, "%s: insert model %s", t.d.Name(), id)
	}
	for _, r := range schema.ChildRows(e) {
		if err := t.insert(ctx, r.Table, r.Columns, r.Values); err != nil {
			return errors.Wrapf(err, "%s: insert %s row for %s", t.d.Name(), r.Table, id)
		}
	}
	return nil
}

// insert executes a per-table prepared INSERT, preparing it on first use.
func (t *Tx) insert(ctx context.Context, table string, columns []string, values []any) error {
	stmt, ok := t.stmts[table]
	if !ok {
		var err error
		stmt, err = t.tx.PrepareContext(ctx, InsertSQL(t.d, table, columns))
		if err != nil {
			return errors.Wrapf(err, "prepare insert into %s", table)
		}
		t.stmts[table] = stmt
	}
	_, err := stmt.ExecContext(ctx, values...)
	return err
}

func (t *Tx) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now().UTC()
}

func (t *Tx) closeStmts() {
	for k, s := range t.stmts {
		_ = s.Close()
		delete(t.stmts, k)
	}
}

// Commit implements storage.Tx.
func (t *Tx) Commit(context.Context) error {
	t.closeStmts()
	if err := t.tx.Commit(); err != nil {
		return errors.Wrapf(err, "%s: commit", t.d.Name())
	}
	return nil
}

// Rollback implements storage.Tx. Rolling back a finished transaction is
// not an error.
func (t *Tx) Rollback(context.Context) error {
	t.closeStmts()
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Wrapf(err, "%s: rollback", t.d.Name())
	}
	return nil
}
