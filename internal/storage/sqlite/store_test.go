package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
	"modelcatalog/internal/storage/sqldb"
	"modelcatalog/internal/transformer"
)

/*
Package-level test helpers (TB-aware)
*/

func openTestStore(tb testing.TB, policy storage.ConflictPolicy) *sqldb.Store {
	tb.Helper()
	ctx := context.Background()
	st, err := Open(ctx, Config{DSN: filepath.Join(tb.TempDir(), "catalog.db"), OnConflict: policy})
	require.NoError(tb, err)
	tb.Cleanup(st.Close)
	require.NoError(tb, st.EnsureSchema(ctx))
	return st
}

func buildEntry(tb testing.TB, line string) *schema.Entry {
	tb.Helper()
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	require.NoError(tb, dec.Decode(&obj))
	e, err := transformer.BuildEntry(obj, []byte(line))
	require.NoError(tb, err)
	return e
}

// writeAll writes entries in one transaction and returns the per-entry errors.
func writeAll(tb testing.TB, st storage.Store, entries ...*schema.Entry) []error {
	tb.Helper()
	ctx := context.Background()
	tx, err := st.Begin(ctx)
	require.NoError(tb, err)
	errs := make([]error, len(entries))
	for i, e := range entries {
		errs[i] = tx.WriteEntry(ctx, e)
	}
	require.NoError(tb, tx.Commit(ctx))
	return errs
}

func count(tb testing.TB, db *sql.DB, query string, args ...any) int {
	tb.Helper()
	var n int
	require.NoError(tb, db.QueryRow(query, args...).Scan(&n))
	return n
}

const (
	baseLine  = `{"id":"org/base","author":"org","likes":10,"tags":["en","pytorch","license:mit"]}`
	ftLine    = `{"id":"org/ft","tags":["base_model:finetune:org/base"],"created_at":"2024-01-02T03:04:05+00:00"}`
	adaptLine = `{"id":"org/adapter","tags":["base_model:adapter:org/base","dataset:squad"],` +
		`"siblings":"[ModelFile(rfilename='adapter.bin'), ModelFile(rfilename='README.md')]"}`
)

/*
Unit tests
*/

func TestEnsureSchema_Idempotent(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	require.NoError(t, st.EnsureSchema(context.Background()))

	n := count(t, st.DB(), `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		('models','model_tags','base_model_relations','dataset_relations','model_siblings')`)
	assert.Equal(t, 5, n)

	n = count(t, st.DB(), `SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name LIKE 'ix_%'`)
	assert.Equal(t, 17, n)
}

func TestWriteEntry_AndDerivativeCounts(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	db := st.DB()
	errs := writeAll(t, st, buildEntry(t, baseLine), buildEntry(t, ftLine), buildEntry(t, adaptLine))
	for _, err := range errs {
		require.NoError(t, err)
	}

	n, err := st.RecomputeDerivativeCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	var derivatives int64
	require.NoError(t, db.QueryRow(`SELECT derivative_count FROM models WHERE id = ?`, "org/base").Scan(&derivatives))
	assert.Equal(t, int64(2), derivatives)
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM models WHERE id <> 'org/base' AND derivative_count <> 0`))

	var hasBase bool
	require.NoError(t, db.QueryRow(`SELECT has_base_model FROM models WHERE id = ?`, "org/ft").Scan(&hasBase))
	assert.True(t, hasBase)
	require.NoError(t, db.QueryRow(`SELECT has_base_model FROM models WHERE id = ?`, "org/base").Scan(&hasBase))
	assert.False(t, hasBase)

	assert.Equal(t, 6, count(t, db, `SELECT COUNT(*) FROM model_tags`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM model_tags WHERE tag = 'en' AND tag_type = 'language'`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM base_model_relations WHERE base_model_id = 'org/base'`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM base_model_relations WHERE derivative_id = 'org/adapter' AND relation_type = 'adapter'`))
	assert.Equal(t, 1, count(t, db, `SELECT COUNT(*) FROM dataset_relations WHERE model_id = 'org/adapter' AND dataset_name = 'squad'`))
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM model_siblings WHERE model_id = 'org/adapter' AND size IS NULL`))

	var metadata string
	require.NoError(t, db.QueryRow(`SELECT metadata FROM models WHERE id = ?`, "org/base").Scan(&metadata))
	assert.Equal(t, baseLine, metadata)
}

func TestRecompute_IsIdempotentAndCountsDanglingBases(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	// The base is never loaded; its lineage row is kept but counts nowhere.
	writeAll(t, st, buildEntry(t, ftLine))

	for i := 0; i < 2; i++ {
		_, err := st.RecomputeDerivativeCounts(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, count(t, st.DB(), `SELECT COUNT(*) FROM base_model_relations WHERE base_model_id = 'org/base'`))
	assert.Equal(t, 0, count(t, st.DB(), `SELECT COALESCE(SUM(derivative_count), 0) FROM models`))
}

func TestWriteEntry_DuplicateRejected(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	errs := writeAll(t, st, buildEntry(t, baseLine), buildEntry(t, baseLine))
	require.NoError(t, errs[0])
	require.Error(t, errs[1])
	assert.True(t, errors.Is(errs[1], storage.ErrDuplicate), "got %v", errs[1])

	// Rerun in a later batch.
	errs = writeAll(t, st, buildEntry(t, baseLine))
	assert.True(t, errors.Is(errs[0], storage.ErrDuplicate))

	assert.Equal(t, 1, count(t, st.DB(), `SELECT COUNT(*) FROM models`))
	assert.Equal(t, 3, count(t, st.DB(), `SELECT COUNT(*) FROM model_tags`), "no duplicate child rows")
}

func TestWriteEntry_ReplacePolicy(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReplace)
	writeAll(t, st, buildEntry(t, baseLine))

	updated := `{"id":"org/base","likes":99,"tags":["fr"]}`
	errs := writeAll(t, st, buildEntry(t, updated))
	require.NoError(t, errs[0])

	var likes int64
	require.NoError(t, st.DB().QueryRow(`SELECT likes FROM models WHERE id = 'org/base'`).Scan(&likes))
	assert.Equal(t, int64(99), likes)
	assert.Equal(t, 1, count(t, st.DB(), `SELECT COUNT(*) FROM model_tags WHERE model_id = 'org/base'`))
}

func TestWriteEntry_FailedChildLeavesNoPartialRows(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	_, err := st.DB().Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON model_tags
		WHEN NEW.tag = 'boom' BEGIN SELECT RAISE(ABORT, 'boom tag'); END;`)
	require.NoError(t, err)

	bad := `{"id":"org/bad","tags":["ok","boom"],"siblings":[{"rfilename":"x.bin"}]}`
	errs := writeAll(t, st, buildEntry(t, baseLine), buildEntry(t, bad), buildEntry(t, ftLine))
	require.NoError(t, errs[0])
	require.Error(t, errs[1])
	assert.Contains(t, errs[1].Error(), "model_tags")
	require.NoError(t, errs[2])

	db := st.DB()
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM models`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM models WHERE id = 'org/bad'`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM model_tags WHERE model_id = 'org/bad'`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM model_siblings WHERE model_id = 'org/bad'`))
}

func TestWriteEntry_FileCap(t *testing.T) {
	t.Parallel()

	files := make([]string, 70)
	for i := range files {
		files[i] = fmt.Sprintf(`{"rfilename":"f%02d.bin","size":%d,"lfs":{"oid":"x"}}`, i, i)
	}
	line := `{"id":"org/big","siblings":[` + strings.Join(files, ",") + `]}`

	st := openTestStore(t, storage.ConflictReject)
	errs := writeAll(t, st, buildEntry(t, line))
	require.NoError(t, errs[0])

	db := st.DB()
	assert.Equal(t, 50, count(t, db, `SELECT COUNT(*) FROM model_siblings WHERE model_id = 'org/big'`))
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM model_siblings WHERE filename >= 'f50.bin'`))
	assert.Equal(t, 50, count(t, db, `SELECT COUNT(*) FROM model_siblings WHERE lfs = 1`))
}

func TestRollback_DiscardsBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openTestStore(t, storage.ConflictReject)
	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.WriteEntry(ctx, buildEntry(t, baseLine)))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx), "second rollback is a no-op")

	assert.Equal(t, 0, count(t, st.DB(), `SELECT COUNT(*) FROM models`))
}

func TestDeleteModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openTestStore(t, storage.ConflictReject)
	writeAll(t, st, buildEntry(t, baseLine), buildEntry(t, adaptLine))

	ok, err := st.DeleteModel(ctx, "org/adapter")
	require.NoError(t, err)
	assert.True(t, ok)

	db := st.DB()
	for _, table := range []string{"model_tags", "dataset_relations", "model_siblings"} {
		assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM `+table+` WHERE model_id = 'org/adapter'`), table)
	}
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM base_model_relations WHERE derivative_id = 'org/adapter'`))
	assert.Equal(t, 3, count(t, db, `SELECT COUNT(*) FROM model_tags`), "other models untouched")

	ok, err = st.DeleteModel(ctx, "org/adapter")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForeignKeysCascade(t *testing.T) {
	t.Parallel()

	st := openTestStore(t, storage.ConflictReject)
	writeAll(t, st, buildEntry(t, adaptLine))

	_, err := st.DB().Exec(`DELETE FROM models WHERE id = 'org/adapter'`)
	require.NoError(t, err)
	assert.Equal(t, 0, count(t, st.DB(), `SELECT COUNT(*) FROM model_siblings`))
	assert.Equal(t, 0, count(t, st.DB(), `SELECT COUNT(*) FROM base_model_relations`))
}

func TestConfigDSN(t *testing.T) {
	t.Parallel()

	got := Config{DSN: "catalog.db"}.dsn()
	assert.Equal(t, "catalog.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", got)

	got = Config{DSN: "file:x.db?cache=shared&_pragma=foreign_keys(1)"}.dsn()
	assert.Equal(t, "file:x.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", got)

	assert.Empty(t, Config{DSN: "  "}.dsn())
}

func TestRegistration_UsesHook(t *testing.T) {
	origNewStore := newStore
	defer func() { newStore = origNewStore }()

	var got Config
	boom := errors.New("boom")
	newStore = func(ctx context.Context, cfg Config) (*sqldb.Store, error) {
		got = cfg
		return nil, boom
	}

	st, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db", OnConflict: storage.ConflictReplace})
	assert.Nil(t, st)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, Config{DSN: "x.db", OnConflict: storage.ConflictReplace}, got)
	assert.Contains(t, storage.ListKinds(), "sqlite")
}
