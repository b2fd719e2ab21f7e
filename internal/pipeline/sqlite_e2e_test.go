package pipeline

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelcatalog/internal/datasource/file"
	"modelcatalog/internal/storage"
	"modelcatalog/internal/storage/sqldb"
	"modelcatalog/internal/storage/sqlite"
)

const e2eDump = `{"id":"meta/base","author":"meta","pipeline_tag":"text-generation","likes":"12","downloads":900,"created_at":"2024-01-02T03:04:05.000+00:00","tags":["transformers","en","license:llama3"],"siblings":[{"rfilename":"config.json","size":512},{"rfilename":"model.safetensors","lfs":{"size":1}}]}
{"id":"alice/chat","tags":["base_model:finetune:meta/base","base_model:adapter:meta/base","dataset:ultrachat","peft"],"siblings":"[RepoSibling(rfilename='adapter.bin', size=None)]"}
{"id":"bob/quant","gated":"auto","tags":["base_model:quantized:meta/base","base_model:ghost/missing"]}
{"id":"broken","likes":{"n":1}}
`

func writeGzip(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func openSQLite(t *testing.T, dsn string, policy storage.ConflictPolicy) *sqldb.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), sqlite.Config{DSN: dsn, OnConflict: policy})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestRun_SQLiteEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hf_models.jsonl.gz")
	writeGzip(t, input, e2eDump)
	dsn := filepath.Join(dir, "catalog.db")
	ctx := context.Background()

	st := openSQLite(t, dsn, storage.ConflictReject)
	logger, _ := quietLogger()
	d, err := New(file.NewLocal(input), st, Options{BatchSize: 2, Workers: 2, Logger: logger})
	require.NoError(t, err)

	sum, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sum.Lines)
	assert.Equal(t, int64(3), sum.Written)
	assert.Equal(t, int64(1), sum.LineErrors)
	assert.Zero(t, sum.WriteErrors)

	db := st.DB()
	count := func(q string, args ...any) int64 {
		t.Helper()
		var n int64
		require.NoError(t, db.QueryRowContext(ctx, q, args...).Scan(&n))
		return n
	}

	assert.Equal(t, int64(3), count(`SELECT COUNT(*) FROM models`))
	assert.Equal(t, int64(3), count(`SELECT derivative_count FROM models WHERE id = ?`, "meta/base"))
	assert.Equal(t, int64(0), count(`SELECT derivative_count FROM models WHERE id = ?`, "alice/chat"))
	assert.Equal(t, int64(1), count(`SELECT COUNT(*) FROM base_model_relations WHERE base_model_id = ?`, "ghost/missing"))
	assert.Equal(t, int64(1), count(`SELECT has_base_model FROM models WHERE id = ?`, "bob/quant"))
	assert.Equal(t, int64(0), count(`SELECT has_base_model FROM models WHERE id = ?`, "meta/base"))
	assert.Equal(t, int64(1), count(`SELECT gated FROM models WHERE id = ?`, "bob/quant"))
	assert.Equal(t, int64(12), count(`SELECT likes FROM models WHERE id = ?`, "meta/base"))
	assert.Equal(t, int64(1), count(`SELECT COUNT(*) FROM model_tags WHERE tag_type = 'language'`))
	assert.Equal(t, int64(1), count(`SELECT COUNT(*) FROM model_tags WHERE tag_type = 'license'`))
	assert.Equal(t, int64(1), count(`SELECT COUNT(*) FROM dataset_relations WHERE dataset_name = 'ultrachat'`))
	assert.Equal(t, int64(3), count(`SELECT COUNT(*) FROM model_siblings`))
	assert.Equal(t, int64(1), count(`SELECT lfs FROM model_siblings WHERE filename = 'model.safetensors'`))

	// A rerun under the default policy rejects every record and leaves the
	// stored rows untouched.
	d, err = New(file.NewLocal(input), st, Options{Logger: logger})
	require.NoError(t, err)
	sum, err = d.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Written)
	assert.Equal(t, int64(3), sum.WriteErrors)
	assert.Equal(t, int64(3), count(`SELECT COUNT(*) FROM model_tags WHERE model_id = ?`, "meta/base"))

	// Under replace the rerun rewrites every record without duplicating children.
	st.Close()
	st = openSQLite(t, dsn, storage.ConflictReplace)
	db = st.DB()
	d, err = New(file.NewLocal(input), st, Options{Logger: logger})
	require.NoError(t, err)
	sum, err = d.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Written)
	assert.Equal(t, int64(3), count(`SELECT COUNT(*) FROM model_tags WHERE model_id = ?`, "meta/base"))
	assert.Equal(t, int64(3), count(`SELECT derivative_count FROM models WHERE id = ?`, "meta/base"))
}
