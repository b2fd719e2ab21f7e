package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelcatalog/internal/ddl"
)

func TestTables_Valid(t *testing.T) {
	t.Parallel()

	tables := Tables()
	require.Len(t, tables, 5)
	assert.Equal(t, TableModels, tables[0].FQN, "parent table must come first")

	for _, td := range tables {
		require.NoError(t, ddl.Validate(td), td.FQN)
	}
}

func TestTables_ChildrenCascadeToModels(t *testing.T) {
	t.Parallel()

	byName := map[string]ddl.TableDef{}
	for _, td := range Tables() {
		byName[td.FQN] = td
	}
	for _, fk := range ChildFK {
		td, ok := byName[fk.Table]
		require.True(t, ok, fk.Table)
		require.Len(t, td.ForeignKeys, 1)
		assert.Equal(t, fk.Column, td.ForeignKeys[0].Column)
		assert.Equal(t, TableModels, td.ForeignKeys[0].RefTable)
		assert.True(t, td.ForeignKeys[0].OnDeleteCascade)
	}
}

// Insert column lists must name real, non-serial columns of their table.
func TestColumns_MatchTableDefs(t *testing.T) {
	t.Parallel()

	want := map[string][]string{
		TableModels:   ModelColumns,
		TableTags:     TagColumns,
		TableLineage:  LineageColumns,
		TableDatasets: DatasetColumns,
		TableSiblings: FileColumns,
	}
	for _, td := range Tables() {
		var got []string
		for _, c := range td.Columns {
			if c.Kind != ddl.KindSerial {
				got = append(got, c.Name)
			}
		}
		assert.Equal(t, want[td.FQN], got, td.FQN)
	}
}

func TestModelRow_Alignment(t *testing.T) {
	t.Parallel()

	author := "org"
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &Model{
		ID:           "org/m",
		Author:       &author,
		ModelID:      "org/m",
		Likes:        3,
		CreatedAt:    &created,
		HasBaseModel: true,
		Metadata:     json.RawMessage(`{"id":"org/m"}`),
	}

	row := ModelRow(m, now)
	require.Len(t, row, len(ModelColumns))

	idx := func(col string) int {
		for i, c := range ModelColumns {
			if c == col {
				return i
			}
		}
		t.Fatalf("no column %s", col)
		return -1
	}
	assert.Equal(t, "org/m", row[idx("id")])
	assert.Equal(t, "org", row[idx("author")])
	assert.Nil(t, row[idx("pipeline_tag")])
	assert.Equal(t, int64(3), row[idx("likes")])
	assert.Equal(t, created, row[idx("created_at")])
	assert.Nil(t, row[idx("last_modified")])
	assert.Equal(t, true, row[idx("has_base_model")])
	assert.Equal(t, `{"id":"org/m"}`, row[idx("metadata")])
	assert.Equal(t, now, row[idx("indexed_at")])
}

func TestChildRows_Order(t *testing.T) {
	t.Parallel()

	size := int64(10)
	e := &Entry{
		Model:    Model{ID: "a"},
		Tags:     []Tag{{ModelID: "a", Tag: "en", TagType: TagLanguage}},
		Lineage:  []LineageRelation{{DerivativeID: "a", BaseModelID: "b", RelationType: "finetune"}},
		Datasets: []DatasetRelation{{ModelID: "a", DatasetName: "squad"}},
		Files:    []FileEntry{{ModelID: "a", Filename: "x.bin", Size: &size}, {ModelID: "a", Filename: "y.json"}},
	}

	rows := ChildRows(e)
	require.Len(t, rows, 5)
	tables := make([]string, len(rows))
	for i, r := range rows {
		tables[i] = r.Table
		assert.Len(t, r.Values, len(r.Columns), r.Table)
	}
	assert.Equal(t, []string{TableTags, TableLineage, TableDatasets, TableSiblings, TableSiblings}, tables)
	assert.Equal(t, []any{"a", "x.bin", int64(10), nil, nil}, rows[3].Values)
	assert.Equal(t, []any{"a", "y.json", nil, nil, nil}, rows[4].Values)
}
