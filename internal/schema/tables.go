// Package schema describes the catalog data model: the domain row types, the
// five tables they persist into, and helpers that align row values with the
// column order used by every storage backend.
package schema

import (
	"modelcatalog/internal/ddl"
)

// Table names.
const (
	TableModels   = "models"
	TableTags     = "model_tags"
	TableLineage  = "base_model_relations"
	TableDatasets = "dataset_relations"
	TableSiblings = "model_siblings"
)

// Column lengths, matching the catalog's historical layout.
const (
	keySize        = 500
	shortSize      = 100
	tagSize        = 200
	typeSize       = 50
	authorSize     = 255
	blobIDSize     = 100
	statusSize     = 50
	pipelineSize   = 100
	librarySize    = 100
	filenameSize   = 500
	datasetKeySize = 500
)

// Insert column order per table. Surrogate ids are generated by the store and
// never listed here.
var (
	ModelColumns = []string{
		"id", "author", "model_id", "pipeline_tag", "library_name",
		"likes", "downloads", "downloads_all_time", "trending_score",
		"created_at", "last_modified", "gated", "private", "sha",
		"security_repo_status", "has_base_model", "derivative_count",
		"metadata", "indexed_at", "updated_at",
	}
	TagColumns     = []string{"model_id", "tag", "tag_type"}
	LineageColumns = []string{"derivative_id", "base_model_id", "relation_type"}
	DatasetColumns = []string{"model_id", "dataset_name"}
	FileColumns    = []string{"model_id", "filename", "size", "blob_id", "lfs"}
)

// ChildFK maps every child table to the column referencing models.id. The
// order is the order in which children are deleted.
var ChildFK = []struct {
	Table  string
	Column string
}{
	{TableTags, "model_id"},
	{TableLineage, "derivative_id"},
	{TableDatasets, "model_id"},
	{TableSiblings, "model_id"},
}

// DerivativeCountSQL recomputes models.derivative_count in one set-based
// statement. It is portable across every supported dialect.
const DerivativeCountSQL = `UPDATE models SET derivative_count = (
	SELECT COUNT(*) FROM base_model_relations
	WHERE base_model_relations.base_model_id = models.id
)`

func cascadeTo(col string) ddl.ForeignKeyDef {
	return ddl.ForeignKeyDef{Column: col, RefTable: TableModels, RefColumn: "id", OnDeleteCascade: true}
}

func serialID() ddl.ColumnDef {
	return ddl.ColumnDef{Name: "id", Kind: ddl.KindSerial, PrimaryKey: true}
}

func indexes(table string, cols ...string) []ddl.IndexDef {
	out := make([]ddl.IndexDef, 0, len(cols))
	for _, c := range cols {
		out = append(out, ddl.IndexDef{Name: "ix_" + table + "_" + c, Columns: []string{c}})
	}
	return out
}

// Tables returns the catalog schema, parent first.
func Tables() []ddl.TableDef {
	return []ddl.TableDef{
		{
			FQN: TableModels,
			Columns: []ddl.ColumnDef{
				{Name: "id", Kind: ddl.KindKey, Size: keySize, PrimaryKey: true},
				{Name: "author", Kind: ddl.KindString, Size: authorSize, Nullable: true},
				{Name: "model_id", Kind: ddl.KindString, Size: keySize},
				{Name: "pipeline_tag", Kind: ddl.KindString, Size: pipelineSize, Nullable: true},
				{Name: "library_name", Kind: ddl.KindString, Size: librarySize, Nullable: true},
				{Name: "likes", Kind: ddl.KindBigInt, Default: "0"},
				{Name: "downloads", Kind: ddl.KindBigInt, Default: "0"},
				{Name: "downloads_all_time", Kind: ddl.KindBigInt, Default: "0"},
				{Name: "trending_score", Kind: ddl.KindFloat, Default: "0"},
				{Name: "created_at", Kind: ddl.KindTimestamp, Nullable: true},
				{Name: "last_modified", Kind: ddl.KindTimestamp, Nullable: true},
				{Name: "gated", Kind: ddl.KindBool, Default: "false"},
				{Name: "private", Kind: ddl.KindBool, Default: "false"},
				{Name: "sha", Kind: ddl.KindString, Size: shortSize, Nullable: true},
				{Name: "security_repo_status", Kind: ddl.KindString, Size: statusSize, Nullable: true},
				{Name: "has_base_model", Kind: ddl.KindBool, Default: "false"},
				{Name: "derivative_count", Kind: ddl.KindInt, Default: "0"},
				{Name: "metadata", Kind: ddl.KindJSON, Nullable: true},
				{Name: "indexed_at", Kind: ddl.KindTimestamp, Nullable: true},
				{Name: "updated_at", Kind: ddl.KindTimestamp, Nullable: true},
			},
			Indexes: indexes(TableModels,
				"author", "pipeline_tag", "library_name", "likes",
				"downloads", "trending_score", "has_base_model"),
		},
		{
			FQN: TableTags,
			Columns: []ddl.ColumnDef{
				serialID(),
				{Name: "model_id", Kind: ddl.KindKey, Size: keySize},
				{Name: "tag", Kind: ddl.KindString, Size: tagSize},
				{Name: "tag_type", Kind: ddl.KindString, Size: typeSize, Nullable: true},
			},
			ForeignKeys: []ddl.ForeignKeyDef{cascadeTo("model_id")},
			Indexes:     indexes(TableTags, "model_id", "tag", "tag_type"),
		},
		{
			FQN: TableLineage,
			Columns: []ddl.ColumnDef{
				serialID(),
				{Name: "derivative_id", Kind: ddl.KindKey, Size: keySize},
				{Name: "base_model_id", Kind: ddl.KindKey, Size: keySize},
				{Name: "relation_type", Kind: ddl.KindString, Size: typeSize, Nullable: true},
			},
			ForeignKeys: []ddl.ForeignKeyDef{cascadeTo("derivative_id")},
			Indexes:     indexes(TableLineage, "derivative_id", "base_model_id", "relation_type"),
		},
		{
			FQN: TableDatasets,
			Columns: []ddl.ColumnDef{
				serialID(),
				{Name: "model_id", Kind: ddl.KindKey, Size: keySize},
				{Name: "dataset_name", Kind: ddl.KindKey, Size: datasetKeySize},
			},
			ForeignKeys: []ddl.ForeignKeyDef{cascadeTo("model_id")},
			Indexes:     indexes(TableDatasets, "model_id", "dataset_name"),
		},
		{
			FQN: TableSiblings,
			Columns: []ddl.ColumnDef{
				serialID(),
				{Name: "model_id", Kind: ddl.KindKey, Size: keySize},
				{Name: "filename", Kind: ddl.KindKey, Size: filenameSize},
				{Name: "size", Kind: ddl.KindBigInt, Nullable: true},
				{Name: "blob_id", Kind: ddl.KindString, Size: blobIDSize, Nullable: true},
				{Name: "lfs", Kind: ddl.KindBool, Nullable: true},
			},
			ForeignKeys: []ddl.ForeignKeyDef{cascadeTo("model_id")},
			Indexes:     indexes(TableSiblings, "model_id", "filename"),
		},
	}
}
