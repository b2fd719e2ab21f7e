package ddl

import (
	"strings"
	"testing"

	gddl "modelcatalog/internal/ddl"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		col  gddl.ColumnDef
		want string
	}{
		{gddl.ColumnDef{Kind: gddl.KindKey, Size: 500}, "VARCHAR(500)"},
		{gddl.ColumnDef{Kind: gddl.KindString}, "TEXT"},
		{gddl.ColumnDef{Kind: gddl.KindFloat}, "DOUBLE"},
		{gddl.ColumnDef{Kind: gddl.KindBool}, "BOOLEAN"},
		{gddl.ColumnDef{Kind: gddl.KindTimestamp}, "DATETIME(6)"},
		{gddl.ColumnDef{Kind: gddl.KindJSON}, "JSON"},
		{gddl.ColumnDef{Kind: gddl.KindSerial}, "BIGINT AUTO_INCREMENT"},
	}
	for _, tt := range tests {
		if got := MapType(tt.col); got != tt.want {
			t.Fatalf("MapType(%+v) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	if got, want := quoteIdent("we`ird"), "`we``ird`"; got != want {
		t.Fatalf("quoteIdent = %q, want %q", got, want)
	}
}

func TestCreateTable_InlineIndexes(t *testing.T) {
	t.Parallel()

	td := gddl.TableDef{
		FQN: "dataset_relations",
		Columns: []gddl.ColumnDef{
			{Name: "id", Kind: gddl.KindSerial, PrimaryKey: true},
			{Name: "model_id", Kind: gddl.KindKey, Size: 500},
			{Name: "dataset_name", Kind: gddl.KindKey, Size: 500},
		},
		ForeignKeys: []gddl.ForeignKeyDef{{Column: "model_id", RefTable: "models", RefColumn: "id", OnDeleteCascade: true}},
		Indexes: []gddl.IndexDef{
			{Name: "ix_dataset_relations_model_id", Columns: []string{"model_id"}},
			{Name: "ix_dataset_relations_dataset_name", Columns: []string{"dataset_name"}},
		},
	}
	stmts, err := Renderer{}.CreateTable(td)
	if err != nil {
		t.Fatalf("CreateTable error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	for _, frag := range []string{
		"CREATE TABLE IF NOT EXISTS `dataset_relations` (",
		"`id` BIGINT AUTO_INCREMENT NOT NULL",
		"PRIMARY KEY (`id`)",
		"INDEX `ix_dataset_relations_model_id` (`model_id`)",
		"INDEX `ix_dataset_relations_dataset_name` (`dataset_name`)",
		"FOREIGN KEY (`model_id`) REFERENCES `models` (`id`) ON DELETE CASCADE",
		"ENGINE=InnoDB",
	} {
		if !strings.Contains(stmts[0], frag) {
			t.Fatalf("DDL missing %q:\n%s", frag, stmts[0])
		}
	}
}

func TestCreateTable_Errors(t *testing.T) {
	t.Parallel()

	if _, err := (Renderer{}).CreateTable(gddl.TableDef{}); err == nil {
		t.Fatalf("expected error for empty FQN")
	}
}
