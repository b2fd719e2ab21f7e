package ddl

import (
	"testing"

	gddl "modelcatalog/internal/ddl"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want string
	}{
		{gddl.KindKey, "TEXT"},
		{gddl.KindString, "TEXT"},
		{gddl.KindJSON, "TEXT"},
		{gddl.KindInt, "INTEGER"},
		{gddl.KindBigInt, "INTEGER"},
		{gddl.KindBool, "INTEGER"},
		{gddl.KindSerial, "INTEGER"},
		{gddl.KindFloat, "REAL"},
		{gddl.KindTimestamp, "DATETIME"},
		{" Float ", "REAL"},
		{"unknown", "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(gddl.ColumnDef{Kind: tt.kind}); got != tt.want {
			t.Fatalf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestMapDefault(t *testing.T) {
	t.Parallel()

	if got := mapDefault(gddl.ColumnDef{Kind: gddl.KindBool, Default: "false"}); got != "0" {
		t.Fatalf("bool false default = %q, want 0", got)
	}
	if got := mapDefault(gddl.ColumnDef{Kind: gddl.KindBool, Default: "TRUE"}); got != "1" {
		t.Fatalf("bool true default = %q, want 1", got)
	}
	if got := mapDefault(gddl.ColumnDef{Kind: gddl.KindBigInt, Default: "0"}); got != "0" {
		t.Fatalf("int default = %q, want 0", got)
	}
}
