// Package ddl contains SQLite-specific helpers for generating DDL.
//
// It maps logical column kinds onto SQLite type affinities. SQLite is
// dynamically typed, so the mapping only needs to pick the right affinity.
package ddl

import (
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// MapType maps a logical column kind into a SQLite column type.
//
//	key/string/json -> TEXT
//	int/bigint      -> INTEGER
//	bool            -> INTEGER (0/1)
//	float           -> REAL
//	timestamp       -> DATETIME (NUMERIC affinity, ISO-8601 text)
func MapType(c gddl.ColumnDef) string {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case gddl.KindInt, gddl.KindBigInt, gddl.KindBool, gddl.KindSerial:
		return "INTEGER"
	case gddl.KindFloat:
		return "REAL"
	case gddl.KindTimestamp:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

// mapDefault rewrites boolean literals as 0/1.
func mapDefault(c gddl.ColumnDef) string {
	def := strings.TrimSpace(c.Default)
	if c.Kind == gddl.KindBool {
		switch strings.ToLower(def) {
		case "false":
			return "0"
		case "true":
			return "1"
		}
	}
	return def
}
