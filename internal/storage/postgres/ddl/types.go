// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// MapType maps a logical column kind into a Postgres SQL type.
//
//	key/string -> VARCHAR(size), TEXT when size is 0
//	int        -> INTEGER
//	bigint     -> BIGINT
//	float      -> DOUBLE PRECISION
//	bool       -> BOOLEAN
//	timestamp  -> TIMESTAMP
//	json       -> JSONB
//	serial     -> BIGINT GENERATED BY DEFAULT AS IDENTITY
func MapType(c gddl.ColumnDef) string {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case gddl.KindKey, gddl.KindString:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "TEXT"
	case gddl.KindInt:
		return "INTEGER"
	case gddl.KindBigInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "DOUBLE PRECISION"
	case gddl.KindBool:
		return "BOOLEAN"
	case gddl.KindTimestamp:
		return "TIMESTAMP"
	case gddl.KindJSON:
		return "JSONB"
	case gddl.KindSerial:
		return "BIGINT GENERATED BY DEFAULT AS IDENTITY"
	default:
		return "TEXT"
	}
}
