// Package ddl contains MySQL-specific helpers for generating DDL.
package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// MapType maps a logical column kind into a MySQL column type.
func MapType(c gddl.ColumnDef) string {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case gddl.KindKey, gddl.KindString:
		if c.Size > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Size)
		}
		return "TEXT"
	case gddl.KindInt:
		return "INT"
	case gddl.KindBigInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "DOUBLE"
	case gddl.KindBool:
		return "BOOLEAN"
	case gddl.KindTimestamp:
		return "DATETIME(6)"
	case gddl.KindJSON:
		return "JSON"
	case gddl.KindSerial:
		return "BIGINT AUTO_INCREMENT"
	default:
		return "TEXT"
	}
}
