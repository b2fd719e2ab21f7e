// Package ddl contains MSSQL-specific helpers for generating DDL.
//
// It maps logical column kinds into SQL Server types. Key columns are capped
// at NVARCHAR(450) so primary and foreign keys stay within the 900-byte
// clustered index key limit.
package ddl

import (
	"fmt"
	"strings"

	gddl "modelcatalog/internal/ddl"
)

// MaxKeyChars is the longest NVARCHAR usable as a clustered key.
const MaxKeyChars = 450

// MapType maps a logical column kind into a SQL Server column type.
//
// Unknown or empty kinds fall back to NVARCHAR(MAX).
func MapType(c gddl.ColumnDef) string {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case gddl.KindKey:
		n := c.Size
		if n <= 0 || n > MaxKeyChars {
			n = MaxKeyChars
		}
		return fmt.Sprintf("NVARCHAR(%d)", n)
	case gddl.KindString:
		if c.Size > 0 && c.Size <= 4000 {
			return fmt.Sprintf("NVARCHAR(%d)", c.Size)
		}
		return "NVARCHAR(MAX)"
	case gddl.KindInt:
		return "INT"
	case gddl.KindBigInt:
		return "BIGINT"
	case gddl.KindFloat:
		return "FLOAT"
	case gddl.KindBool:
		return "BIT"
	case gddl.KindTimestamp:
		return "DATETIME2"
	case gddl.KindSerial:
		return "BIGINT IDENTITY(1,1)"
	default:
		return "NVARCHAR(MAX)"
	}
}

// mapDefault rewrites boolean literals as BIT values.
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
