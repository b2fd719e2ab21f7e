package ddl

// Logical column kinds. Backend renderers map these onto concrete SQL types.
const (
	KindKey       = "key"       // short indexed string used as a primary or foreign key
	KindString    = "string"    // bounded string; Size carries the length
	KindInt       = "int"       // 32-bit integer
	KindBigInt    = "bigint"    // 64-bit integer
	KindFloat     = "float"     // double precision
	KindBool      = "bool"      // boolean flag
	KindTimestamp = "timestamp" // timestamp without time zone (UTC by convention)
	KindJSON      = "json"      // opaque JSON document
	KindSerial    = "serial"    // auto-incrementing surrogate key
)

// ColumnDef describes a single column in a table definition. It intentionally
// uses simple, database-agnostic fields.
//
// Fields:
//   - Name: logical column name (unquoted; quoting/escaping happens at render time)
//   - Kind: logical type, one of the Kind* constants
//   - Size: length for KindKey/KindString columns (0 means backend default)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: literal default ("0", "false", "true"); renderers translate it
type ColumnDef struct {
	Name       string
	Kind       string
	Size       int
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// ForeignKeyDef references another table's column. OnDeleteCascade removes
// dependent rows together with the referenced row.
type ForeignKeyDef struct {
	Column          string
	RefTable        string
	RefColumn       string
	OnDeleteCascade bool
}

// IndexDef is a plain (non-unique) secondary index.
type IndexDef struct {
	Name    string
	Columns []string
}

// TableDef holds the table name (FQN) and its ordered columns, foreign keys
// and secondary indexes.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	ForeignKeys []ForeignKeyDef
	Indexes     []IndexDef
}

// PrimaryKeys returns the names of the primary-key columns in declaration order.
func (t TableDef) PrimaryKeys() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}
