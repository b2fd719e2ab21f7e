// Package sqlite registers the SQLite backend (modernc.org/sqlite, no cgo)
// under storage kind "sqlite".
package sqlite

import (
	"strings"

	"modelcatalog/internal/storage"
)

// Config holds SQLite store configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or SQLite URI, e.g.:
	//   "catalog.db"
	//   "file:catalog.db?cache=shared"
	DSN string

	OnConflict storage.ConflictPolicy
}

// Pragmas applied to every connection unless the DSN already sets them.
var defaultPragmas = []struct{ name, value string }{
	{"foreign_keys", "1"},
	{"busy_timeout", "5000"},
	{"journal_mode", "WAL"},
}

// dsn appends the default _pragma parameters understood by the driver.
func (c Config) dsn() string {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		return ""
	}
	var add []string
	for _, p := range defaultPragmas {
		if !strings.Contains(dsn, p.name) {
			add = append(add, "_pragma="+p.name+"("+p.value+")")
		}
	}
	if len(add) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}
