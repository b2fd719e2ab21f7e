// Package all wires every built-in storage backend into the storage factory.
//
// It exists purely for side effects: importing it (even as a blank import)
// runs the init functions of each backend, which register their factories.
// After that the following kinds are available:
//
//   - "postgres" (modelcatalog/internal/storage/postgres)
//   - "sqlite"   (modelcatalog/internal/storage/sqlite)
//   - "mssql"    (modelcatalog/internal/storage/mssql)
//   - "mysql"    (modelcatalog/internal/storage/mysql)
//
// Typical usage, in cmd/catalogload:
//
//	import _ "modelcatalog/internal/storage/all"
//
//	st, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DB.DSN})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "modelcatalog/internal/storage/mssql"
	_ "modelcatalog/internal/storage/mysql"
	_ "modelcatalog/internal/storage/postgres"
	_ "modelcatalog/internal/storage/sqlite"
)
