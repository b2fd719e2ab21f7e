package postgres

import (
	"context"

	"modelcatalog/internal/storage"
)

// newStore is a test hook that points to Open by default.
// Tests may replace this variable to avoid real DB connections.
var newStore = Open

// init registers the "postgres" backend with the storage factory.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		st, err := newStore(ctx, Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns, OnConflict: cfg.OnConflict})
		if err != nil {
			return nil, err
		}
		return st, nil
	})
}
