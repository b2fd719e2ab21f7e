package sqlite

import (
	"context"

	"modelcatalog/internal/storage"
)

// newStore is a test hook that points to Open by default.
var newStore = Open

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		st, err := newStore(ctx, Config{DSN: cfg.DSN, OnConflict: cfg.OnConflict})
		if err != nil {
			return nil, err
		}
		return st, nil
	})
}
