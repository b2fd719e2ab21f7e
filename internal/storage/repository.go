// Package storage contains the storage-agnostic contracts used by the loader:
// a Store that owns the catalog schema and hands out transactions, a Tx that
// writes one entry atomically, and a registry through which backends make
// themselves available by kind.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"modelcatalog/internal/schema"
)

// ConflictPolicy decides what happens when an entry's model id already exists.
type ConflictPolicy string

const (
	// ConflictReject reports the duplicate as a per-record error.
	ConflictReject ConflictPolicy = "reject"
	// ConflictReplace deletes the stored model and its children, then inserts.
	ConflictReplace ConflictPolicy = "replace"
)

// ParseConflictPolicy maps a configuration value onto a policy; "" is reject.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictReject, nil
	case ConflictReject, ConflictReplace:
		return p, nil
	default:
		return "", errors.Errorf("unknown on_conflict policy %q (want reject|replace)", s)
	}
}

// ErrDuplicate is wrapped by Tx.WriteEntry when the model id is already
// stored and the policy is ConflictReject.
var ErrDuplicate = errors.New("model already exists")

// Config is the backend-agnostic connection configuration passed to
// registered factories.
type Config struct {
	Kind       string
	DSN        string
	MaxConns   int
	OnConflict ConflictPolicy
}

// Store is the minimal contract a catalog backend must satisfy.
type Store interface {
	// EnsureSchema creates the catalog tables and indexes when absent. It is
	// idempotent and never drops or alters existing objects.
	EnsureSchema(ctx context.Context) error
	// Begin opens one write transaction.
	Begin(ctx context.Context) (Tx, error)
	// RecomputeDerivativeCounts sets every model's derivative_count to the
	// number of lineage rows naming it as base. It returns rows affected.
	RecomputeDerivativeCounts(ctx context.Context) (int64, error)
	// DeleteModel removes a model and all of its child rows. It reports
	// whether the model existed.
	DeleteModel(ctx context.Context, id string) (bool, error)
	Close()
}

// Tx is a write transaction. WriteEntry is all-or-nothing per entry: when it
// returns an error none of the entry's rows remain, and the transaction is
// still usable for further entries.
type Tx interface {
	WriteEntry(ctx context.Context, e *schema.Entry) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory opens a Store for cfg.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Re-registering a kind
// replaces the previous factory.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens the Store registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	if cfg.OnConflict == "" {
		cfg.OnConflict = ConflictReject
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
