package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"modelcatalog/internal/schema"
)

// fakeStore records committed entries in memory. Entries whose id is in
// failIDs fail WriteEntry; beginErr and commitErr inject fatal errors.
type fakeStore struct {
	mu        sync.Mutex
	committed []string
	begins    int
	rollbacks int
	closed    bool

	failIDs   map[string]bool
	beginErr  error
	commitErr error
}

func (f *fakeStore) EnsureSchema(context.Context) error { return nil }

func (f *fakeStore) Begin(context.Context) (Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begins++
	return &fakeTx{store: f}, nil
}

func (f *fakeStore) RecomputeDerivativeCounts(context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) DeleteModel(context.Context, string) (bool, error) { return false, nil }

func (f *fakeStore) Close() { f.closed = true }

func (f *fakeStore) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.committed...)
}

type fakeTx struct {
	store   *fakeStore
	pending []string
}

func (t *fakeTx) WriteEntry(_ context.Context, e *schema.Entry) error {
	if t.store.failIDs[e.Model.ID] {
		return errors.Wrapf(ErrDuplicate, "model %s", e.Model.ID)
	}
	t.pending = append(t.pending, e.Model.ID)
	return nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.committed = append(t.store.committed, t.pending...)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rollbacks++
	return nil
}

func entry(id string) *schema.Entry {
	return &schema.Entry{Model: schema.Model{ID: id, ModelID: id}}
}
