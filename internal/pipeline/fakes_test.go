package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
)

// memStore keeps committed entries in memory and rejects duplicate ids.
type memStore struct {
	mu      sync.Mutex
	models  map[string]*schema.Entry
	schemas int
	commits int

	schemaErr error
	aggErr    error
	commitErr error
}

func newMemStore() *memStore { return &memStore{models: map[string]*schema.Entry{}} }

func (m *memStore) EnsureSchema(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas++
	return m.schemaErr
}

func (m *memStore) Begin(context.Context) (storage.Tx, error) {
	return &memTx{store: m, staged: map[string]*schema.Entry{}}, nil
}

func (m *memStore) RecomputeDerivativeCounts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aggErr != nil {
		return 0, m.aggErr
	}
	counts := map[string]int64{}
	for _, e := range m.models {
		for _, l := range e.Lineage {
			counts[l.BaseModelID]++
		}
	}
	for id, e := range m.models {
		e.Model.DerivativeCount = counts[id]
	}
	return int64(len(m.models)), nil
}

func (m *memStore) DeleteModel(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.models[id]
	delete(m.models, id)
	return ok, nil
}

func (m *memStore) Close() {}

func (m *memStore) get(id string) *schema.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.models[id]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.models)
}

type memTx struct {
	store  *memStore
	staged map[string]*schema.Entry
}

func (t *memTx) WriteEntry(_ context.Context, e *schema.Entry) error {
	t.store.mu.Lock()
	_, exists := t.store.models[e.Model.ID]
	t.store.mu.Unlock()
	if _, staged := t.staged[e.Model.ID]; exists || staged {
		return errors.Wrapf(storage.ErrDuplicate, "model %s", e.Model.ID)
	}
	t.staged[e.Model.ID] = e
	return nil
}

func (t *memTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	for id, e := range t.staged {
		t.store.models[id] = e
	}
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(context.Context) error { return nil }

// stringSource serves a fixed dump.
type stringSource string

func (s stringSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}
