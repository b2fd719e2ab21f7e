package pipeline

import "sync"

// errAgg counts errors and keeps the first limit messages.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int64
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

// add records msg and reports whether it falls within the logged prefix.
func (a *errAgg) add(msg string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if len(a.first) < a.limit {
		a.first = append(a.first, msg)
		return true
	}
	return false
}

func (a *errAgg) snapshot() (int64, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, append([]string(nil), a.first...)
}
