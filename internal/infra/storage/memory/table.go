package memory

import (
	"context"
	"sync"
)

// table is the committed state of one record kind. Readers only ever see
// committed values; a unit's writes are staged behind a per-key hold and
// applied when the unit commits.
type table[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	holds map[K]*hold[V]
}

// hold marks a key written by an open unit. Writers from other units wait on
// done, which closes when the owner commits or rolls back.
type hold[V any] struct {
	owner  *Unit
	staged V
	done   chan struct{}
}

func newTable[K comparable, V any]() table[K, V] {
	return table[K, V]{items: make(map[K]V), holds: make(map[K]*hold[V])}
}

// stage waits until no other unit holds key, then calls write with the value
// the owner currently sees: its own staged value, else the committed one.
// write runs under the table lock, so guards it checks cannot race.
func (t *table[K, V]) stage(ctx context.Context, owner *Unit, key K, write func(current V, found bool) (V, error)) error {
	for {
		t.mu.Lock()
		h, held := t.holds[key]
		if held && h.owner != owner {
			t.mu.Unlock()
			select {
			case <-h.done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var (
			current V
			found   bool
		)
		if held {
			current, found = h.staged, true
		} else {
			current, found = t.items[key]
		}
		next, err := write(current, found)
		if err != nil {
			t.mu.Unlock()
			return err
		}
		if held {
			h.staged = next
			t.mu.Unlock()
			return nil
		}
		h = &hold[V]{owner: owner, staged: next, done: make(chan struct{})}
		t.holds[key] = h
		t.mu.Unlock()

		owner.onCommit(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.items[key] = h.staged
			delete(t.holds, key)
			close(h.done)
		})
		owner.journal(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.holds, key)
			close(h.done)
		})
		return nil
	}
}

func (t *table[K, V]) get(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[key]
	return v, ok
}

// put writes outside any unit and returns a function restoring the previous
// value.
func (t *table[K, V]) put(key K, v V) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed := t.items[key]
	t.items[key] = v
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !existed {
			delete(t.items, key)
			return
		}
		t.items[key] = prev
	}
}
