// Package dedupe remembers recorded results by idempotency key.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/winstate/internal/domain/model"
)

// Deduper maps idempotency keys to the result first stored under them.
type Deduper interface {
	// Lookup returns the result remembered for key, if any.
	Lookup(ctx context.Context, key string) (model.Result, bool)

	// Remember stores r under key unless the key is already known.
	// It returns the result that is remembered after the call, which is
	// the earlier one when the key was taken.
	Remember(ctx context.Context, key string, r model.Result) model.Result

	Size() int64
}

// node is one remembered key in insertion order.
type node struct {
	key    string
	result model.Result
	prev   *node
	next   *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryDeduper keeps keys in a map plus a doubly linked list ordered by
// insertion. Bounded mode (maxSize > 0) evicts the oldest key first and
// recycles nodes through a sync.Pool. Unbounded mode (maxSize <= 0) never
// evicts.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	entries  map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.entries = make(map[string]*node)
	d.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (model.Result, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n, ok := d.entries[key]; ok {
		return n.result, true
	}
	return model.Result{}, false
}

func (d *inMemoryDeduper) Remember(_ context.Context, key string, r model.Result) model.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.entries[key]; ok {
		return n.result
	}
	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key = key
	n.result = r
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.entries[key] = n
	d.size.Add(1)
	return r
}

// evictOldest drops the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.entries, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// Size returns the current number of remembered keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
