package idgen

import (
	"container/list"
	"sync"
	"time"
)

// Window remembers recently issued request ids for a limited time.
type Window struct {
	mu         sync.Mutex
	items      map[uint64]*list.Element
	order      *list.List
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type windowEntry struct {
	id        uint64
	expiresAt time.Time
}

// NewWindow creates a window with the given ttl and max entries.
func NewWindow(ttl time.Duration, maxEntries int) *Window {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 100000
	}
	return &Window{
		items:      make(map[uint64]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Claim records id and reports whether it was free. A claimed id stays
// taken until it expires or is evicted by newer claims.
func (w *Window) Claim(id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if elem, ok := w.items[id]; ok {
		entry := elem.Value.(*windowEntry)
		if !now.After(entry.expiresAt) {
			return false
		}
		entry.expiresAt = now.Add(w.ttl)
		w.order.MoveToFront(elem)
		return true
	}

	elem := w.order.PushFront(&windowEntry{id: id, expiresAt: now.Add(w.ttl)})
	w.items[id] = elem
	w.trim(now)
	return true
}

// Len returns the number of ids currently tracked.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

func (w *Window) trim(now time.Time) {
	for {
		elem := w.order.Back()
		if elem == nil {
			return
		}
		entry := elem.Value.(*windowEntry)
		if len(w.items) <= w.maxEntries && !now.After(entry.expiresAt) {
			return
		}
		delete(w.items, entry.id)
		w.order.Remove(elem)
	}
}
