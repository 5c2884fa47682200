package acidlist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// List is a concurrent doubly-linked list. Every exported method is safe
// to call from multiple goroutines at once; see doc.go for the locking and
// reclamation scheme that makes that true.
//
// The zero value of List is not usable; construct one with New or
// NewFromSlice.
type List[T comparable] struct {
	root, last *node[T]
	size       atomic.Int64

	// freeLock is the list-global reclamation barrier: iterators hold it
	// as a reader while they dereference a prev/next link, the sweeper
	// holds it as a writer at exactly the two points bracketing its
	// free-list snapshot. See freelist.go.
	freeLock rwLock
	freeList freeList[T]

	cfg listConfig

	stopCh chan struct{}
	doneCh chan struct{}

	closeOnce   sync.Once
	reclaimOnce sync.Once
}

// New constructs an empty List and starts its background sweeper
// goroutine.
func New[T comparable](opts ...Option) *List[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &List[T]{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	l.root = newSentinel(l, nodeBegin)
	l.last = newSentinel(l, nodeEnd)
	// Sentinels are pinned for the list's lifetime (spec invariant 5):
	// their refcount starts at 1 here, and push/erase only ever add to it
	// before later taking the same amount back, so it never reaches zero
	// and they can never be queued for reclamation.
	l.root.refCount.Store(1)
	l.last.refCount.Store(1)

	l.root.next.Store(l.last)
	l.last.prev.Store(l.root)

	go l.sweeperLoop()
	return l
}

// NewFromSlice constructs a List pre-populated with values, in order, the
// same way spec.md's List(initial_values) constructor does.
func NewFromSlice[T comparable](values []T, opts ...Option) *List[T] {
	l := New[T](opts...)
	for _, v := range values {
		l.PushBack(v)
	}
	return l
}

func (l *List[T]) sweeperLoop() {
	defer close(l.doneCh)
	ticker := time.NewTicker(l.cfg.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			l.drain()
			return
		case <-ticker.C:
			l.cfg.logger.Printf("acidlist: sweep cycle starting")
			l.sweep()
		}
	}
}

// drain runs the sweeper's pass repeatedly, with no sleep in between,
// until the free list is empty - the shutdown behavior spec.md describes
// as "the final loop iteration drains all remaining entries without
// sleeping".
func (l *List[T]) drain() {
	for {
		l.sweep()
		if l.freeList.head.Load() == nil {
			return
		}
	}
}

// Close stops the background sweeper and waits for it to finish draining
// the free list, then reclaims whatever nodes are still linked into the
// main chain (the Go equivalent of the source's destructor, which walks
// root to last deleting every remaining node in order; Go's GC does the
// actual freeing once nothing references the List, this just keeps the
// leak-check accounting in node.go honest). Close returns ctx.Err() if the
// context is done before the sweeper finishes; it is safe to call more
// than once or from more than one goroutine.
func (l *List[T]) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		close(l.stopCh)
	})
	select {
	case <-l.doneCh:
		l.reclaimOnce.Do(l.reclaimRemaining)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *List[T]) reclaimRemaining() {
	for cur := l.root; cur != nil; {
		next := cur.next.Load()
		liveNodes.Add(-1)
		cur = next
	}
}

// Len returns the advisory element count. It has relaxed semantics: it is
// not linearized with respect to concurrent structural operations (spec
// §4.5/§5).
func (l *List[T]) Len() int {
	return int(l.size.Load())
}

// Begin returns an iterator to the first element, or to End if the list is
// empty.
func (l *List[T]) Begin() *Iterator[T] {
	l.root.lock.rlock()
	it := newIterator(l.root.next.Load(), l)
	l.root.lock.unlock()
	return it
}

// End returns an iterator to the list's end sentinel.
func (l *List[T]) End() *Iterator[T] {
	l.last.lock.rlock()
	it := newIterator(l.last, l)
	l.last.lock.unlock()
	return it
}

// PushFront inserts v as the new first element.
func (l *List[T]) PushFront(v T) {
	l.root.lock.wlock()
	r := l.root.next.Load()
	r.lock.wlock()

	n := newValueNode(l, v)
	n.prev.Store(l.root)
	n.next.Store(r)
	// Refcount 2: one reference each from root.next and r.prev, which we
	// are about to set below.
	n.refCount.Store(2)

	r.prev.Store(n)
	l.root.next.Store(n)
	l.size.Add(1)

	r.lock.unlock()
	l.root.lock.unlock()
}

// PushBack inserts v as the new last element. Because last.prev can move
// out from under a lock-free read of it, PushBack retries until it
// observes a left/last pair that are still each other's neighbors once
// both are write-locked.
func (l *List[T]) PushBack(v T) {
	for {
		l.last.lock.wlock()
		left := l.last.prev.Load()
		left.refCount.Add(1)
		l.last.lock.unlock()

		left.lock.wlock()
		l.last.lock.wlock()

		if left.next.Load() == l.last && l.last.prev.Load() == left {
			n := newValueNode(l, v)
			n.prev.Store(left)
			n.next.Store(l.last)
			n.refCount.Store(2)

			left.next.Store(n)
			l.last.prev.Store(n)
			l.size.Add(1)

			left.lock.unlock()
			l.last.lock.unlock()
			left.destroy()
			return
		}

		left.lock.unlock()
		l.last.lock.unlock()
		left.destroy()
	}
}

// PopBack removes the last element, if any. It builds its internal
// iterator with the two-argument constructor consistently (see
// SPEC_FULL.md §4.5's Open Question resolution), so there is no path that
// hands Erase a node pointer without a matching reference.
func (l *List[T]) PopBack() {
	if l.size.Load() == 0 {
		return
	}
	l.last.lock.wlock()
	target := l.last.prev.Load()
	it := newIterator(target, l)
	l.last.lock.unlock()

	l.Erase(it)
	it.Close()
}

// Insert inserts v immediately after it's target. If it targets End, this
// delegates to PushBack; if it targets Begin, to PushFront. If it's target
// has already been erased, Insert silently does nothing: the anchor no
// longer exists, so the caller's intent - "put v here" - has nothing left
// to attach to (spec §7's no-op-on-stale-anchor contract).
func (l *List[T]) Insert(it *Iterator[T], v T) {
	left := it.ptr
	switch left.getState() {
	case nodeEnd:
		l.PushBack(v)
		return
	case nodeBegin:
		l.PushFront(v)
		return
	}

	left.lock.wlock()
	if left.getState() == nodeRemoved {
		left.lock.unlock()
		return
	}

	right := left.next.Load()
	right.lock.wlock()

	n := newValueNode(l, v)
	n.refCount.Store(2)
	n.prev.Store(left)
	n.next.Store(right)

	left.next.Store(n)
	right.prev.Store(n)
	l.size.Add(1)

	left.lock.unlock()
	right.lock.unlock()
}

// Find walks from the first element looking for the first node whose
// value equals v, taking a read lock on each node just long enough to
// compare its data and read its next pointer (spec §9's Open Question on
// racy find-equality is resolved this way: the per-node compare is
// race-free, though the walk as a whole is still not a snapshot - a
// concurrent insert or erase elsewhere in the list can still make Find
// miss a match or walk through a node that was removed mid-search).
// Find returns an iterator to the first match, or to End if none is
// found.
func (l *List[T]) Find(v T) *Iterator[T] {
	l.root.lock.rlock()
	cur := l.root.next.Load()
	l.root.lock.unlock()

	for cur != l.last {
		cur.lock.rlock()
		matched := cur.data == v
		next := cur.next.Load()
		cur.lock.unlock()
		if matched {
			break
		}
		cur = next
	}
	return newIterator(cur, l)
}

// Erase removes it's target node from the list, if it is still present.
// Erasing a sentinel, erasing on an empty list, or erasing an already-
// removed node are all no-ops (spec §7).
func (l *List[T]) Erase(it *Iterator[T]) {
	n := it.ptr
	if n == l.root || n == l.last {
		return
	}
	if l.size.Load() == 0 || n.getState() != nodeValid {
		return
	}

	for {
		n.lock.rlock()
		if n.getState() == nodeRemoved {
			n.lock.unlock()
			return
		}
		left := n.prev.Load()
		right := n.next.Load()
		left.refCount.Add(1)
		right.refCount.Add(1)
		n.lock.unlock()

		left.lock.wlock()
		n.lock.rlock()
		right.lock.wlock()

		if left.next.Load() == n && right.prev.Load() == n {
			n.state.Store(uint32(nodeRemoved))
			// The two neighbor pointers n held are going away.
			n.refCount.Add(-2)

			left.next.Store(right)
			right.prev.Store(left)
			// left and right are now each other's neighbors in place
			// of n's links.
			left.refCount.Add(1)
			right.refCount.Add(1)

			l.size.Add(-1)

			left.lock.unlock()
			n.lock.unlock()
			right.lock.unlock()

			left.destroy()
			right.destroy()
			return
		}

		left.lock.unlock()
		n.lock.unlock()
		right.lock.unlock()

		left.destroy()
		right.destroy()
	}
}
