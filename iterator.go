package acidlist

import (
	"sync/atomic"
	"unsafe"
)

// Iterator is a refcounted handle to a node in a List. Unlike the C++
// original this package is modeled on, Go has no destructor run on scope
// exit: a caller that is done with an Iterator must call Close to release
// its reference. Forgetting to do so leaks the reference exactly the way
// leaking a raw pointer would upstream, and keeps whatever node it targets
// from ever being swept.
type Iterator[T comparable] struct {
	ptr    *node[T]
	list   *List[T]
	closed atomic.Bool
}

func newIterator[T comparable](n *node[T], l *List[T]) *Iterator[T] {
	n.refCount.Add(1)
	return &Iterator[T]{ptr: n, list: l}
}

func nodeLess[T comparable](a, b *node[T]) bool {
	return uintptr(unsafe.Pointer(a)) < uintptr(unsafe.Pointer(b))
}

// Close releases this iterator's reference to its target node. Close is
// idempotent: calling it more than once, or on a zero Iterator, is a no-op.
func (it *Iterator[T]) Close() {
	if it.closed.CompareAndSwap(false, true) && it.ptr != nil {
		it.ptr.destroy()
	}
}

// Get reads the node's current value, returning a copy taken under a read
// lock. There is deliberately no bare dereference method returning a
// reference into the node: the source this package ports took a read lock
// in its dereference operator and never released it (see SPEC_FULL.md
// §4.4/§10). Get always copies out and unlocks before returning, so a
// removed-but-not-yet-reclaimed node is still safe to read.
func (it *Iterator[T]) Get() T {
	it.ptr.lock.rlock()
	v := it.ptr.data
	it.ptr.lock.unlock()
	return v
}

// Set overwrites the node's value under a write lock.
func (it *Iterator[T]) Set(v T) {
	it.ptr.lock.wlock()
	it.ptr.data = v
	it.ptr.lock.unlock()
}

// Next steps the iterator forward one node. Stepping past End is a no-op.
//
// Advancing takes the list's freeLock as a reader for the duration of the
// pointer swing. That is what guarantees the sweeper cannot be mid-
// snapshot while a step is in flight: the sweeper only ever holds freeLock
// as a writer, at the two points bracketing its free-list snapshot (see
// freelist.go), so a reader here forces any concurrent sweep to wait for
// the step to finish before it can observe the free list.
func (it *Iterator[T]) Next() {
	if it.ptr.getState() == nodeEnd {
		return
	}
	it.list.freeLock.rlock()
	old := it.ptr
	it.ptr = old.next.Load()
	it.ptr.refCount.Add(1)
	it.list.freeLock.unlock()
	old.destroy()
}

// Prev steps the iterator backward one node. Stepping before Begin is a
// no-op. Symmetric to Next.
func (it *Iterator[T]) Prev() {
	if it.ptr.getState() == nodeBegin {
		return
	}
	it.list.freeLock.rlock()
	old := it.ptr
	it.ptr = old.prev.Load()
	it.ptr.refCount.Add(1)
	it.list.freeLock.unlock()
	old.destroy()
}

// Assign retargets it to point at other's node, releasing it's old
// reference and taking a new one. The two nodes' locks are taken in
// pointer order (breaking ties when they are the same node) rather than
// "self, then other": locking in a fixed order across all callers, instead
// of always self-first, is what rules out an A-assigns-from-B /
// B-assigns-from-A deadlock between two goroutines racing to assign in
// opposite directions.
//
// Assigning an iterator to itself, or to another iterator already
// targeting the same node, is a no-op and does not change the node's
// refcount.
func (it *Iterator[T]) Assign(other *Iterator[T]) {
	if it.ptr == other.ptr {
		return
	}
	first, second := it.ptr, other.ptr
	if nodeLess(second, first) {
		first, second = second, first
	}
	first.lock.wlock()
	second.lock.wlock()

	old := it.ptr
	it.ptr = other.ptr
	it.ptr.refCount.Add(1)
	it.list = other.list

	first.lock.unlock()
	second.lock.unlock()

	old.destroy()
}

// Clone returns a new Iterator targeting the same node as it, holding its
// own independent reference.
func (it *Iterator[T]) Clone() *Iterator[T] {
	return newIterator(it.ptr, it.list)
}

// Equal reports whether it and other target the same node. Equality is
// pointer identity of the target, not value equality of Get().
func (it *Iterator[T]) Equal(other *Iterator[T]) bool {
	return it.ptr == other.ptr
}
