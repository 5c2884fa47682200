package acidlist

import "sync/atomic"

// nodeState is the lifecycle state of a node, per spec: sentinels never
// transition, a live node is valid until erased, after which it is removed
// but may still survive (pointed at by iterators) until reclaimed.
type nodeState uint32

const (
	nodeValid nodeState = iota
	nodeRemoved
	nodeBegin
	nodeEnd
)

// liveNodes counts nodes that have been allocated but not yet reclaimed,
// either by the sweeper or, for nodes still linked into the chain, by
// Close. Tests use it as the leak-check counter called for by the
// "zero nodes remain allocated" invariant: it is package-wide, so once a
// List's Close has returned it is back to its value from before that List
// was constructed.
var liveNodes atomic.Int64

// node is one cell of the list. Its data is guarded by its own lock; its
// prev/next links are guarded by write locks on both the node and whichever
// neighbor is being relinked (see list.go); state, refCount and already are
// free-standing atomics read and written outside of any lock.
type node[T comparable] struct {
	list *List[T]

	data T
	lock rwLock

	prev, next atomic.Pointer[node[T]]

	state    atomic.Uint32
	refCount atomic.Int64
	already  atomic.Bool

	// freed is set the instant destroyNode reclaims this node. It exists
	// only so tests can assert invariant 5 - no node with refCount > 0 is
	// ever freed - directly, rather than inferring it from liveNodes.
	freed atomic.Bool
}

func newSentinel[T comparable](list *List[T], state nodeState) *node[T] {
	n := &node[T]{list: list}
	n.state.Store(uint32(state))
	liveNodes.Add(1)
	return n
}

func newValueNode[T comparable](list *List[T], value T) *node[T] {
	n := &node[T]{list: list, data: value}
	n.state.Store(uint32(nodeValid))
	liveNodes.Add(1)
	return n
}

func (n *node[T]) getState() nodeState {
	return nodeState(n.state.Load())
}

// destroy drops one strong reference. Under a read lock on the list's
// freeLock - which synchronizes this decrement against the sweeper's
// write-locked snapshot phase - it decrements refCount, and if that was
// the last reference, pushes the node onto the free list for eventual
// reclamation.
func (n *node[T]) destroy() {
	n.list.freeLock.rlock()
	remaining := n.refCount.Add(-1)
	if remaining == 0 {
		n.list.freeList.push(n)
	}
	n.list.freeLock.unlock()
}
