package acidlist

import "sync/atomic"

// freeNode wraps a node queued for reclamation. It is a thin stack-frame
// entry distinct from the node itself: a node can be pushed to the free
// list, picked back off by the sweeper's bookkeeping, and re-pushed later
// if it gained new references in the interim, all without disturbing the
// node it points at.
type freeNode[T comparable] struct {
	ptr  *node[T]
	next atomic.Pointer[freeNode[T]]
}

// freeList is a lock-free LIFO of nodes awaiting the sweeper. push is the
// only operation callers outside this file perform on it; everything else
// is internal to the sweep.
type freeList[T comparable] struct {
	head atomic.Pointer[freeNode[T]]
}

func (f *freeList[T]) push(n *node[T]) {
	fn := &freeNode[T]{ptr: n}
	for {
		old := f.head.Load()
		fn.next.Store(old)
		if f.head.CompareAndSwap(old, fn) {
			return
		}
	}
}

// sweep runs one pass of the two-phase grace reclamation scheme described
// in the package doc. It is called from the background goroutine started
// by New, and, once Close stops that goroutine, repeatedly and without
// sleeping by drain until the free list is empty.
//
// Step 1: snapshot the stack under a freeLock write lock.
// Step 2: walk the snapshot; drop wrapper nodes whose target has regained
// references, or was already marked as seen (such a node is freed through
// the entry that marked it, in this pass or an earlier one); mark the
// remaining zero-refcount nodes as seen and keep them linked.
// Step 3: re-acquire freeLock and see how much was pushed onto the stack
// while step 2 was running. If nothing was (the common case), the head
// is simply cleared and tmp's already-correct chain is left untouched.
// Otherwise the new entries are detached from tmp's chain and become the
// new head.
// Step 4: drop any entries that arrived in that window for nodes already
// marked as seen.
// Step 5: free every node still linked into the chain from step 2, that
// is, every node this pass marked as seen.
func (l *List[T]) sweep() {
	l.freeLock.wlock()
	tmp := l.freeList.head.Load()
	l.freeLock.unlock()

	if tmp == nil {
		return
	}

	head := tmp
	var prev *freeNode[T]
	for cur := tmp; cur != nil; {
		next := cur.next.Load()
		if cur.ptr.refCount.Load() != 0 || cur.ptr.already.Load() {
			if prev == nil {
				head = next
			} else {
				prev.next.Store(next)
			}
		} else {
			cur.ptr.already.Store(true)
			prev = cur
		}
		cur = next
	}

	l.freeLock.wlock()
	temp := l.freeList.head.Load()
	if tmp == temp {
		l.freeList.head.Store(nil)
	}
	l.freeLock.unlock()

	// Only the segment strictly above tmp - entries pushed while step 2
	// was running - needs splicing off here. When nothing was pushed in
	// that window (temp == tmp, the common case), the chain rooted at
	// tmp is already correctly nil-terminated by step 2; touching
	// prev.next in that case would truncate tmp's own chain down to a
	// single node and orphan every other survivor before step 5 ever
	// gets to destroy them.
	if temp != tmp {
		prev = temp
		for cur := temp; cur != tmp && cur != nil; {
			next := cur.next.Load()
			if cur.ptr.already.Load() {
				prev.next.Store(next)
			} else {
				prev = cur
			}
			cur = next
		}
		prev.next.Store(nil)
	}

	for cur := head; cur != nil; {
		next := cur.next.Load()
		l.destroyNode(cur)
		cur = next
	}
}

// destroyNode releases the two neighbor references a removed node still
// held and frees the underlying node. It is only ever called on a node
// that the current sweep pass found with refCount == 0 and marked as seen
// before taking freeLock as a writer a second time (see sweep's doc
// comment).
func (l *List[T]) destroyNode(fn *freeNode[T]) {
	if left := fn.ptr.prev.Load(); left != nil {
		left.destroy()
	}
	if right := fn.ptr.next.Load(); right != nil {
		right.destroy()
	}
	fn.ptr.freed.Store(true)
	liveNodes.Add(-1)
}
