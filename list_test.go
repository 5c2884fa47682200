package acidlist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSingleThreadedBasic is spec scenario S1.
func TestSingleThreadedBasic(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3, 4})
	defer closeList(t, l)

	require.Equal(t, 4, l.Len())

	found := l.Find(2)
	l.Erase(found)
	found.Close()
	assert.Equal(t, []int{1, 3, 4}, collectValues(l))

	l.PushBack(5)
	assert.Equal(t, []int{1, 3, 4, 5}, collectValues(l))

	l.PopBack()
	assert.Equal(t, []int{1, 3, 4}, collectValues(l))
}

// TestInvariantLinks checks spec invariant 2: for every node reachable
// from root, n.next.prev == n and n.prev.next == n.
func TestInvariantLinks(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3, 4, 5})
	defer closeList(t, l)

	for cur := l.root; cur != l.last; {
		next := cur.next.Load()
		assert.Same(t, cur, next.prev.Load(), "next.prev should point back at cur")
		cur = next
	}
}

// TestInvariantSize checks spec invariant 3: size() equals the traversable
// node count, exclusive of sentinels, at quiescence.
func TestInvariantSize(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3})
	defer closeList(t, l)

	l.PushBack(4)
	l.Erase(l.mustFind(t, 2))
	l.PushFront(0)

	count := 0
	for cur := l.root.next.Load(); cur != l.last; cur = cur.next.Load() {
		count++
	}
	assert.Equal(t, l.Len(), count)
}

func (l *List[T]) mustFind(t *testing.T, v T) *Iterator[T] {
	t.Helper()
	it := l.Find(v)
	end := l.End()
	defer end.Close()
	require.False(t, it.Equal(end), "expected to find %v", v)
	return it
}

// TestInsertEraseRoundTrip is the round-trip law: insert(it, v) followed by
// erase(it_to_new) returns the list to its prior value-sequence.
func TestInsertEraseRoundTrip(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3})
	defer closeList(t, l)

	before := collectValues(l)

	anchor := l.mustFind(t, 2)
	l.Insert(anchor, 99)
	anchor.Close()

	newIt := l.mustFind(t, 99)
	l.Erase(newIt)
	newIt.Close()

	assert.Equal(t, before, collectValues(l))
}

// TestFindReturnsMatch: find(v) on a list containing exactly one v returns
// an iterator whose Get() == v.
func TestFindReturnsMatch(t *testing.T) {
	l := NewFromSlice([]string{"a", "b", "c"})
	defer closeList(t, l)

	it := l.mustFind(t, "b")
	defer it.Close()
	assert.Equal(t, "b", it.Get())
}

// TestFindMiss: Find on a value not present returns End.
func TestFindMiss(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3})
	defer closeList(t, l)

	it := l.Find(42)
	defer it.Close()
	end := l.End()
	defer end.Close()
	assert.True(t, it.Equal(end))
}

// TestInsertAtEndAndBegin exercises Insert's delegation to PushBack/
// PushFront when the anchor targets a sentinel.
func TestInsertAtEndAndBegin(t *testing.T) {
	l := New[int]()
	defer closeList(t, l)

	end := l.End()
	l.Insert(end, 1)
	end.Close()
	assert.Equal(t, []int{1}, collectValues(l))

	begin := l.Begin()
	begin.Prev() // Begin targets the first element; step back onto the begin sentinel.
	l.Insert(begin, 0)
	begin.Close()
	assert.Equal(t, []int{0, 1}, collectValues(l))
}

// TestInsertVsEraseRace is spec scenario S4: an insert anchored on a node
// concurrently erased by someone else is silently dropped, not a panic or
// a corrupt splice.
func TestInsertVsEraseRace(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3})
	defer closeList(t, l)

	anchor := l.mustFind(t, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		victim := l.Find(2)
		l.Erase(victim)
		victim.Close()
	}()
	<-done

	l.Insert(anchor, 99)
	anchor.Close()

	assert.Equal(t, []int{1, 3}, collectValues(l))
}

// TestEraseBoundaries: erasing a sentinel or an already-removed node is a
// no-op.
func TestEraseBoundaries(t *testing.T) {
	l := NewFromSlice([]int{1})
	defer closeList(t, l)

	begin := l.Begin()
	begin.Prev() // Begin targets the first element; step back onto the begin sentinel.
	end := l.End()
	l.Erase(begin)
	l.Erase(end)
	begin.Close()
	end.Close()
	assert.Equal(t, []int{1}, collectValues(l))

	it := l.mustFind(t, 1)
	clone := it.Clone()
	l.Erase(it)
	l.Erase(clone) // already removed: no-op, must not double count size.
	it.Close()
	clone.Close()
	assert.Equal(t, 0, l.Len())
}

// TestEraseOnEmptyList: erasing on an empty list is a no-op, not a panic.
func TestEraseOnEmptyList(t *testing.T) {
	l := New[int]()
	defer closeList(t, l)

	it := l.Begin() // targets End, since the list is empty.
	l.Erase(it)
	it.Close()
	assert.Equal(t, 0, l.Len())
}

// TestIteratorSelfAssignNoOp: copy-assigning an iterator to itself is a
// no-op and does not change refCount.
func TestIteratorSelfAssignNoOp(t *testing.T) {
	l := NewFromSlice([]int{1, 2, 3})
	defer closeList(t, l)

	it := l.mustFind(t, 2)
	defer it.Close()

	before := it.ptr.refCount.Load()
	it.Assign(it)
	assert.Equal(t, before, it.ptr.refCount.Load())
}

// TestSweeperGrace is spec scenario S2: an iterator holding a reference to
// an erased node can still read its value for at least one sweeper cycle,
// and the node is eventually reclaimed once the iterator is dropped.
func TestSweeperGrace(t *testing.T) {
	l := NewFromSlice([]int{10}, WithSweepInterval(20*time.Millisecond))
	defer closeList(t, l)

	it := l.mustFind(t, 10)

	erased := make(chan struct{})
	go func() {
		defer close(erased)
		victim := l.Find(10)
		l.Erase(victim)
		victim.Close()
	}()
	<-erased

	// The node is removed from the chain but it's still safe to read
	// through the iterator that was holding a reference before the erase.
	assert.Equal(t, 10, it.Get())

	before := liveNodes.Load()
	time.Sleep(100 * time.Millisecond) // several sweeper cycles
	// The node can't be freed yet: it's still referenced.
	assert.Equal(t, before, liveNodes.Load())

	it.Close()
	require.Eventually(t, func() bool {
		return liveNodes.Load() < before
	}, 2*time.Second, 10*time.Millisecond, "node was never reclaimed after the iterator dropped")
}
