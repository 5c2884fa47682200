// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package acidlist implements a concurrent doubly-linked list that many
// goroutines may traverse and mutate at once, by way of two cooperating
// techniques: hand-over-hand locking and deferred reclamation.
//
// ## Hand-over-hand locking
//
// Every node owns its own reader/writer lock, guarding that node's data and
// its prev/next links. A structural mutation - insert, erase, push_front,
// push_back - never takes a lock on the whole list. Instead it write-locks
// the left and right neighbors it splices between, in that order (erase
// also read-locks the node being removed, between the two). push_back and
// erase then re-validate that the neighbors still point at each other
// (another goroutine may have spliced in between reading the pointer and
// taking the lock), and either proceed or release everything and retry;
// insert gives up instead if its anchor node has already been removed.
// Taking locks in the same left-to-right order everywhere rules out
// deadlock cycles, the same way a tree of intention locks rules out cycles
// by only ever being taken in root-to-leaf order.
//
// ## Deferred reclamation
//
// Iterators hold raw pointers to nodes without taking any list-wide lock on
// their fast path. That means a node cannot be freed the instant it is
// unlinked: some iterator somewhere might still be mid-step, reading its
// prev/next before it was spliced out. Every node instead carries a
// reference count (one per neighbor pointer, one per live iterator). When
// erase splices a node out it drops the two neighbor references; when the
// count later reaches zero the node is pushed onto a lock-free free list. A
// single background sweeper goroutine per list empties that free list in
// periodic passes. Each pass snapshots the free list under a list-wide
// write lock, marks every node it finds with a zero refcount as seen
// (dropping entries whose node has regained a reference or was already
// marked), takes the write lock a second time, and only then frees the
// marked nodes. That bracket is
// what makes "no iterator still holds a pointer to this node" a fact the
// sweeper can trust, without making every iterator step take a global lock
// to get it.
//
// Neither piece is lock-free in the no-blocking-retries sense: both spin
// and retry under contention rather than using compare-and-swap to avoid
// blocking altogether. What they avoid is a single list-wide mutex on the
// hot paths of traversal and mutation.
package acidlist
