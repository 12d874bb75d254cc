// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reactobj

import (
	"strconv"
	"sync"
)

// ReactiveArray is a sequence-shaped Controller: the React-side mirror of
// an SArray.
type ReactiveArray struct {
	mu sync.Mutex

	items []any

	subs    map[int]func([]Op)
	nextSub int

	batchDepth int
	pending    []Op
}

// NewReactiveArray creates an empty ReactiveArray.
func NewReactiveArray() *ReactiveArray {
	return &ReactiveArray{subs: make(map[int]func([]Op))}
}

func (a *ReactiveArray) Subscribe(fn func(ops []Op)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Len returns the number of elements.
func (a *ReactiveArray) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Get returns the element at index i.
func (a *ReactiveArray) Get(i int) any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.items[i]
}

// Snapshot returns a copy of the current elements, in order.
func (a *ReactiveArray) Snapshot() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]any, len(a.items))
	copy(out, a.items)
	return out
}

// Batch runs fn with the array locked, collecting every op it performs
// into one burst.
func (a *ReactiveArray) Batch(fn func()) {
	a.mu.Lock()
	a.batchDepth++
	fn()
	a.batchDepth--
	var flush []Op
	if a.batchDepth == 0 && len(a.pending) > 0 {
		flush = a.pending
		a.pending = nil
	}
	subs := a.subsSnapshotLocked()
	a.mu.Unlock()

	if flush != nil {
		for _, fn := range subs {
			fn(flush)
		}
	}
}

func (a *ReactiveArray) subsSnapshotLocked() []func([]Op) {
	out := make([]func([]Op), 0, len(a.subs))
	for _, fn := range a.subs {
		out = append(out, fn)
	}
	return out
}

// Push appends value as its own one-op burst.
func (a *ReactiveArray) Push(value any) {
	a.Batch(func() { a.setAtLocked(len(a.items), value) })
}

// Set overwrites index i as its own one-op burst.
func (a *ReactiveArray) Set(i int, value any) {
	a.Batch(func() { a.setAtLocked(i, value) })
}

// Splice removes deleteCount elements starting at start and inserts
// values in their place, mirroring Array.prototype.splice. It emits the
// same low-level op shape a real proxy library would: paired delete+set
// ops at the overlapping indices (so the Planner can recognize them as a
// replace), followed by pure deletes or pure sets/appends for whatever
// count difference remains. Returns the removed elements.
func (a *ReactiveArray) Splice(start, deleteCount int, values ...any) []any {
	var removed []any
	a.Batch(func() {
		if start < 0 || start > len(a.items) {
			panic("reactobj: splice start out of range")
		}
		if deleteCount > len(a.items)-start {
			deleteCount = len(a.items) - start
		}
		removed = append(removed, a.items[start:start+deleteCount]...)

		overlap := deleteCount
		if len(values) < overlap {
			overlap = len(values)
		}
		for k := 0; k < overlap; k++ {
			idx := start + k
			a.emitDeleteLocked(idx)
			a.setAtLocked(idx, values[k])
		}
		switch {
		case deleteCount > len(values):
			for k := len(values); k < deleteCount; k++ {
				a.removeAtLocked(start + len(values))
			}
		case len(values) > deleteCount:
			for k := deleteCount; k < len(values); k++ {
				a.insertAtLocked(start+k, values[k])
			}
		}
	})
	return removed
}

// setAtLocked overwrites (or appends, if i == len(a.items)) the element at
// i without changing the array's length otherwise. Must run inside Batch.
func (a *ReactiveArray) setAtLocked(i int, value any) {
	var prev any
	hadPrev := i < len(a.items)
	if hadPrev {
		prev = a.items[i]
		a.items[i] = value
	} else {
		a.items = append(a.items, value)
	}
	a.pending = append(a.pending, Op{Path: []string{strconv.Itoa(i)}, Kind: OpSet, Value: value, Prev: prev, HadPrev: hadPrev})
}

// emitDeleteLocked records a delete op for index i without shrinking the
// slice — used when immediately followed by setAtLocked at the same index
// to express a logical in-place replace as a delete+set pair.
func (a *ReactiveArray) emitDeleteLocked(i int) {
	a.pending = append(a.pending, Op{Path: []string{strconv.Itoa(i)}, Kind: OpDelete, Prev: a.items[i], HadPrev: true})
}

// removeAtLocked physically shrinks the slice, removing the element at i
// and recording a delete op.
func (a *ReactiveArray) removeAtLocked(i int) {
	a.emitDeleteLocked(i)
	a.items = append(a.items[:i], a.items[i+1:]...)
}

// insertAtLocked physically grows the slice, inserting value at i and
// recording a set op (the Planner, not this layer, infers "this is an
// insert" from the index falling at/past the pre-burst length).
func (a *ReactiveArray) insertAtLocked(i int, value any) {
	a.items = append(a.items, nil)
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = value
	a.pending = append(a.pending, Op{Path: []string{strconv.Itoa(i)}, Kind: OpSet, Value: value, HadPrev: false})
}

// RestoreSnapshotLocked replaces the array's contents with snapshot
// without recording ops (rollback path, spec.md §7).
func (a *ReactiveArray) RestoreSnapshotLocked(snapshot []any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append([]any(nil), snapshot...)
}
