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

package sharedoc

import "github.com/google/uuid"

type arrayElem struct {
	id    string
	value any
}

// SArray is the ordered-sequence shared container from spec.md §3. Moves
// and shifting reorders are explicitly a Non-goal (spec.md §1); the only
// supported mutations are insert and delete at a given index, so this type
// keeps a plain ordered slice rather than an RGA-style interleaving
// structure. Cross-Doc merges of a whole array are last-writer-wins at the
// container level (see ApplyUpdate in wire.go and DESIGN.md) — fine-
// grained concurrent array merge is out of scope the same way the teacher
// CRDT resolver only merges map-shaped payload fields.
type SArray struct {
	id     string
	doc    *Doc
	parent Container
	elems  []arrayElem
	stamp  Stamp
}

func newSArray(doc *Doc) *SArray {
	return &SArray{id: uuid.NewString(), doc: doc}
}

// NewDetachedSArray creates an SArray bound to doc but not yet attached to
// a parent container.
func NewDetachedSArray(doc *Doc) *SArray { return newSArray(doc) }

func (a *SArray) ID() string        { return a.id }
func (a *SArray) Doc() *Doc         { return a.doc }
func (a *SArray) Parent() Container { return a.parent }
func (a *SArray) Detached() bool    { return a.parent == nil }
func (a *SArray) setParent(c Container) { a.parent = c }

// Len returns the number of elements.
func (a *SArray) Len() int { return len(a.elems) }

// Get returns the value at index i.
func (a *SArray) Get(i int) any { return a.elems[i].value }

// Snapshot returns a copy of the underlying values, in order.
func (a *SArray) Snapshot() []any {
	out := make([]any, len(a.elems))
	for i, e := range a.elems {
		out[i] = e.value
	}
	return out
}

// SeedAppend appends value to a brand-new, still-detached array directly,
// bypassing the transaction/event machinery. See SMap.SeedKey for why.
func (a *SArray) SeedAppend(value any) {
	a.elems = append(a.elems, arrayElem{id: uuid.NewString(), value: value})
	attachParent(value, a)
}

// ArrayInsertAt inserts value at index i (0 <= i <= Len()) inside tx.
func (tx *Tx) ArrayInsertAt(a *SArray, i int, value any) {
	requireSameDoc(tx, a.doc)
	if i < 0 || i > len(a.elems) {
		panic("sharedoc: array insert index out of range")
	}
	el := arrayElem{id: uuid.NewString(), value: value}
	a.elems = append(a.elems, arrayElem{})
	copy(a.elems[i+1:], a.elems[i:])
	a.elems[i] = el
	attachParent(value, a)
	a.stamp = tx.stamp
	tx.recordEvent(DeepEvent{
		Kind:   EventArrayChanged,
		Target: a,
		ArrayDelta: []ArrayDeltaOp{
			{Retain: i},
			{Insert: []any{value}},
		},
	})
}

// ArrayDeleteAt removes the element at index i inside tx.
func (tx *Tx) ArrayDeleteAt(a *SArray, i int) {
	requireSameDoc(tx, a.doc)
	if i < 0 || i >= len(a.elems) {
		panic("sharedoc: array delete index out of range")
	}
	a.elems = append(a.elems[:i], a.elems[i+1:]...)
	a.stamp = tx.stamp
	tx.recordEvent(DeepEvent{
		Kind:   EventArrayChanged,
		Target: a,
		ArrayDelta: []ArrayDeltaOp{
			{Retain: i},
			{Delete: 1},
		},
	})
}

// replaceAll swaps the whole contents of the array for values, without
// producing a positional delta (used when merging a remote snapshot; the
// caller is responsible for emitting whatever event shape it needs).
func (a *SArray) replaceAll(values []any) {
	elems := make([]arrayElem, len(values))
	for i, v := range values {
		elems[i] = arrayElem{id: uuid.NewString(), value: v}
		attachParent(v, a)
	}
	a.elems = elems
}
