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

// EventKind discriminates the two shapes a DeepEvent can take.
type EventKind int

const (
	EventMapChanged EventKind = iota
	EventArrayChanged
)

// MapKeyChange describes one key's before/after state within a
// EventMapChanged DeepEvent.
type MapKeyChange struct {
	Key     string
	HadPrev bool
	Prev    any
	HasNew  bool
	New     any
}

// ArrayDeltaOp is one chunk of a quill-style array delta: retain N
// elements, delete N elements, or insert the given values (spec.md §4.9's
// "reconcileArrayWithDelta" contract). A chunk normally sets one field;
// the bridge's reconciler reads Delete first, then Insert, then Retain.
type ArrayDeltaOp struct {
	Retain int
	Delete int
	Insert []any
}

// DeepEvent is one container's worth of change within a transaction.
// Target is always the container that was directly mutated; Doc→React
// reconciliation (spec.md §4.9/§4.10) walks Target.Parent() to find the
// nearest materialized ancestor.
type DeepEvent struct {
	Kind       EventKind
	Target     Container
	MapChanges map[string]MapKeyChange
	ArrayDelta []ArrayDeltaOp
}

// Batch is everything observers receive for a single transaction: the
// origin it was tagged with, and every DeepEvent recorded during it.
// spec.md §1 requires "observers receive a single deep-event batch per
// transaction" — Doc.Transact only notifies once, at commit.
type Batch struct {
	Origin Origin
	Events []DeepEvent
}
