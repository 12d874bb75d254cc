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

// Leaf is an opaque CRDT node with its own internal operational semantics
// (spec.md §3 glossary). The bridge never deep-proxies into a Leaf's
// internals (spec.md §4.8); it only reads Snapshot() and subscribes via
// Observe.
type Leaf interface {
	ID() string
	Doc() *Doc
	// Observe registers fn to run on every internal mutation of the leaf.
	// The returned func unregisters it.
	Observe(fn func()) (unobserve func())
	// Snapshot returns a plain representation of current leaf content,
	// used by Converter.SharedToPlain for read-only projections.
	Snapshot() any
}

// TextLeaf is the reference leaf implementation: a mutable rich-text-like
// rune buffer. It embeds *SMap for its backing storage, which is why
// spec.md §4.2/§4.6/§4.9 insist that guards and upgrade logic check
// "is this a Leaf" before "is this an SMap" — TextLeaf would otherwise be
// misclassified as a plain map.
type TextLeaf struct {
	*SMap
	runes     []rune
	observers map[int]func()
	nextObs   int
}

// NewTextLeaf creates a detached TextLeaf backed by doc, seeded with
// initial text.
func NewTextLeaf(doc *Doc, initial string) *TextLeaf {
	return &TextLeaf{
		SMap:      newSMap(doc),
		runes:     []rune(initial),
		observers: make(map[int]func()),
	}
}

func (t *TextLeaf) Observe(fn func()) func() {
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	return func() { delete(t.observers, id) }
}

func (t *TextLeaf) Snapshot() any { return string(t.runes) }

func (t *TextLeaf) String() string { return string(t.runes) }

func (t *TextLeaf) Len() int { return len(t.runes) }

// Insert splices s into the leaf's text at rune index i and notifies
// observers synchronously. This does not go through a Doc transaction: per
// spec.md §4.8, leaf mutation is the leaf's own internal operational
// semantics, observed natively rather than routed through deep events.
func (t *TextLeaf) Insert(i int, s string) {
	if i < 0 || i > len(t.runes) {
		panic("sharedoc: text leaf insert index out of range")
	}
	ins := []rune(s)
	out := make([]rune, 0, len(t.runes)+len(ins))
	out = append(out, t.runes[:i]...)
	out = append(out, ins...)
	out = append(out, t.runes[i:]...)
	t.runes = out
	t.notify()
}

// Delete removes length runes starting at i.
func (t *TextLeaf) Delete(i, length int) {
	if i < 0 || length < 0 || i+length > len(t.runes) {
		panic("sharedoc: text leaf delete range out of range")
	}
	t.runes = append(t.runes[:i], t.runes[i+length:]...)
	t.notify()
}

func (t *TextLeaf) notify() {
	for _, fn := range t.observers {
		fn()
	}
}

