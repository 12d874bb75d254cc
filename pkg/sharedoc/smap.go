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

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"
)

type smapEntry struct {
	value any
	stamp Stamp
}

// SMap is the key->value shared container from spec.md §3. Keys preserve
// insertion order (spec.md §4.1 requires plainToShared to iterate object
// keys in insertion order; backing the map with orderedmap.OrderedMap
// gives that for free instead of a hand-rolled key-order slice).
type SMap struct {
	id      string
	doc     *Doc
	parent  Container
	entries *orderedmap.OrderedMap[string, *smapEntry]
}

func newSMap(doc *Doc) *SMap {
	return &SMap{
		id:      uuid.NewString(),
		doc:     doc,
		entries: orderedmap.NewOrderedMap[string, *smapEntry](),
	}
}

// NewDetachedSMap creates an SMap bound to doc but not yet attached to any
// parent container. Used by the Converter when materializing a nested
// plain object and by the deep-clone re-integration safeguard (spec.md
// §4.5d).
func NewDetachedSMap(doc *Doc) *SMap { return newSMap(doc) }

func (m *SMap) ID() string       { return m.id }
func (m *SMap) Doc() *Doc        { return m.doc }
func (m *SMap) Parent() Container { return m.parent }

// Detached reports whether this container has no parent link. Removing a
// container from its parent (DeleteMapKey, ArrayDeleteAt, an overwrite or
// a merge) does not clear that link, so only a container that was never
// inserted into any container's storage reports true.
func (m *SMap) Detached() bool { return m.parent == nil }

func (m *SMap) setParent(c Container) { m.parent = c }

// Len returns the number of keys.
func (m *SMap) Len() int { return m.entries.Len() }

// Has reports whether key is present.
func (m *SMap) Has(key string) bool {
	_, ok := m.entries.Get(key)
	return ok
}

// Get returns the value at key (primitive, *SMap, *SArray or Leaf) and
// whether it was present.
func (m *SMap) Get(key string) (any, bool) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Keys returns the map's keys in insertion order.
func (m *SMap) Keys() []string {
	out := make([]string, 0, m.entries.Len())
	for el := m.entries.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key)
	}
	return out
}

// SeedKey populates key on a brand-new, still-detached map directly,
// bypassing the transaction/event machinery. Used by the Converter to
// build a nested plain-object tree before it is attached anywhere; the
// Tx method that eventually attaches the whole tree to a live container
// is what produces the deep event, not this call.
func (m *SMap) SeedKey(key string, value any) {
	m.entries.Set(key, &smapEntry{value: value, stamp: m.doc.nextStampLocked()})
	attachParent(value, m)
}

// SetMapKey assigns key to value inside tx. If value is a container, its parent
// link is updated to m. Must be called inside a transaction on m.Doc().
func (tx *Tx) SetMapKey(m *SMap, key string, value any) {
	requireSameDoc(tx, m.doc)
	prev, hadPrev := m.entries.Get(key)
	m.entries.Set(key, &smapEntry{value: value, stamp: tx.stamp})
	attachParent(value, m)
	var prevVal any
	if hadPrev {
		prevVal = prev.value
	}
	tx.recordEvent(DeepEvent{
		Kind:   EventMapChanged,
		Target: m,
		MapChanges: map[string]MapKeyChange{
			key: {Key: key, HadPrev: hadPrev, Prev: prevVal, HasNew: true, New: value},
		},
	})
}

// DeleteMapKey removes key from m inside tx, recording a deep event. A
// missing key is a no-op (no event).
func (tx *Tx) DeleteMapKey(m *SMap, key string) {
	requireSameDoc(tx, m.doc)
	prev, ok := m.entries.Get(key)
	if !ok {
		return
	}
	m.entries.Delete(key)
	tx.recordEvent(DeepEvent{
		Kind:   EventMapChanged,
		Target: m,
		MapChanges: map[string]MapKeyChange{
			key: {Key: key, HadPrev: true, Prev: prev.value, HasNew: false},
		},
	})
}

// mergeFrom applies remote's entries onto m using last-writer-wins per key,
// the way mergeDocuments in the corpus's CRDT resolver merges fields of a
// DistributedDocument: `merged := *winner` keeps the winner's existing
// payload and overlays only the keys that actually changed, rather than
// discarding it for a blank replacement. Used by ApplyUpdate (wire.go) to
// fold an encoded snapshot from another Doc into this one.
//
// A nested *SMap/*SArray value merges into the existing local container in
// place when one is already present, instead of replacing it with a fresh,
// empty one: replacing it would both drop every local-only key nested below
// (the fresh container starts empty, so every recursive call would see
// hadLocal=false) and orphan whatever controller is already materialized
// against the existing container's identity. When the local entry's stamp
// wins the key itself, a nested *SMap on both sides is still merged key by
// key (each nested key under its own stamp); a nested *SArray keeps its
// local contents. Only changes to m's own keys are reported in changed.
func (m *SMap) mergeFrom(remote *SMap) (changed map[string]MapKeyChange) {
	changed = map[string]MapKeyChange{}
	for _, key := range remote.Keys() {
		rv, _ := remote.Get(key)
		re, _ := remote.entries.Get(key)
		local, hadLocal := m.entries.Get(key)
		if hadLocal && !re.stamp.Wins(local.stamp) {
			if rs, ok := rv.(*SMap); ok {
				if ls, ok := local.value.(*SMap); ok {
					ls.mergeFrom(rs)
				}
			}
			continue
		}
		var prevVal any
		if hadLocal {
			prevVal = local.value
		}
		var newVal any = rv
		if rs, ok := rv.(*SMap); ok {
			ls, hasLocalMap := (*SMap)(nil), false
			if hadLocal {
				ls, hasLocalMap = local.value.(*SMap)
			}
			if hasLocalMap {
				ls.mergeFrom(rs)
				newVal = ls
			} else {
				ns := newSMap(m.doc)
				ns.mergeFrom(rs)
				newVal = ns
			}
		} else if ra, ok := rv.(*SArray); ok {
			la, hasLocalArray := (*SArray)(nil), false
			if hadLocal {
				la, hasLocalArray = local.value.(*SArray)
			}
			if hasLocalArray {
				la.replaceAll(ra.Snapshot())
				newVal = la
			} else {
				na := newSArray(m.doc)
				na.replaceAll(ra.Snapshot())
				newVal = na
			}
		}
		m.entries.Set(key, &smapEntry{value: newVal, stamp: re.stamp})
		attachParent(newVal, m)
		changed[key] = MapKeyChange{Key: key, HadPrev: hadLocal, Prev: prevVal, HasNew: true, New: newVal}
	}
	return changed
}

func attachParent(value any, parent Container) {
	switch v := value.(type) {
	case *SMap:
		v.setParent(parent)
	case *SArray:
		v.setParent(parent)
	case interface{ setParent(Container) }:
		v.setParent(parent)
	}
}

func requireSameDoc(tx *Tx, doc *Doc) {
	if tx.doc != doc {
		panic("sharedoc: container belongs to a different Doc than the active transaction")
	}
}
