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
	"encoding/json"
	"fmt"

	"github.com/spyzhov/ajson"
)

const (
	kindMap   = "map"
	kindArray = "array"
	kindLeaf  = "leaf"
)

// EncodeStateAsUpdate serializes the named root container (and everything
// reachable from it) to a self-describing JSON blob, including the
// per-entry Stamps needed for last-writer-wins merge on the receiving
// side. This is the bridge's stand-in for Yjs's binary "update" format —
// an opaque bytes value from the caller's point of view, applied via
// ApplyUpdate on another Doc.
func (d *Doc) EncodeStateAsUpdate(rootName string) ([]byte, error) {
	d.mu.Lock()
	root, ok := d.roots[rootName]
	d.mu.Unlock()
	if !ok {
		return json.Marshal(nil)
	}
	return json.Marshal(encodeValue(root))
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case *SMap:
		entries := make(map[string]any, t.entries.Len())
		for _, k := range t.Keys() {
			e, _ := t.entries.Get(k)
			entries[k] = map[string]any{
				"stamp": encodeStamp(e.stamp),
				"value": encodeValue(e.value),
			}
		}
		return map[string]any{"__type": kindMap, "entries": entries}
	case *SArray:
		items := make([]any, t.Len())
		for i := range items {
			items[i] = encodeValue(t.Get(i))
		}
		return map[string]any{"__type": kindArray, "stamp": encodeStamp(t.stamp), "items": items}
	case Leaf:
		return map[string]any{"__type": kindLeaf, "snapshot": t.Snapshot()}
	default:
		return v
	}
}

func encodeStamp(s Stamp) map[string]any {
	clock := make(map[string]uint64, len(s.Clock))
	for k, v := range s.Clock {
		clock[k] = v
	}
	return map[string]any{"clock": clock, "ts": s.Timestamp, "site": s.SiteID}
}

// ApplyUpdate decodes a blob produced by EncodeStateAsUpdate (possibly from
// a different Doc instance, or an older/newer version of this one — hence
// navigating it with ajson's schema-free JSON Pointer access rather than
// unmarshaling into a fixed Go struct) and merges it into the named root
// using last-writer-wins per SMap key (spec.md §6: "remote-only keys are
// preserved"). Applied inside a single transaction tagged with origin.
func (d *Doc) ApplyUpdate(origin Origin, rootName string, data []byte) error {
	node, err := ajson.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("sharedoc: decoding update: %w", err)
	}
	if node.IsNull() {
		return nil
	}
	var applyErr error
	d.Transact(origin, func(tx *Tx) {
		switch existing := d.roots[rootName].(type) {
		case *SMap:
			remote, err := decodeMapNode(node, d)
			if err != nil {
				applyErr = err
				return
			}
			changes := existing.mergeFrom(remote)
			if len(changes) > 0 {
				tx.recordEvent(DeepEvent{Kind: EventMapChanged, Target: existing, MapChanges: changes})
			}
		case *SArray:
			remote, err := decodeArrayNode(node, d)
			if err != nil {
				applyErr = err
				return
			}
			if !existing.stamp.Wins(remote.stamp) {
				existing.replaceAll(remote.Snapshot())
				existing.stamp = remote.stamp
				tx.recordEvent(DeepEvent{
					Kind:       EventArrayChanged,
					Target:     existing,
					ArrayDelta: []ArrayDeltaOp{{Delete: 0}}, // structural; reconciler falls back to full rebuild
				})
			}
		case nil:
			v, err := decodeValueNode(node, d)
			if err != nil {
				applyErr = err
				return
			}
			d.roots[rootName] = v
		}
	})
	return applyErr
}

func decodeValueNode(n *ajson.Node, d *Doc) (any, error) {
	if n == nil || n.IsNull() {
		return nil, nil
	}
	if n.IsObject() {
		typ, err := n.GetKey("__type")
		if err == nil && typ.IsString() {
			switch typ.MustString() {
			case kindMap:
				return decodeMapNode(n, d)
			case kindArray:
				return decodeArrayNode(n, d)
			case kindLeaf:
				snap, err := n.GetKey("snapshot")
				if err != nil {
					return nil, err
				}
				s, _ := snap.GetString()
				return NewTextLeaf(d, s), nil
			}
		}
	}
	return n.Unpack()
}

func decodeMapNode(n *ajson.Node, d *Doc) (*SMap, error) {
	m := newSMap(d)
	entriesNode, err := n.GetKey("entries")
	if err != nil {
		return m, nil
	}
	keys := entriesNode.Keys()
	for _, k := range keys {
		entryNode, err := entriesNode.GetKey(k)
		if err != nil {
			return nil, err
		}
		stampNode, err := entryNode.GetKey("stamp")
		if err != nil {
			return nil, err
		}
		stamp, err := decodeStampNode(stampNode)
		if err != nil {
			return nil, err
		}
		valueNode, err := entryNode.GetKey("value")
		if err != nil {
			return nil, err
		}
		v, err := decodeValueNode(valueNode, d)
		if err != nil {
			return nil, err
		}
		m.entries.Set(k, &smapEntry{value: v, stamp: stamp})
		attachParent(v, m)
	}
	return m, nil
}

func decodeArrayNode(n *ajson.Node, d *Doc) (*SArray, error) {
	a := newSArray(d)
	stampNode, err := n.GetKey("stamp")
	if err == nil {
		stamp, err := decodeStampNode(stampNode)
		if err != nil {
			return nil, err
		}
		a.stamp = stamp
	}
	itemsNode, err := n.GetKey("items")
	if err != nil {
		return a, nil
	}
	items, err := itemsNode.GetArray()
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(items))
	for _, itemNode := range items {
		v, err := decodeValueNode(itemNode, d)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	a.replaceAll(values)
	return a, nil
}

func decodeStampNode(n *ajson.Node) (Stamp, error) {
	clockNode, err := n.GetKey("clock")
	if err != nil {
		return Stamp{}, err
	}
	clock := VectorClock{}
	for k, v := range clockNode.MustObject() {
		f, err := v.GetNumeric()
		if err != nil {
			return Stamp{}, err
		}
		clock[k] = uint64(f)
	}
	tsNode, err := n.GetKey("ts")
	if err != nil {
		return Stamp{}, err
	}
	ts, err := tsNode.GetNumeric()
	if err != nil {
		return Stamp{}, err
	}
	siteNode, err := n.GetKey("site")
	if err != nil {
		return Stamp{}, err
	}
	site, err := siteNode.GetString()
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{Clock: clock, Timestamp: int64(ts), SiteID: site}, nil
}

// CloneValue deep-copies a shared value into a brand-new, detached
// container tree bound to doc. Used by the Write Scheduler's detached-
// shared safety rule (spec.md §4.5d): re-inserting a container that was
// detached earlier in the same transaction is fragile, so a fresh clone is
// inserted instead.
func CloneValue(doc *Doc, v any) any {
	switch t := v.(type) {
	case *SMap:
		clone := newSMap(doc)
		for _, k := range t.Keys() {
			e, _ := t.entries.Get(k)
			cv := CloneValue(doc, e.value)
			clone.entries.Set(k, &smapEntry{value: cv, stamp: e.stamp})
			attachParent(cv, clone)
		}
		return clone
	case *SArray:
		clone := newSArray(doc)
		values := make([]any, t.Len())
		for i := range values {
			values[i] = CloneValue(doc, t.Get(i))
		}
		clone.replaceAll(values)
		clone.stamp = t.stamp
		return clone
	case Leaf:
		return NewTextLeaf(doc, fmt.Sprint(t.Snapshot()))
	default:
		return v
	}
}
