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

package bridge

import (
	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// reconcileMap applies a Doc-side SMap change to its already-materialized
// controller, one key at a time. Called with the reentrancy lock held
// (spec.md §4.9), so attachMapSubscription's own Subscribe callback treats
// the resulting Set/Delete as an echo rather than a new application write.
func (c *Context) reconcileMap(obj *reactobj.ReactiveObject, changes map[string]sharedoc.MapKeyChange) {
	for key, ch := range changes {
		key := key
		if !ch.HasNew {
			obj.Delete(key)
			continue
		}
		val := c.projectForStorage(ch.New, func(leaf sharedoc.Leaf) { obj.Set(key, leaf) })
		obj.Set(key, val)
	}
}

// reconcileArray rebuilds arr's entire contents from a's current snapshot.
// Used when there's no usable positional delta (spec.md §4.9's fallback —
// e.g. a remote merge that replaced the whole array).
func (c *Context) reconcileArray(a *sharedoc.SArray, arr *reactobj.ReactiveArray) {
	values := a.Snapshot()
	projected := make([]any, len(values))
	for i, v := range values {
		i := i
		projected[i] = c.projectForStorage(v, func(leaf sharedoc.Leaf) { arr.Set(i, leaf) })
	}
	arr.Splice(0, arr.Len(), projected...)
}

// reconcileArrayWithDelta walks a quill-style retain/delete/insert delta,
// applying each chunk as a Splice at the tracked cursor position. Preferred
// over reconcileArray whenever a real delta is available: it produces a
// React-side burst shaped like the actual edit instead of a full rebuild.
func (c *Context) reconcileArrayWithDelta(arr *reactobj.ReactiveArray, delta []sharedoc.ArrayDeltaOp) {
	pos := 0
	for _, op := range delta {
		switch {
		case op.Delete > 0:
			arr.Splice(pos, op.Delete)
		case len(op.Insert) > 0:
			values := make([]any, len(op.Insert))
			for i, v := range op.Insert {
				idx := pos + i
				values[i] = c.projectForStorage(v, func(leaf sharedoc.Leaf) { arr.Set(idx, leaf) })
			}
			arr.Splice(pos, 0, values...)
			pos += len(values)
		default:
			pos += op.Retain
		}
	}
}

// hasStructuralDelta reports whether delta carries real positional
// information, as opposed to the single all-zero sentinel chunk ApplyUpdate
// emits when it replaces an array wholesale and has no meaningful delta to
// offer (spec.md §4.9 — both readings of a zero-value Retain advance the
// cursor by zero, so the ambiguity is harmless; an all-zero chunk alone in
// the slice is unambiguously the "no delta" sentinel).
func hasStructuralDelta(delta []sharedoc.ArrayDeltaOp) bool {
	for _, op := range delta {
		if op.Retain != 0 || op.Delete != 0 || len(op.Insert) != 0 {
			return true
		}
	}
	return false
}
