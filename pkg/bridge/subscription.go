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
	"github.com/agcty/valtio-yjs-sub001/pkg/convert"
	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// attachMapSubscription wires obj's own Subscribe hook to the Write
// Scheduler: every burst obj emits is planned and validated here, and
// enqueued for the next flush. Bursts produced while the reentrancy lock is
// held are the Doc->React reconciler's own echo and are ignored (spec.md
// §4.3).
func (c *Context) attachMapSubscription(m *sharedoc.SMap, obj *reactobj.ReactiveObject) {
	disposer := obj.Subscribe(func(ops []reactobj.Op) {
		if c.isReconciling() {
			return
		}
		top := topLevelOps(ops)
		if len(top) == 0 {
			return
		}
		sets, deletes := PlanMapOps(top)
		for _, v := range sets {
			if err := convert.ValidateDeep(v); err != nil {
				c.noteBurstError(err)
				return
			}
		}
		for key := range deletes {
			c.scheduler.enqueueMapDelete(m, key)
		}
		for key, v := range sets {
			key, v := key, v
			c.scheduler.enqueueMapSet(m, key, v, func(shared any) {
				obj.RestoreLocked(key, true, c.projectForStorage(shared, func(leaf sharedoc.Leaf) { obj.Set(key, leaf) }))
			})
		}
	})
	c.registerSubscription(m, disposer)
}

// attachArraySubscription is attachMapSubscription's array counterpart.
// baseline, the array's Doc-side length at planning time, is valid as the
// set/replace discriminator because the Doc only mutates array length at
// flush (spec.md §4.4).
func (c *Context) attachArraySubscription(a *sharedoc.SArray, arr *reactobj.ReactiveArray) {
	disposer := arr.Subscribe(func(ops []reactobj.Op) {
		if c.isReconciling() {
			return
		}
		top := topLevelOps(ops)
		if len(top) == 0 {
			return
		}
		baseline := a.Len()
		sets, replaces, deletes := PlanArrayOps(top, baseline)
		for _, v := range sets {
			if err := convert.ValidateDeep(v); err != nil {
				c.noteBurstError(err)
				return
			}
		}
		for _, v := range replaces {
			if err := convert.ValidateDeep(v); err != nil {
				c.noteBurstError(err)
				return
			}
		}
		for idx := range deletes {
			c.scheduler.enqueueArrayDelete(a, idx)
		}
		for idx, v := range replaces {
			idx, v := idx, v
			c.scheduler.enqueueArrayReplace(a, idx, v, func(shared any) {
				c.restoreArrayIndex(arr, idx, shared)
			})
		}
		for idx, v := range sets {
			idx, v := idx, v
			c.scheduler.enqueueArraySet(a, idx, v, func(shared any) {
				c.restoreArrayIndex(arr, idx, shared)
			})
		}
	})
	c.registerSubscription(a, disposer)
}

func (c *Context) restoreArrayIndex(arr *reactobj.ReactiveArray, idx int, shared any) {
	snap := arr.Snapshot()
	if idx < 0 || idx >= len(snap) {
		return
	}
	snap[idx] = c.projectForStorage(shared, func(leaf sharedoc.Leaf) { arr.Set(idx, leaf) })
	arr.RestoreSnapshotLocked(snap)
}

// SetKey assigns key to value on obj. If the resulting burst fails
// validation, obj is rolled back to its pre-call state and the
// UnsupportedValueError is returned, mirroring spec.md §7's "assignment
// throws synchronously and the proxy is left unchanged".
func (c *Context) SetKey(obj *reactobj.ReactiveObject, key string, value any) error {
	order, values := obj.Snapshot()
	obj.Set(key, value)
	if err := c.takeBurstError(); err != nil {
		obj.RestoreFullLocked(order, values)
		return err
	}
	return nil
}

// DeleteKey removes key from obj. Deleting an absent key is always a no-op
// and never fails.
func (c *Context) DeleteKey(obj *reactobj.ReactiveObject, key string) error {
	order, values := obj.Snapshot()
	obj.Delete(key)
	if err := c.takeBurstError(); err != nil {
		obj.RestoreFullLocked(order, values)
		return err
	}
	return nil
}

// Push appends value to arr, rolling back on validation failure.
func (c *Context) Push(arr *reactobj.ReactiveArray, value any) error {
	snap := arr.Snapshot()
	arr.Push(value)
	if err := c.takeBurstError(); err != nil {
		arr.RestoreSnapshotLocked(snap)
		return err
	}
	return nil
}

// Splice removes deleteCount elements starting at start and inserts
// values in their place, rolling back on validation failure.
func (c *Context) Splice(arr *reactobj.ReactiveArray, start, deleteCount int, values ...any) ([]any, error) {
	snap := arr.Snapshot()
	removed := arr.Splice(start, deleteCount, values...)
	if err := c.takeBurstError(); err != nil {
		arr.RestoreSnapshotLocked(snap)
		return nil, err
	}
	return removed, nil
}
