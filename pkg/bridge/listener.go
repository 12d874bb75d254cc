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
	"fmt"

	"github.com/agcty/valtio-yjs-sub001/pkg/bridgeerr"
	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// attachSyncListener wires the Doc's deep-event stream into the React side.
// A batch tagged with ORIGIN is this bridge's own write echoing back and is
// ignored (spec.md §9); everything else — a remote peer's update folded in
// via ApplyUpdate, or local code mutating the Doc directly — is reconciled
// under the reentrancy lock so the resulting controller writes don't loop
// back into the Write Scheduler.
func (c *Context) attachSyncListener(doc *sharedoc.Doc) func() {
	return doc.ObserveDeep(func(batch sharedoc.Batch) {
		if batch.Origin == ORIGIN {
			return
		}
		var failure bridgeerr.ReconciliationFailure
		c.withReconcilingLock(func() {
			for _, ev := range batch.Events {
				failure.Add(c.dispatchEventSafe(ev))
			}
		})
		if err := failure.ErrorOrNil(); err != nil {
			c.logger.Error(err, "bridge: deep-event reconciliation had failures")
		}
	})
}

// dispatchEventSafe isolates one event's reconciliation with panic recovery
// so a single malformed or unexpected event can't take the rest of the
// batch down with it.
func (c *Context) dispatchEventSafe(ev sharedoc.DeepEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: reconciling deep event: %v", r)
		}
	}()
	c.dispatchEvent(ev)
	return nil
}

func (c *Context) dispatchEvent(ev sharedoc.DeepEvent) {
	if ctrl, ok := c.controllerFor(ev.Target); ok {
		switch target := ev.Target.(type) {
		case *sharedoc.SMap:
			c.reconcileMap(ctrl.(*reactobj.ReactiveObject), ev.MapChanges)
		case *sharedoc.SArray:
			arr := ctrl.(*reactobj.ReactiveArray)
			if hasStructuralDelta(ev.ArrayDelta) {
				c.reconcileArrayWithDelta(arr, ev.ArrayDelta)
			} else {
				c.reconcileArray(target, arr)
			}
		}
		return
	}
	c.reconcileBoundary(ev.Target)
}

// findBoundary walks target's ancestor chain to the nearest container that
// already has a materialized controller — the point at which a change deep
// inside an un-materialized subtree becomes visible to anyone (spec.md
// §4.10). A change whose whole path up to the root is un-materialized has
// no materialized observer at all and is simply invisible until something
// reads that far down.
func (c *Context) findBoundary(target sharedoc.Container) (sharedoc.Container, bool) {
	for p := target.Parent(); p != nil; p = p.Parent() {
		if _, ok := c.controllerFor(p); ok {
			return p, true
		}
	}
	return nil, false
}

// reconcileBoundary refreshes the single key/index on the nearest
// materialized ancestor of target that points at target's branch, so that
// ancestor's subscribers see a change even though the mutation happened
// below anything they have actually read into.
func (c *Context) reconcileBoundary(target sharedoc.Container) {
	ancestor, ok := c.findBoundary(target)
	if !ok {
		return
	}
	ctrl, _ := c.controllerFor(ancestor)
	switch a := ancestor.(type) {
	case *sharedoc.SMap:
		obj := ctrl.(*reactobj.ReactiveObject)
		key, ok := findChildKey(a, target)
		if !ok {
			return
		}
		v, _ := a.Get(key)
		val := c.projectForStorage(v, func(leaf sharedoc.Leaf) { obj.Set(key, leaf) })
		obj.Set(key, val)
	case *sharedoc.SArray:
		arr := ctrl.(*reactobj.ReactiveArray)
		idx, ok := findChildIndex(a, target)
		if !ok {
			return
		}
		v := a.Get(idx)
		val := c.projectForStorage(v, func(leaf sharedoc.Leaf) { arr.Set(idx, leaf) })
		arr.Set(idx, val)
	}
}

func findChildKey(m *sharedoc.SMap, target sharedoc.Container) (string, bool) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if c, ok := v.(sharedoc.Container); ok && c == target {
			return k, true
		}
	}
	return "", false
}

func findChildIndex(a *sharedoc.SArray, target sharedoc.Container) (int, bool) {
	for i := 0; i < a.Len(); i++ {
		if c, ok := a.Get(i).(sharedoc.Container); ok && c == target {
			return i, true
		}
	}
	return 0, false
}
