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

// Materialize returns the controller backing shared, building one and
// registering its identity (spec.md §3 invariant 1) the first time shared
// is seen. Materialization is shallow: a map or array child is stored on
// the new controller as a plain snapshot (convert.SharedToPlain) rather
// than recursively materialized, and only gets its own controller on first
// read, via Get/GetIndex (spec.md §4.6 "lazy materialization on read" — Go
// has no property-getter trap to hang this off of, so it is an explicit
// accessor instead of an implicit one).
func (c *Context) Materialize(shared sharedoc.Container) reactobj.Controller {
	if ctrl, ok := c.controllerFor(shared); ok {
		return ctrl
	}
	switch s := shared.(type) {
	case *sharedoc.SMap:
		return c.materializeMap(s)
	case *sharedoc.SArray:
		return c.materializeArray(s)
	default:
		panic("bridge: Materialize called on a value that is neither an SMap nor an SArray")
	}
}

func (c *Context) materializeMap(m *sharedoc.SMap) *reactobj.ReactiveObject {
	obj := reactobj.NewReactiveObject()
	c.registerIdentity(m, obj)
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		key := key
		obj.Set(key, c.projectForStorage(v, func(leaf sharedoc.Leaf) { obj.Set(key, leaf) }))
	}
	c.attachMapSubscription(m, obj)
	return obj
}

func (c *Context) materializeArray(a *sharedoc.SArray) *reactobj.ReactiveArray {
	arr := reactobj.NewReactiveArray()
	c.registerIdentity(a, arr)
	for idx, v := range a.Snapshot() {
		idx := idx
		arr.Push(c.projectForStorage(v, func(leaf sharedoc.Leaf) { arr.Set(idx, leaf) }))
	}
	c.attachArraySubscription(a, arr)
	return arr
}

// projectForStorage is what a controller stores for one shared child v: a
// leaf passes through as itself with its reactivity wired in immediately
// (spec.md §4.8 — leaves are opaque but not lazy, unlike containers),
// resync being the call the controller should make, under the reentrancy
// lock, whenever the leaf mutates internally so downstream readers observe
// the change. A map/array child is stored as a plain snapshot pending
// upgrade on read; anything else passes through unchanged.
func (c *Context) projectForStorage(v any, resync func(leaf sharedoc.Leaf)) any {
	if leaf, ok := v.(sharedoc.Leaf); ok {
		c.attachLeafReactivity(leaf, func() { resync(leaf) })
		return leaf
	}
	if convert.IsContainer(v) {
		return convert.SharedToPlain(v)
	}
	return v
}

// upgradeChildIfNeeded returns v as it should be handed to a reader: a leaf
// or primitive unchanged, a map/array container materialized (or its
// already-materialized controller reused).
func (c *Context) upgradeChildIfNeeded(v any) any {
	if convert.IsLeaf(v) {
		return v
	}
	container, ok := v.(sharedoc.Container)
	if !ok {
		return v
	}
	return c.Materialize(container)
}

// Get reads key from the SMap backing obj (the Doc-side value, so a write
// still waiting for flush is not visible yet), upgrading a container child
// to its own live controller and storing that controller on obj in place
// (without emitting an Op — this is a read, not a mutation the application
// performed).
func (c *Context) Get(obj *reactobj.ReactiveObject, key string) (any, bool) {
	shared, ok := c.sharedFor(obj)
	if !ok {
		return nil, false
	}
	m, ok := shared.(*sharedoc.SMap)
	if !ok {
		return nil, false
	}
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	upgraded := c.upgradeChildIfNeeded(v)
	if convert.IsContainer(v) && !convert.IsLeaf(v) {
		obj.RestoreLocked(key, true, upgraded)
	}
	return upgraded, true
}

// GetIndex is Get's array counterpart.
func (c *Context) GetIndex(arr *reactobj.ReactiveArray, idx int) (any, bool) {
	shared, ok := c.sharedFor(arr)
	if !ok {
		return nil, false
	}
	a, ok := shared.(*sharedoc.SArray)
	if !ok {
		return nil, false
	}
	if idx < 0 || idx >= a.Len() {
		return nil, false
	}
	v := a.Get(idx)
	upgraded := c.upgradeChildIfNeeded(v)
	if convert.IsContainer(v) && !convert.IsLeaf(v) {
		snap := arr.Snapshot()
		if idx < len(snap) {
			snap[idx] = upgraded
			arr.RestoreSnapshotLocked(snap)
		}
	}
	return upgraded, true
}
