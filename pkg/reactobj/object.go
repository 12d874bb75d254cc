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

import "sync"

// ReactiveObject is a map-shaped Controller: the React-side mirror of an
// SMap (spec.md §3 "controller proxy").
type ReactiveObject struct {
	mu sync.Mutex

	values map[string]any
	order  []string

	subs    map[int]func([]Op)
	nextSub int

	batchDepth int
	pending    []Op
}

// NewReactiveObject creates an empty ReactiveObject.
func NewReactiveObject() *ReactiveObject {
	return &ReactiveObject{
		values: make(map[string]any),
		subs:   make(map[int]func([]Op)),
	}
}

func (o *ReactiveObject) Subscribe(fn func(ops []Op)) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Get returns the value at key.
func (o *ReactiveObject) Get(key string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the object's keys in insertion order.
func (o *ReactiveObject) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Len returns the number of keys.
func (o *ReactiveObject) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// Set assigns key to value as its own one-op burst.
func (o *ReactiveObject) Set(key string, value any) {
	o.Batch(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.setLocked(key, value)
	})
}

// Delete removes key as its own one-op burst. A missing key is a no-op.
func (o *ReactiveObject) Delete(key string) {
	o.Batch(func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.deleteLocked(key)
	})
}

// Batch runs fn, collecting every Set/Delete it performs into one burst
// that subscribers see as a single call — this is how a real proxy
// library's "sync" subscription variant observes an entire synchronous
// mutation (e.g. Object.assign of several keys) as one notification
// instead of one per field. fn runs without the object's lock held, so it
// may call Set/Delete (or a nested Batch) directly.
func (o *ReactiveObject) Batch(fn func()) {
	o.mu.Lock()
	o.batchDepth++
	o.mu.Unlock()
	fn()
	o.mu.Lock()
	o.batchDepth--
	var flush []Op
	if o.batchDepth == 0 && len(o.pending) > 0 {
		flush = o.pending
		o.pending = nil
	}
	subs := o.subsSnapshotLocked()
	o.mu.Unlock()

	if flush != nil {
		for _, fn := range subs {
			fn(flush)
		}
	}
}

func (o *ReactiveObject) subsSnapshotLocked() []func([]Op) {
	out := make([]func([]Op), 0, len(o.subs))
	for _, fn := range o.subs {
		out = append(out, fn)
	}
	return out
}

// setLocked must be called with o.mu held (Set takes it inside its Batch).
func (o *ReactiveObject) setLocked(key string, value any) {
	prev, had := o.values[key]
	if !had {
		o.order = append(o.order, key)
	}
	o.values[key] = value
	o.pending = append(o.pending, Op{Path: []string{key}, Kind: OpSet, Value: value, Prev: prev, HadPrev: had})
}

// deleteLocked must be called with o.mu held.
func (o *ReactiveObject) deleteLocked(key string) {
	prev, had := o.values[key]
	if !had {
		return
	}
	delete(o.values, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.pending = append(o.pending, Op{Path: []string{key}, Kind: OpDelete, Prev: prev, HadPrev: true})
}

// Snapshot returns the object's current keys (in order) and values, for use
// by a caller that wants to restore the whole object later via
// RestoreFullLocked (e.g. rolling back a burst rejected by validation).
func (o *ReactiveObject) Snapshot() (order []string, values map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order = append([]string(nil), o.order...)
	values = make(map[string]any, len(o.values))
	for k, v := range o.values {
		values[k] = v
	}
	return order, values
}

// RestoreFullLocked replaces the object's entire contents with order/values
// without recording ops (rollback path, spec.md §7).
func (o *ReactiveObject) RestoreFullLocked(order []string, values map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append([]string(nil), order...)
	o.values = make(map[string]any, len(values))
	for k, v := range values {
		o.values[k] = v
	}
}

// RestoreLocked resets key to prev (the bridge uses it to swap a stored
// plain snapshot for its controller after a read or a flush; whole-burst
// rollback goes through RestoreFullLocked). hadPrev false means the key
// should be removed entirely. Safe to call outside of Batch; it performs
// its own locking and does not record ops (the change is invisible to
// subscribers — it is the bridge, not the application, writing).
func (o *ReactiveObject) RestoreLocked(key string, hadPrev bool, prev any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hadPrev {
		if _, had := o.values[key]; !had {
			o.order = append(o.order, key)
		}
		o.values[key] = prev
		return
	}
	if _, had := o.values[key]; had {
		delete(o.values, key)
		for i, k := range o.order {
			if k == key {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}
