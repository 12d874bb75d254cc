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
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/agcty/valtio-yjs-sub001/pkg/convert"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

// arrayOpKind discriminates the three shapes a pending array write can take
// once the Planner has classified it (spec.md §4.4/§4.5).
type arrayOpKind int

const (
	arraySetOp arrayOpKind = iota
	arrayReplaceOp
	arrayDeleteOp
)

// pendingMapSet is a coalesced React->Doc map write waiting for flush. raw
// is the plain value as written by application code; conversion to a shared
// value is deferred to flush time (spec.md §4.5's "late conversion") so a
// key overwritten several times before the next tick only pays the
// PlainToShared cost once, for whatever value survives.
type pendingMapSet struct {
	raw   any
	after func(shared any)
}

// pendingArrayOp is the array analogue of pendingMapSet.
type pendingArrayOp struct {
	kind  arrayOpKind
	raw   any
	after func(shared any)
}

// scheduler is the Write Scheduler (spec.md §4.5): it coalesces every
// React-side mutation observed during one JS-microtask-equivalent tick into
// pending tables, then applies them inside a single Doc transaction. A
// clock.Clock stands in for the JS event loop's microtask queue — AfterFunc
// with a zero delay runs flush on the next tick of whatever clock the
// caller injected, real or fake.
type scheduler struct {
	mu sync.Mutex

	ctx    *Context
	clk    clock.Clock
	logger logr.Logger

	mapDeletes map[*sharedoc.SMap]map[string]struct{}
	mapSets    map[*sharedoc.SMap]map[string]pendingMapSet
	arrayOps   map[*sharedoc.SArray]map[int]pendingArrayOp

	scheduled bool
}

func newScheduler(ctx *Context, clk clock.Clock, logger logr.Logger) *scheduler {
	return &scheduler{ctx: ctx, clk: clk, logger: logger}
}

func (s *scheduler) scheduleFlush() {
	s.mu.Lock()
	if s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = true
	s.mu.Unlock()
	s.clk.AfterFunc(0, s.flush)
}

func (s *scheduler) enqueueMapDelete(m *sharedoc.SMap, key string) {
	s.mu.Lock()
	if s.mapDeletes == nil {
		s.mapDeletes = map[*sharedoc.SMap]map[string]struct{}{}
	}
	if s.mapDeletes[m] == nil {
		s.mapDeletes[m] = map[string]struct{}{}
	}
	s.mapDeletes[m][key] = struct{}{}
	if s.mapSets[m] != nil {
		delete(s.mapSets[m], key)
	}
	s.mu.Unlock()
	s.scheduleFlush()
}

func (s *scheduler) enqueueMapSet(m *sharedoc.SMap, key string, raw any, after func(shared any)) {
	s.mu.Lock()
	if s.mapSets == nil {
		s.mapSets = map[*sharedoc.SMap]map[string]pendingMapSet{}
	}
	if s.mapSets[m] == nil {
		s.mapSets[m] = map[string]pendingMapSet{}
	}
	s.mapSets[m][key] = pendingMapSet{raw: raw, after: after}
	if s.mapDeletes[m] != nil {
		delete(s.mapDeletes[m], key)
	}
	s.mu.Unlock()
	s.scheduleFlush()
}

func (s *scheduler) enqueueArrayDelete(a *sharedoc.SArray, idx int) {
	s.mu.Lock()
	s.ensureArrayLocked(a)
	s.arrayOps[a][idx] = pendingArrayOp{kind: arrayDeleteOp}
	s.mu.Unlock()
	s.scheduleFlush()
}

func (s *scheduler) enqueueArraySet(a *sharedoc.SArray, idx int, raw any, after func(shared any)) {
	s.mu.Lock()
	s.ensureArrayLocked(a)
	s.arrayOps[a][idx] = pendingArrayOp{kind: arraySetOp, raw: raw, after: after}
	s.mu.Unlock()
	s.scheduleFlush()
}

func (s *scheduler) enqueueArrayReplace(a *sharedoc.SArray, idx int, raw any, after func(shared any)) {
	s.mu.Lock()
	s.ensureArrayLocked(a)
	s.arrayOps[a][idx] = pendingArrayOp{kind: arrayReplaceOp, raw: raw, after: after}
	s.mu.Unlock()
	s.scheduleFlush()
}

func (s *scheduler) ensureArrayLocked(a *sharedoc.SArray) {
	if s.arrayOps == nil {
		s.arrayOps = map[*sharedoc.SArray]map[int]pendingArrayOp{}
	}
	if s.arrayOps[a] == nil {
		s.arrayOps[a] = map[int]pendingArrayOp{}
	}
}

// flush applies every pending write in one Doc transaction: map deletes,
// then map sets, then array deletes (descending, so higher indices don't
// shift lower ones out from under the loop), then array sets/replaces
// (ascending). Post-integration "after" callbacks (controller upgrades)
// run once the transaction has committed, under the reentrancy lock, with
// each callback isolated by panic recovery (spec.md §4.5's
// "PostIntegrationFailure: logged, swallowed" — one bad upgrade must not
// corrupt the others).
func (s *scheduler) flush() {
	s.mu.Lock()
	mapDeletes := s.mapDeletes
	mapSets := s.mapSets
	arrayOps := s.arrayOps
	s.mapDeletes = nil
	s.mapSets = nil
	s.arrayOps = nil
	s.scheduled = false
	s.mu.Unlock()

	if len(mapDeletes) == 0 && len(mapSets) == 0 && len(arrayOps) == 0 {
		return
	}

	var after []func()

	s.ctx.doc.Transact(ORIGIN, func(tx *sharedoc.Tx) {
		for m, keys := range mapDeletes {
			for key := range keys {
				tx.DeleteMapKey(m, key)
			}
		}
		for m, sets := range mapSets {
			for key, pending := range sets {
				shared, err := s.convertForInsert(pending.raw)
				if err != nil {
					s.logger.Error(err, "bridge: dropping map write that failed late conversion", "key", key)
					continue
				}
				tx.SetMapKey(m, key, shared)
				if pending.after != nil {
					cb, v := pending.after, shared
					after = append(after, func() { cb(v) })
				}
			}
		}
		for arr, ops := range arrayOps {
			s.flushArray(tx, arr, ops, &after)
		}
	})

	if len(after) == 0 {
		return
	}
	s.ctx.withReconcilingLock(func() {
		for _, cb := range after {
			s.runAfter(cb)
		}
	})
}

func (s *scheduler) flushArray(tx *sharedoc.Tx, arr *sharedoc.SArray, ops map[int]pendingArrayOp, after *[]func()) {
	indices := make([]int, 0, len(ops))
	for idx := range ops {
		indices = append(indices, idx)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(indices)))
	for _, idx := range indices {
		if ops[idx].kind == arrayDeleteOp && idx < arr.Len() {
			tx.ArrayDeleteAt(arr, idx)
		}
	}

	sort.Ints(indices)
	for _, idx := range indices {
		op := ops[idx]
		if op.kind == arrayDeleteOp {
			continue
		}
		shared, err := s.convertForInsert(op.raw)
		if err != nil {
			s.logger.Error(err, "bridge: dropping array write that failed late conversion", "index", idx)
			continue
		}
		switch op.kind {
		case arrayReplaceOp:
			if idx < arr.Len() {
				tx.ArrayDeleteAt(arr, idx)
			}
			tx.ArrayInsertAt(arr, idx, shared)
		case arraySetOp:
			for arr.Len() < idx {
				tx.ArrayInsertAt(arr, arr.Len(), nil)
			}
			tx.ArrayInsertAt(arr, arr.Len(), shared)
		}
		if op.after != nil {
			cb, v := op.after, shared
			*after = append(*after, func() { cb(v) })
		}
	}
}

// convertForInsert converts a pending write's raw plain value to its shared
// form, cloning it first if raw is itself a shared container of this Doc
// with no parent link (spec.md §4.5d). Removing a container from its parent
// does not clear that link (see sharedoc.SMap.Detached), so the clone
// applies only to a container that was never inserted anywhere; a container
// removed earlier in the same burst is re-inserted as itself.
func (s *scheduler) convertForInsert(raw any) (any, error) {
	shared, err := convert.PlainToShared(s.ctx.doc, raw)
	if err != nil {
		return nil, err
	}
	if c, ok := raw.(sharedoc.Container); ok && c.Doc() == s.ctx.doc && c.Parent() == nil {
		return sharedoc.CloneValue(s.ctx.doc, shared), nil
	}
	return shared, nil
}

func (s *scheduler) runAfter(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("%v", r), "bridge: post-integration callback panicked")
		}
	}()
	cb()
}
