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
	"strconv"

	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
)

// topLevelOps filters ops down to those with path length 1: nested writes
// arrive through the nested controller's own subscription instead (spec.md
// §4.4).
func topLevelOps(ops []reactobj.Op) []reactobj.Op {
	out := make([]reactobj.Op, 0, len(ops))
	for _, op := range ops {
		if len(op.Path) == 1 {
			out = append(out, op)
		}
	}
	return out
}

// PlanMapOps categorizes a burst of top-level ops into sets and deletes by
// key. Later ops override earlier ones for the same key within the burst: a
// set after a delete yields a set, a delete after a set yields a delete.
func PlanMapOps(ops []reactobj.Op) (sets map[string]any, deletes map[string]struct{}) {
	sets = map[string]any{}
	deletes = map[string]struct{}{}
	for _, op := range ops {
		key := op.Path[0]
		switch op.Kind {
		case reactobj.OpSet:
			delete(deletes, key)
			sets[key] = op.Value
		case reactobj.OpDelete:
			delete(sets, key)
			deletes[key] = struct{}{}
		}
	}
	return sets, deletes
}

// PlanArrayOps categorizes a burst of top-level ops against baseline, the
// Doc-side array length (spec.md §4.4's "planning baseline"), into disjoint
// sets, deletes and replaces keyed by index:
//
//   - a delete and a set at the same index within the burst -> replace
//   - a pure set at an index already within baseline -> replace
//   - a pure set at or beyond baseline -> set (append, or gap-filled append)
//   - a pure delete -> delete
func PlanArrayOps(ops []reactobj.Op, baseline int) (sets, replaces map[int]any, deletes map[int]struct{}) {
	sets = map[int]any{}
	replaces = map[int]any{}
	deletes = map[int]struct{}{}

	type perIndex struct {
		hasDelete bool
		hasSet    bool
		value     any
	}
	byIndex := map[int]*perIndex{}
	var order []int
	for _, op := range ops {
		idx, err := strconv.Atoi(op.Path[0])
		if err != nil {
			continue
		}
		e, ok := byIndex[idx]
		if !ok {
			e = &perIndex{}
			byIndex[idx] = e
			order = append(order, idx)
		}
		switch op.Kind {
		case reactobj.OpDelete:
			e.hasDelete = true
		case reactobj.OpSet:
			e.hasSet = true
			e.value = op.Value
		}
	}

	for _, idx := range order {
		e := byIndex[idx]
		switch {
		case e.hasDelete && e.hasSet:
			replaces[idx] = e.value
		case e.hasSet:
			if idx < baseline {
				replaces[idx] = e.value
			} else {
				sets[idx] = e.value
			}
		case e.hasDelete:
			deletes[idx] = struct{}{}
		}
	}
	return sets, replaces, deletes
}
