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

// Package sharedoc is the CRDT document model referenced by spec.md as
// "Doc". It is the repo's stand-in for the CRDT library itself, which
// spec.md §1 lists as an out-of-scope external collaborator: the bridge
// depends on this package's contract (SMap/SArray/Leaf, transactions,
// deep events), not on a specific production-grade CRDT engine.
package sharedoc

// VectorClock tracks one logical counter per site, the standard way to
// order concurrent writes across replicas without a shared physical clock.
type VectorClock map[string]uint64

// Ordering is the result of comparing two VectorClocks.
type Ordering int

const (
	Equal Ordering = iota
	Before
	After
	Concurrent
)

// Compare orders a relative to b.
func Compare(a, b VectorClock) Ordering {
	aGreater, bGreater := false, false
	for site, av := range a {
		if bv := b[site]; av > bv {
			aGreater = true
		} else if av < bv {
			bGreater = true
		}
	}
	for site, bv := range b {
		if _, ok := a[site]; !ok && bv > 0 {
			bGreater = true
		}
	}
	switch {
	case aGreater && bGreater:
		return Concurrent
	case aGreater:
		return After
	case bGreater:
		return Before
	default:
		return Equal
	}
}

// Merge returns the component-wise max of a and b.
func Merge(a, b VectorClock) VectorClock {
	out := Clone(a)
	for site, bv := range b {
		if av := out[site]; bv > av {
			out[site] = bv
		}
	}
	return out
}

// Clone deep-copies a VectorClock.
func Clone(a VectorClock) VectorClock {
	out := make(VectorClock, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Stamp tags a write with enough information to resolve concurrent
// conflicts deterministically: the vector clock for causal ordering, a
// wall-clock timestamp and site ID as the tie-breaker when two writes are
// truly concurrent. Mirrors the conflict-resolution shape used elsewhere
// in the retrieval corpus for distributed document merges.
type Stamp struct {
	Clock     VectorClock
	Timestamp int64
	SiteID    string
}

// Wins reports whether s should be kept over o when both apply to the same
// logical slot (e.g. the same SMap key). Ties are broken first by
// timestamp, then by site ID, so the result is deterministic on every
// replica regardless of arrival order.
func (s Stamp) Wins(o Stamp) bool {
	switch Compare(s.Clock, o.Clock) {
	case After:
		return true
	case Before:
		return false
	default: // Equal or Concurrent
		if s.Timestamp != o.Timestamp {
			return s.Timestamp > o.Timestamp
		}
		return s.SiteID >= o.SiteID
	}
}

// Merged returns a stamp whose clock dominates both s and o, keeping
// whichever site/timestamp pair won per Wins.
func (s Stamp) Merged(o Stamp) Stamp {
	winner := o
	if s.Wins(o) {
		winner = s
	}
	return Stamp{
		Clock:     Merge(s.Clock, o.Clock),
		Timestamp: winner.Timestamp,
		SiteID:    winner.SiteID,
	}
}
