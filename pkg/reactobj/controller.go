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

// Package reactobj is the reactive plain-object model referenced by
// spec.md as "React". It is the repo's stand-in for the proxy library
// itself, which spec.md §1 lists as an out-of-scope external collaborator:
// the bridge depends on this package's contract (a proxied object/array
// that emits ops synchronously per mutation burst and supports post-burst
// subscribers), not on a specific production-grade proxy implementation.
package reactobj

// OpKind discriminates the two low-level mutation ops spec.md §1 defines:
// "set path value prev" and "delete path prev".
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one low-level mutation observed on a Controller. Path has length 1
// for a direct property/index write; nested writes are observed on the
// nested controller's own subscription instead (spec.md §4.4: "Only ops
// whose path length = 1 are considered").
type Op struct {
	Path    []string
	Kind    OpKind
	Value   any
	Prev    any
	HadPrev bool
}

// Controller is implemented by ReactiveObject and ReactiveArray: a proxied
// object/array with stable identity that emits a burst of Ops to its
// subscribers synchronously, once per Batch.
type Controller interface {
	// Subscribe registers fn to run once, synchronously, for every burst
	// of ops recorded by a Batch call. The returned func unsubscribes.
	Subscribe(fn func(ops []Op)) (unsubscribe func())
}
