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

// Package convert is the Converter and Guards: the plain-value <-> shared
// container mapping (PlainToShared, SharedToPlain, ValidateDeep) and the
// type predicates every other package in the bridge uses to tell a leaf
// from a container from a primitive.
package convert

import "github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"

// IsLeaf reports whether v is a sharedoc.Leaf. This check must run before
// IsSMap: TextLeaf embeds *SMap for storage, so it also satisfies the
// sharedoc.Container interface through promoted methods, but it must be
// classified as a leaf, never as a plain map.
func IsLeaf(v any) bool {
	_, ok := v.(sharedoc.Leaf)
	return ok
}

// IsSMap reports whether v is a non-leaf *sharedoc.SMap.
func IsSMap(v any) bool {
	if IsLeaf(v) {
		return false
	}
	_, ok := v.(*sharedoc.SMap)
	return ok
}

// IsSArray reports whether v is a *sharedoc.SArray.
func IsSArray(v any) bool {
	_, ok := v.(*sharedoc.SArray)
	return ok
}

// IsContainer reports whether v is any already-shared value: a Leaf, an
// SMap or an SArray. The Converter passes these through unchanged rather
// than re-wrapping them (spec.md §4.1 "already-shared passthrough").
func IsContainer(v any) bool {
	return IsLeaf(v) || IsSMap(v) || IsSArray(v)
}
