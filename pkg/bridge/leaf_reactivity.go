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

import "github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"

// attachLeafReactivity subscribes to leaf's own internal mutation notifier
// (Insert/Delete on a TextLeaf, say) and runs reSet under the reentrancy
// lock whenever it fires. reSet is expected to re-assign the very same
// leaf reference onto whatever controller currently holds it: the
// assignment's value doesn't change, but going through the controller's
// normal Set/Set-at-index path is what lets downstream subscribers (e.g. a
// rendered view) observe that the leaf changed (spec.md §4.8). The
// reentrancy lock keeps attachMapSubscription/attachArraySubscription from
// mistaking this internal resync for a new application write destined for
// the Doc.
func (c *Context) attachLeafReactivity(leaf sharedoc.Leaf, reSet func()) {
	unobserve := leaf.Observe(func() {
		c.withReconcilingLock(reSet)
	})
	// A leaf's dynamic type (TextLeaf) also satisfies Container via its
	// embedded *SMap, even though the Leaf interface itself doesn't declare
	// Parent() — route through the same dispose-prior-on-replace bookkeeping
	// as map/array subscriptions when that holds, falling back to a plain
	// disposer otherwise.
	if container, ok := leaf.(sharedoc.Container); ok {
		c.registerSubscription(container, unobserve)
		return
	}
	c.registerDisposable(unobserve)
}
