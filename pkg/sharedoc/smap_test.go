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

package sharedoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetMapKeyPreservesInsertionOrder(t *testing.T) {
	d := NewDoc("site-a")
	m := d.GetMap("root")

	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(m, "z", 1)
		tx.SetMapKey(m, "a", 2)
		tx.SetMapKey(m, "m", 3)
	})

	require.Equal(t, []string{"z", "a", "m"}, m.Keys())
}

func TestSetMapKeyOverwriteKeepsPosition(t *testing.T) {
	d := NewDoc("site-a")
	m := d.GetMap("root")

	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(m, "a", 1)
		tx.SetMapKey(m, "b", 2)
		tx.SetMapKey(m, "a", 99)
	})

	require.Equal(t, []string{"a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 99, v)
}

func TestDeleteMapKeyRemovesKeyAndIsNoOpWhenMissing(t *testing.T) {
	d := NewDoc("site-a")
	m := d.GetMap("root")

	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(m, "a", 1)
		tx.DeleteMapKey(m, "a")
		tx.DeleteMapKey(m, "a") // no-op
	})

	require.False(t, m.Has("a"))
	require.Equal(t, 0, m.Len())
}

func TestSetMapKeyAttachesContainerParent(t *testing.T) {
	d := NewDoc("site-a")
	m := d.GetMap("root")
	child := NewDetachedSMap(d)
	require.True(t, child.Detached())

	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(m, "child", child)
	})

	require.False(t, child.Detached())
	require.Same(t, Container(m), child.Parent())
}

func TestMergeFromLastWriterWins(t *testing.T) {
	d := NewDoc("site-a")
	local := d.GetMap("root")
	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(local, "a", "local-old")
	})

	remoteDoc := NewDoc("site-b")
	remote := remoteDoc.GetMap("remote-root")
	remoteDoc.Transact("o", func(tx *Tx) {
		tx.SetMapKey(remote, "a", "remote-new")
		tx.SetMapKey(remote, "b", "remote-only")
	})

	changed := local.mergeFrom(remote)
	require.Len(t, changed, 2)
	v, _ := local.Get("a")
	require.Equal(t, "remote-new", v)
	v, _ = local.Get("b")
	require.Equal(t, "remote-only", v)
}

func TestMergeFromMergesNestedMapInPlacePreservingLocalOnlyKeys(t *testing.T) {
	d := NewDoc("site-a")
	local := d.GetMap("root")
	localChild := NewDetachedSMap(d)
	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(local, "child", localChild)
		tx.SetMapKey(localChild, "x", "local-x")
		tx.SetMapKey(localChild, "keepme", "only-local")
	})

	remoteDoc := NewDoc("site-b")
	remote := remoteDoc.GetMap("remote-root")
	remoteChild := NewDetachedSMap(remoteDoc)
	remoteDoc.Transact("o", func(tx *Tx) {
		tx.SetMapKey(remote, "child", remoteChild)
		tx.SetMapKey(remoteChild, "x", "remote-x")
	})

	changed := local.mergeFrom(remote)
	require.Len(t, changed, 1)

	childAfter, ok := local.Get("child")
	require.True(t, ok)
	require.Same(t, localChild, childAfter.(*SMap), "merging a nested map key must keep the existing container's identity")

	x, _ := localChild.Get("x")
	require.Equal(t, "remote-x", x)
	keep, ok := localChild.Get("keepme")
	require.True(t, ok, "a local-only key nested below a merged key must survive the merge")
	require.Equal(t, "only-local", keep)
}

func TestMergeFromMergesNestedArrayInPlacePreservingIdentity(t *testing.T) {
	d := NewDoc("site-a")
	local := d.GetMap("root")
	localChild := NewDetachedSArray(d)
	d.Transact("o", func(tx *Tx) {
		tx.SetMapKey(local, "items", localChild)
		tx.ArrayInsertAt(localChild, 0, "local-0")
	})

	remoteDoc := NewDoc("site-b")
	remote := remoteDoc.GetMap("remote-root")
	remoteChild := NewDetachedSArray(remoteDoc)
	remoteDoc.Transact("o", func(tx *Tx) {
		tx.SetMapKey(remote, "items", remoteChild)
		tx.ArrayInsertAt(remoteChild, 0, "remote-0")
	})

	changed := local.mergeFrom(remote)
	require.Len(t, changed, 1)

	itemsAfter, ok := local.Get("items")
	require.True(t, ok)
	require.Same(t, localChild, itemsAfter.(*SArray), "merging a nested array key must keep the existing container's identity")
	require.Equal(t, []any{"remote-0"}, localChild.Snapshot())
}

func TestRequireSameDocPanicsOnForeignContainer(t *testing.T) {
	d1 := NewDoc("site-a")
	d2 := NewDoc("site-b")
	foreign := NewDetachedSMap(d2)

	require.Panics(t, func() {
		d1.Transact("o", func(tx *Tx) {
			tx.SetMapKey(foreign, "a", 1)
		})
	})
}
