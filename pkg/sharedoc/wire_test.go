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

func TestEncodeApplyUpdateRoundTripsMap(t *testing.T) {
	src := NewDoc("site-a")
	m := src.GetMap("root")
	src.Transact("o", func(tx *Tx) {
		tx.SetMapKey(m, "name", "alice")
		tx.SetMapKey(m, "age", float64(30))
	})

	blob, err := src.EncodeStateAsUpdate("root")
	require.NoError(t, err)

	dst := NewDoc("site-b")
	err = dst.ApplyUpdate("remote", "root", blob)
	require.NoError(t, err)

	got := dst.GetMap("root")
	name, ok := got.Get("name")
	require.True(t, ok)
	require.Equal(t, "alice", name)
	age, ok := got.Get("age")
	require.True(t, ok)
	require.Equal(t, float64(30), age)
}

func TestApplyUpdatePreservesRemoteOnlyKeys(t *testing.T) {
	src := NewDoc("site-a")
	srcRoot := src.GetMap("root")
	src.Transact("o", func(tx *Tx) {
		tx.SetMapKey(srcRoot, "shared", "from-remote")
		tx.SetMapKey(srcRoot, "remoteOnly", "present")
	})
	blob, err := src.EncodeStateAsUpdate("root")
	require.NoError(t, err)

	dst := NewDoc("site-b")
	dstRoot := dst.GetMap("root")
	dst.Transact("local", func(tx *Tx) {
		tx.SetMapKey(dstRoot, "localOnly", "kept")
	})

	require.NoError(t, dst.ApplyUpdate("remote", "root", blob))

	_, ok := dstRoot.Get("localOnly")
	require.True(t, ok, "local-only key must survive a merge")
	v, ok := dstRoot.Get("remoteOnly")
	require.True(t, ok)
	require.Equal(t, "present", v)
}

func TestEncodeApplyUpdateRoundTripsRootArray(t *testing.T) {
	src := NewDoc("site-a")
	arr := src.GetArray("root")
	src.Transact("o", func(tx *Tx) {
		tx.ArrayInsertAt(arr, 0, "x")
		tx.ArrayInsertAt(arr, 1, "y")
	})

	blob, err := src.EncodeStateAsUpdate("root")
	require.NoError(t, err)

	dst := NewDoc("site-b")
	require.NoError(t, dst.ApplyUpdate("remote", "root", blob))
	require.Equal(t, []any{"x", "y"}, dst.GetArray("root").Snapshot())
}

func TestApplyUpdateMergesNestedMapPreservingIdentityAndLocalKeys(t *testing.T) {
	dst := NewDoc("site-a")
	dstRoot := dst.GetMap("root")
	dstChild := NewDetachedSMap(dst)
	dst.Transact("local", func(tx *Tx) {
		tx.SetMapKey(dstRoot, "group", dstChild)
		tx.SetMapKey(dstChild, "shared", "local-value")
		tx.SetMapKey(dstChild, "localOnly", "kept")
	})

	src := NewDoc("site-z")
	srcRoot := src.GetMap("root")
	srcChild := NewDetachedSMap(src)
	src.Transact("o", func(tx *Tx) {
		tx.SetMapKey(srcRoot, "group", srcChild)
		tx.SetMapKey(srcChild, "shared", "remote-value")
	})
	blob, err := src.EncodeStateAsUpdate("root")
	require.NoError(t, err)

	require.NoError(t, dst.ApplyUpdate("remote", "root", blob))

	groupAfter, ok := dstRoot.Get("group")
	require.True(t, ok)
	require.Same(t, dstChild, groupAfter.(*SMap), "ApplyUpdate must merge into the existing nested map, not replace it")

	shared, _ := dstChild.Get("shared")
	require.Equal(t, "remote-value", shared)
	localOnly, ok := dstChild.Get("localOnly")
	require.True(t, ok, "a local-only key nested below a merged key must survive ApplyUpdate")
	require.Equal(t, "kept", localOnly)
}

func TestCloneValueProducesIndependentDetachedTree(t *testing.T) {
	d := NewDoc("site-a")
	m := d.GetMap("root")
	var child *SMap
	d.Transact("o", func(tx *Tx) {
		child = NewDetachedSMap(d)
		tx.SetMapKey(m, "child", child)
		tx.SetMapKey(child, "k", "v")
	})

	clone := CloneValue(d, m).(*SMap)
	require.NotSame(t, m, clone)
	require.True(t, clone.Detached())

	cloneChildAny, ok := clone.Get("child")
	require.True(t, ok)
	cloneChild := cloneChildAny.(*SMap)
	require.NotSame(t, child, cloneChild)
	v, _ := cloneChild.Get("k")
	require.Equal(t, "v", v)
}
