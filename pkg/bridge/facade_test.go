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
	"math"
	"testing"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
	"github.com/agcty/valtio-yjs-sub001/pkg/sharedoc"
)

func newTestProxy(t *testing.T) (*Context, *reactobj.ReactiveObject, *testingclock.FakeClock) {
	t.Helper()
	doc := sharedoc.NewDoc("site-a")
	fc := testingclock.NewFakeClock(time.Now())
	ctx, root, dispose := CreateProxy(doc, Options{Clock: fc})
	t.Cleanup(dispose)
	return ctx, root, fc
}

func TestBootstrapSeedsEmptyRootOnce(t *testing.T) {
	ctx, root, _ := newTestProxy(t)
	initial := orderedmap.NewOrderedMap[string, any]()
	initial.Set("count", float64(0))
	initial.Set("label", "todo")

	require.NoError(t, ctx.Bootstrap(root, initial))

	v, ok := ctx.Get(root, "count")
	require.True(t, ok)
	require.Equal(t, float64(0), v)

	err := ctx.Bootstrap(root, initial)
	require.Error(t, err)
	require.ErrorContains(t, err, "bootstrap conflict")
}

func TestSetKeyFlushesToDocOnNextTick(t *testing.T) {
	ctx, root, fc := newTestProxy(t)

	require.NoError(t, ctx.SetKey(root, "name", "ada"))

	rootMap := ctx.doc.GetMap("root")
	_, ok := rootMap.Get("name")
	require.False(t, ok, "write should not be visible in the Doc before flush")

	fc.Step(time.Millisecond)

	v, ok := rootMap.Get("name")
	require.True(t, ok)
	require.Equal(t, "ada", v)
}

func TestNestedObjectMaterializesOnRead(t *testing.T) {
	ctx, root, fc := newTestProxy(t)

	child := orderedmap.NewOrderedMap[string, any]()
	child.Set("city", "berlin")
	require.NoError(t, ctx.SetKey(root, "address", child))
	fc.Step(time.Millisecond)

	raw, ok := root.Get("address")
	require.True(t, ok)
	_, isPlainSnapshot := raw.(*orderedmap.OrderedMap[string, any])
	require.True(t, isPlainSnapshot, "an un-read container child stays a plain snapshot")

	v, ok := ctx.Get(root, "address")
	require.True(t, ok)
	obj, isController := v.(*reactobj.ReactiveObject)
	require.True(t, isController, "Get upgrades a container child to its own controller")

	city, ok := ctx.Get(obj, "city")
	require.True(t, ok)
	require.Equal(t, "berlin", city)

	raw2, ok := root.Get("address")
	require.True(t, ok)
	_, stillPlain := raw2.(*orderedmap.OrderedMap[string, any])
	require.False(t, stillPlain, "after the read, root's stored entry is upgraded too")
}

func TestArrayPushAndSpliceReplace(t *testing.T) {
	ctx, root, fc := newTestProxy(t)

	require.NoError(t, ctx.SetKey(root, "items", []any{}))
	fc.Step(time.Millisecond)

	sharedArr, ok := ctx.doc.GetMap("root").Get("items")
	require.True(t, ok)
	arrCtrl := ctx.Materialize(sharedArr.(*sharedoc.SArray)).(*reactobj.ReactiveArray)

	require.NoError(t, ctx.Push(arrCtrl, "first"))
	fc.Step(time.Millisecond)
	require.NoError(t, ctx.Push(arrCtrl, "second"))
	fc.Step(time.Millisecond)

	a := sharedArr.(*sharedoc.SArray)
	require.Equal(t, []any{"first", "second"}, a.Snapshot())

	_, err := ctx.Splice(arrCtrl, 0, 1, "replaced")
	require.NoError(t, err)
	fc.Step(time.Millisecond)

	require.Equal(t, []any{"replaced", "second"}, a.Snapshot())
}

func TestSetKeyRejectsUnsupportedValueAndRollsBack(t *testing.T) {
	ctx, root, _ := newTestProxy(t)
	require.NoError(t, ctx.SetKey(root, "existing", "value"))

	err := ctx.SetKey(root, "bad", math.NaN())
	require.Error(t, err)

	_, ok := root.Get("bad")
	require.False(t, ok, "rejected key must not remain on the controller")
	v2, ok := root.Get("existing")
	require.True(t, ok)
	require.Equal(t, "value", v2)
}

func TestDisposeStopsBothDirections(t *testing.T) {
	ctx, root, fc := newTestProxy(t)
	ctx.Dispose()

	require.NoError(t, ctx.SetKey(root, "after-dispose", "x"))
	fc.Step(time.Millisecond)

	rootMap := ctx.doc.GetMap("root")
	_, ok := rootMap.Get("after-dispose")
	require.False(t, ok, "a disposed bridge must not propagate further writes")

	ctx.doc.Transact(sharedoc.Origin("remote-peer"), func(tx *sharedoc.Tx) {
		tx.SetMapKey(rootMap, "fromRemote", "hello")
	})
	_, ok = root.Get("fromRemote")
	require.False(t, ok, "a disposed bridge must not reconcile Doc changes into the controller")
}

func TestRemoteMutationReconcilesIntoRoot(t *testing.T) {
	ctx, root, _ := newTestProxy(t)

	rootMap := ctx.doc.GetMap("root")
	ctx.doc.Transact(sharedoc.Origin("remote-peer"), func(tx *sharedoc.Tx) {
		tx.SetMapKey(rootMap, "fromRemote", "hello")
	})

	v, ok := root.Get("fromRemote")
	require.True(t, ok)
	require.Equal(t, "hello", v)
}
