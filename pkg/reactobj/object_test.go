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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetEmitsOneOpWithPrevValue(t *testing.T) {
	o := NewReactiveObject()
	o.Set("a", 1)

	var got []Op
	o.Subscribe(func(ops []Op) { got = ops })
	o.Set("a", 2)

	require.Len(t, got, 1)
	require.Equal(t, OpSet, got[0].Kind)
	require.Equal(t, []string{"a"}, got[0].Path)
	require.Equal(t, 2, got[0].Value)
	require.Equal(t, 1, got[0].Prev)
	require.True(t, got[0].HadPrev)
}

func TestBatchCollapsesMultipleWritesIntoOneBurst(t *testing.T) {
	o := NewReactiveObject()

	var callCount int
	var lastOps []Op
	o.Subscribe(func(ops []Op) {
		callCount++
		lastOps = ops
	})

	o.Batch(func() {
		o.Set("a", 1)
		o.Set("b", 2)
		o.Delete("a")
	})

	require.Equal(t, 1, callCount)
	require.Len(t, lastOps, 3)
}

func TestDeleteMissingKeyIsNoOp(t *testing.T) {
	o := NewReactiveObject()
	var calls int
	o.Subscribe(func([]Op) { calls++ })
	o.Delete("missing")
	require.Equal(t, 0, calls)
}

func TestKeysPreserveInsertionOrder(t *testing.T) {
	o := NewReactiveObject()
	o.Set("z", 1)
	o.Set("a", 2)
	o.Set("m", 3)
	require.Equal(t, []string{"z", "a", "m"}, o.Keys())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	o := NewReactiveObject()
	var calls int
	unsubscribe := o.Subscribe(func([]Op) { calls++ })
	unsubscribe()
	o.Set("a", 1)
	require.Equal(t, 0, calls)
}

func TestRestoreLockedReinsertsOrRemovesWithoutEmittingOps(t *testing.T) {
	o := NewReactiveObject()
	o.Set("a", 1)

	var calls int
	o.Subscribe(func([]Op) { calls++ })

	o.RestoreLocked("a", true, "rolled-back")
	v, ok := o.Get("a")
	require.True(t, ok)
	require.Equal(t, "rolled-back", v)
	require.Equal(t, 0, calls)

	o.RestoreLocked("a", false, nil)
	_, ok = o.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, calls)
}
