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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agcty/valtio-yjs-sub001/pkg/reactobj"
)

func TestTopLevelOpsFiltersNestedPaths(t *testing.T) {
	ops := []reactobj.Op{
		{Path: []string{"a"}, Kind: reactobj.OpSet},
		{Path: []string{"a", "b"}, Kind: reactobj.OpSet},
	}
	got := topLevelOps(ops)
	require.Len(t, got, 1)
	require.Equal(t, []string{"a"}, got[0].Path)
}

func TestPlanMapOpsLaterOverridesEarlier(t *testing.T) {
	ops := []reactobj.Op{
		{Path: []string{"x"}, Kind: reactobj.OpSet, Value: 1},
		{Path: []string{"x"}, Kind: reactobj.OpDelete},
		{Path: []string{"y"}, Kind: reactobj.OpDelete},
		{Path: []string{"y"}, Kind: reactobj.OpSet, Value: 2},
	}
	sets, deletes := PlanMapOps(ops)
	require.Equal(t, map[string]any{"y": 2}, sets)
	require.Equal(t, map[string]struct{}{"x": {}}, deletes)
}

func TestPlanArrayOpsClassifiesSetDeleteReplace(t *testing.T) {
	ops := []reactobj.Op{
		{Path: []string{"0"}, Kind: reactobj.OpDelete},
		{Path: []string{"0"}, Kind: reactobj.OpSet, Value: "replaced"},
		{Path: []string{"1"}, Kind: reactobj.OpDelete},
		{Path: []string{"3"}, Kind: reactobj.OpSet, Value: "appended"},
	}
	sets, replaces, deletes := PlanArrayOps(ops, 3)
	require.Equal(t, "appended", sets[3])
	require.Equal(t, "replaced", replaces[0])
	_, deleted := deletes[1]
	require.True(t, deleted)
}

func TestPlanArrayOpsSetWithinBaselineBecomesReplace(t *testing.T) {
	ops := []reactobj.Op{
		{Path: []string{"1"}, Kind: reactobj.OpSet, Value: "in-place"},
	}
	sets, replaces, deletes := PlanArrayOps(ops, 3)
	require.Empty(t, sets)
	require.Empty(t, deletes)
	require.Equal(t, "in-place", replaces[1])
}
