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

func TestCompareOrdering(t *testing.T) {
	a := VectorClock{"x": 2, "y": 1}
	b := VectorClock{"x": 1, "y": 1}
	require.Equal(t, After, Compare(a, b))
	require.Equal(t, Before, Compare(b, a))
	require.Equal(t, Equal, Compare(a, a))

	c := VectorClock{"x": 2, "y": 0, "z": 1}
	require.Equal(t, Concurrent, Compare(a, c))
}

func TestMergeTakesComponentwiseMax(t *testing.T) {
	a := VectorClock{"x": 2, "y": 1}
	b := VectorClock{"x": 1, "y": 3, "z": 5}
	merged := Merge(a, b)
	require.Equal(t, VectorClock{"x": 2, "y": 3, "z": 5}, merged)
}

func TestStampWinsCausalOrderBeatsTimestamp(t *testing.T) {
	earlierCausally := Stamp{Clock: VectorClock{"a": 1}, Timestamp: 100, SiteID: "a"}
	laterCausally := Stamp{Clock: VectorClock{"a": 2}, Timestamp: 50, SiteID: "a"}
	require.True(t, laterCausally.Wins(earlierCausally))
	require.False(t, earlierCausally.Wins(laterCausally))
}

func TestStampWinsTiebreaksOnTimestampThenSiteID(t *testing.T) {
	s1 := Stamp{Clock: VectorClock{"a": 1}, Timestamp: 100, SiteID: "a"}
	s2 := Stamp{Clock: VectorClock{"b": 1}, Timestamp: 100, SiteID: "b"}
	require.True(t, s2.Wins(s1))
	require.False(t, s1.Wins(s2))

	s3 := Stamp{Clock: VectorClock{"a": 1}, Timestamp: 200, SiteID: "a"}
	require.True(t, s3.Wins(s1))
}

func TestStampMergedDominatesBothClocks(t *testing.T) {
	s1 := Stamp{Clock: VectorClock{"a": 1}, Timestamp: 100, SiteID: "a"}
	s2 := Stamp{Clock: VectorClock{"b": 3}, Timestamp: 50, SiteID: "b"}
	merged := s1.Merged(s2)
	require.Equal(t, After, Compare(merged.Clock, s1.Clock))
	require.Equal(t, After, Compare(merged.Clock, s2.Clock))
	require.Equal(t, s1.Timestamp, merged.Timestamp)
}
