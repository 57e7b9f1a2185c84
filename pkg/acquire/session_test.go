/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package acquire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

func samplesOf(values ...uint32) []layers.Sample {
	samples := make([]layers.Sample, len(values))
	for i, v := range values {
		samples[i] = layers.Sample{Channel: uint8(i), Value: v, Position: i}
	}
	return samples
}

func TestAlignmentGuard(t *testing.T) {
	at := time.Unix(1700000000, 0)
	s := NewSession("/dev/ttyUSB0", at)
	require.True(t, s.Append(samplesOf(1, 2, 3, 4), at))
	require.Equal(t, 4, s.ChannelCount)

	before := s.Snapshot()
	require.False(t, s.Append(samplesOf(5, 6, 7), at.Add(time.Second)))
	require.Equal(t, before.Rows, s.Rows)
	require.Equal(t, before.Timestamps, s.Timestamps)
	require.Equal(t, 1, s.Len())
	require.Equal(t, uint64(1), s.Counters.Dropped)

	require.True(t, s.Append(samplesOf(5, 6, 7, 8), at.Add(2*time.Second)))
	require.Equal(t, 2, s.Len())
	require.Equal(t, [][]uint32{{1, 2, 3, 4}, {5, 6, 7, 8}}, s.Rows)
	require.Equal(t, uint64(2), s.Counters.Accepted)
}

func TestFirstSetEstablishesChannelCount(t *testing.T) {
	s := NewSession("/dev/ttyUSB0", time.Now())
	require.True(t, s.Append(samplesOf(9, 9), time.Now()))
	require.Equal(t, 2, s.ChannelCount)
	require.False(t, s.Append(samplesOf(1, 2, 3, 4), time.Now()))
}

func TestSeriesAndStats(t *testing.T) {
	at := time.Now()
	s := NewSession("/dev/ttyUSB0", at)
	require.Empty(t, s.Stats())

	s.Append(samplesOf(10, 100), at)
	s.Append(samplesOf(20, 50), at)
	s.Append(samplesOf(30, 75), at)

	require.Equal(t, []uint32{10, 20, 30}, s.Series(0))
	require.Equal(t, []uint32{100, 50, 75}, s.Series(1))
	require.Nil(t, s.Series(2))
	require.Nil(t, s.Series(-1))

	require.Equal(t, []ChannelStats{
		{Channel: 0, Min: 10, Max: 30, Avg: 20, Count: 3},
		{Channel: 1, Min: 50, Max: 100, Avg: 75, Count: 3},
	}, s.Stats())
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewSession("/dev/ttyUSB0", time.Now())
	s.Append(samplesOf(1, 2), time.Now())
	cp := s.Snapshot()
	s.Rows[0][0] = 42
	s.Append(samplesOf(3, 4), time.Now())
	require.Equal(t, [][]uint32{{1, 2}}, cp.Rows)
	require.Len(t, cp.Timestamps, 1)
}
