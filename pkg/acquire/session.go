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
	"time"

	"github.com/fuel-analytics/go-fuel/pkg/layers"
)

// Counters are the per session cycle statistics
type Counters struct {
	Cycles       uint64 `json:"cycles"`
	Accepted     uint64 `json:"accepted"`
	Dropped      uint64 `json:"dropped"`
	Timeouts     uint64 `json:"timeouts"`
	ShortReads   uint64 `json:"shortReads"`
	Malformed    uint64 `json:"malformed"`
	ReadErrors   uint64 `json:"readErrors"`
	LastSequence uint64 `json:"lastSequence"`
}

// ChannelStats summarizes one channel of the series
type ChannelStats struct {
	Channel int     `json:"channel"`
	Min     uint32  `json:"min"`
	Max     uint32  `json:"max"`
	Avg     float64 `json:"avg"`
	Count   int     `json:"count"`
}

// Session is the state of one acquisition, from Start out of Idle to Stop.
//
// The aggregate series is a list of rows, one row per accepted cycle, each row
// holding the sample values in record order. Row width is fixed by the first
// accepted sample set.
type Session struct {
	Device       string      `json:"device"`
	StartedAt    time.Time   `json:"startedAt"`
	ChannelCount int         `json:"channelCount"`
	Rows         [][]uint32  `json:"rows"`
	Timestamps   []time.Time `json:"timestamps"`
	Counters     Counters    `json:"counters"`
}

func NewSession(device string, startedAt time.Time) *Session {
	return &Session{
		Device:    device,
		StartedAt: startedAt,
	}
}

// Append adds a decoded sample set to the series when it matches the
// established channel count, or establishes it when the series is empty.
// A mismatching set is dropped and false is returned.
func (s *Session) Append(samples []layers.Sample, at time.Time) bool {
	if len(s.Rows) != 0 && len(samples) != s.ChannelCount {
		s.Counters.Dropped++
		return false
	}
	if len(s.Rows) == 0 {
		s.ChannelCount = len(samples)
	}
	s.Rows = append(s.Rows, layers.Values(samples))
	s.Timestamps = append(s.Timestamps, at)
	s.Counters.Accepted++
	return true
}

// Len returns the number of rows in the series
func (s *Session) Len() int {
	return len(s.Rows)
}

// Series returns the values of one channel (record position) over time
func (s *Session) Series(channel int) []uint32 {
	if channel < 0 || channel >= s.ChannelCount {
		return nil
	}
	series := make([]uint32, len(s.Rows))
	for i, row := range s.Rows {
		series[i] = row[channel]
	}
	return series
}

// Stats returns min, max and average per channel
func (s *Session) Stats() []ChannelStats {
	stats := make([]ChannelStats, 0, s.ChannelCount)
	if len(s.Rows) == 0 {
		return stats
	}
	for ch := 0; ch < s.ChannelCount; ch++ {
		st := ChannelStats{Channel: ch, Min: s.Rows[0][ch], Max: s.Rows[0][ch]}
		var sum float64
		for _, row := range s.Rows {
			v := row[ch]
			if v < st.Min {
				st.Min = v
			}
			if v > st.Max {
				st.Max = v
			}
			sum += float64(v)
		}
		st.Count = len(s.Rows)
		st.Avg = sum / float64(st.Count)
		stats = append(stats, st)
	}
	return stats
}

// Snapshot returns a deep copy safe to hand to other goroutines
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.Rows = make([][]uint32, len(s.Rows))
	for i, row := range s.Rows {
		cp.Rows[i] = append([]uint32(nil), row...)
	}
	cp.Timestamps = append([]time.Time(nil), s.Timestamps...)
	return &cp
}
